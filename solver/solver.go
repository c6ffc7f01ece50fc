package solver

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

const (
	defaultRestartInterval = 100   // Initial nb of conflicts between two restarts
	restartFactor          = 1.5   // Geometric growth factor of the restart interval
	defaultMaxLearned      = 1000  // Nb of learned clauses kept before a reduction is triggered
	incrMaxLearned         = 300   // By how much the learned-clause cap grows after each reduction
	clauseDecay            = 0.999 // By how much clause bumping decays over time
	defaultVarDecay        = 0.8   // Initial var activity decay factor
)

// Stats are statistics about the resolution of the problem.
// They are provided for information purpose only and never decrease during
// a call to Solve.
type Stats struct {
	NbRestarts      int
	NbConflicts     int
	NbDecisions     int
	NbUnitProps     int // How many assignments were forced by unit propagation
	NbUnitLearned   int // How many unit clauses were learned
	NbBinaryLearned int // How many binary clauses were learned
	NbLearned       int // How many clauses were learned
	NbDeleted       int // How many learned clauses were deleted
}

// The level a binding was made at.
// A negative value means "bound to false at that level",
// a positive value means "bound to true at that level", 0 means unbound.
type decLevel int

func abs(val decLevel) decLevel {
	if val < 0 {
		return -val
	}
	return val
}

// A Solver solves a given problem. It is the main data structure.
// A Solver is not safe for concurrent use: each instance owns its trail,
// watch lists and activity table exclusively.
type Solver struct {
	Logger          logrus.FieldLogger // If non-nil, search progress is logged at each restart
	MaxConflicts    int                // If > 0, the search gives up with Timeout after that many conflicts
	MaxLearned      int                // Initial cap on kept learned clauses; grows after each reduction
	nbVars          int
	status          Status
	wl              watcherList
	trail           []Lit      // Current assignment stack
	model           []decLevel // 0 means unbound, other value is a signed binding level
	lastModel       []decLevel // Copy of the model for the last Sat result
	activity        []float64  // How often each var is involved in conflicts
	polarity        []bool     // Preferred sign for each var, updated by phase saving
	reason          []*Clause  // For each var, the clause that propagated it, or nil for decisions
	varQueue        queue
	varInc          float64 // On each var bump, how big the increment should be
	clauseInc       float32 // On each clause bump, how big the increment should be
	varDecay        float64
	restartInterval int // Current nb of conflicts before the next restart
	nbConflictsRst  int // Nb of conflicts since the last restart
	bufLits         []Lit
	Stats           Stats
}

// New makes a solver for the given problem, with default settings.
func New(problem *Problem) *Solver {
	if problem.Status == Unsat {
		return &Solver{status: Unsat}
	}
	nbVars := problem.NbVars
	trailCap := nbVars
	if len(problem.Units) > trailCap {
		trailCap = len(problem.Units)
	}
	s := &Solver{
		MaxLearned:      defaultMaxLearned,
		nbVars:          nbVars,
		status:          problem.Status,
		trail:           make([]Lit, len(problem.Units), trailCap),
		model:           make([]decLevel, nbVars),
		activity:        make([]float64, nbVars),
		polarity:        make([]bool, nbVars),
		reason:          make([]*Clause, nbVars),
		varInc:          1.0,
		clauseInc:       1.0,
		varDecay:        defaultVarDecay,
		restartInterval: defaultRestartInterval,
		bufLits:         make([]Lit, nbVars+1),
	}
	copy(s.model, problem.Model)
	for i := range s.polarity {
		s.polarity[i] = true // Decide true first
	}
	s.initWatcherList(problem.Clauses)
	s.varQueue = newQueue(s.activity)
	for i, lit := range problem.Units {
		if lit.IsPositive() {
			s.model[lit.Var()] = 1
		} else {
			s.model[lit.Var()] = -1
		}
		s.trail[i] = lit
	}
	return s
}

// litStatus returns whether the literal is made true (Sat) or false (Unsat)
// by the current bindings, or if it is unbound (Indet).
func (s *Solver) litStatus(l Lit) Status {
	assign := s.model[l.Var()]
	if assign == 0 {
		return Indet
	}
	if assign > 0 == l.IsPositive() {
		return Sat
	}
	return Unsat
}

func (s *Solver) varDecayActivity() {
	s.varInc *= 1 / s.varDecay
}

func (s *Solver) varBumpActivity(v Var) {
	s.activity[v] += s.varInc
	if s.activity[v] > 1e100 { // Rescaling is needed to avoid overflowing
		for i := range s.activity {
			s.activity[i] *= 1e-100
		}
		s.varInc *= 1e-100
	}
	if s.varQueue.contains(int(v)) {
		s.varQueue.decrease(int(v))
	}
}

func (s *Solver) clauseDecayActivity() {
	s.clauseInc *= 1 / clauseDecay
}

func (s *Solver) clauseBumpActivity(c *Clause) {
	if c.Learned() {
		c.activity += s.clauseInc
		if c.activity > 1e30 { // Rescale to avoid overflow
			for _, c2 := range s.wl.learned {
				c2.activity *= 1e-30
			}
			s.clauseInc *= 1e-30
		}
	}
}

// chooseLit picks the unbound var with the highest activity and returns its
// lit with the saved polarity, or -1 if all the variables are bound.
func (s *Solver) chooseLit() Lit {
	v := Var(-1)
	for v == -1 && !s.varQueue.empty() {
		if v2 := Var(s.varQueue.removeMin()); s.model[v2] == 0 { // Ignore already bound vars
			v = v2
		}
	}
	if v == -1 {
		return Lit(-1)
	}
	s.Stats.NbDecisions++
	return v.SignedLit(!s.polarity[v])
}

// cleanupBindings removes all bindings made at a decLevel > lvl, undoing
// their trail entries, reasons and implication-graph edges in one pass.
func (s *Solver) cleanupBindings(lvl decLevel) {
	i := 0
	for i < len(s.trail) && abs(s.model[s.trail[i].Var()]) <= lvl {
		i++
	}
	for j := len(s.trail) - 1; j >= i; j-- {
		lit := s.trail[j]
		v := lit.Var()
		s.model[v] = 0
		if s.reason[v] != nil {
			s.reason[v].unlock()
			s.reason[v] = nil
		}
		s.polarity[v] = lit.IsPositive()
		if !s.varQueue.contains(int(v)) {
			s.varQueue.insert(int(v))
		}
	}
	s.trail = s.trail[:i]
}

// Given the last learned clause, returns the level to backjump to and the
// literal to assert there. The clause lits are sorted by decreasing level,
// so the second lit is bound at the second-highest level of the clause.
func backtrackData(c *Clause, model []decLevel) (btLevel decLevel, lit Lit) {
	btLevel = abs(model[c.Get(1).Var()])
	return btLevel, c.Get(0)
}

func (s *Solver) rebuildOrderHeap() {
	ints := make([]int, 0, s.nbVars)
	for v := 0; v < s.nbVars; v++ {
		if s.model[v] == 0 {
			ints = append(ints, v)
		}
	}
	s.varQueue.build(ints)
}

// budgetExhausted is true iff the context is done or the conflict budget,
// if any, is spent. Checked once per decision so cancellation stays
// cooperative at the granularity of one propagation.
func (s *Solver) budgetExhausted(ctx context.Context) bool {
	if s.MaxConflicts > 0 && s.Stats.NbConflicts >= s.MaxConflicts {
		return true
	}
	return ctx.Err() != nil
}

// propagateAndSearch assigns the given lit, propagates it and searches for a
// solution, until it is found or a restart is needed.
func (s *Solver) propagateAndSearch(ctx context.Context, lit Lit, lvl decLevel) Status {
	for lit != -1 {
		if s.budgetExhausted(ctx) {
			return Timeout
		}
		if conflict := s.unifyLiteral(lit, lvl); conflict == nil {
			lvl++
			lit = s.chooseLit()
			continue
		} else {
			s.Stats.NbConflicts++
			s.nbConflictsRst++
			if s.Stats.NbConflicts%5000 == 0 && s.varDecay < 0.95 {
				s.varDecay += 0.01
			}
			learnt, unit := s.learnClause(conflict, lvl)
			if learnt == nil { // Unit clause was learned: this lit is known for sure
				if unit == -1 || (abs(s.model[unit.Var()]) == 1 && s.litStatus(unit) == Unsat) {
					return Unsat // Top-level conflict
				}
				s.Stats.NbUnitLearned++
				s.cleanupBindings(1)
				if conflict = s.unifyLiteral(unit, 1); conflict != nil { // Top-level conflict
					return Unsat
				}
				s.rebuildOrderHeap()
				lit = s.chooseLit()
				lvl = 2
			} else {
				if learnt.Len() == 2 {
					s.Stats.NbBinaryLearned++
				}
				s.Stats.NbLearned++
				s.addLearned(learnt)
				lvl, lit = backtrackData(learnt, s.model)
				s.cleanupBindings(lvl)
				s.reason[lit.Var()] = learnt
				learnt.lock()
			}
			if len(s.wl.learned) > s.wl.nbMax {
				s.reduceLearned()
				s.wl.nbMax += incrMaxLearned
			}
			if s.nbConflictsRst >= s.restartInterval { // Time to restart
				s.nbConflictsRst = 0
				s.restartInterval = int(float64(s.restartInterval) * restartFactor)
				s.cleanupBindings(1)
				return Indet
			}
		}
	}
	return Sat
}

// search runs the CDCL loop until Sat, Unsat, Timeout or the next restart.
func (s *Solver) search(ctx context.Context) Status {
	return s.propagateAndSearch(ctx, s.chooseLit(), 2)
}

// Solve solves the problem associated with the solver and returns the
// appropriate status: Sat, Unsat, or Timeout if a conflict budget was set
// and exhausted.
func (s *Solver) Solve() Status {
	return s.SolveContext(context.Background())
}

// SolveContext behaves like Solve and additionally stops with the Timeout
// status when ctx expires or is cancelled. A Timeout result is not a proof:
// it must never be read as Unsat.
func (s *Solver) SolveContext(ctx context.Context) Status {
	if s.status == Unsat {
		return s.status
	}
	s.status = Indet
	for s.status == Indet {
		s.status = s.search(ctx)
		if s.status == Indet { // Restart: learned clauses survive, bindings do not
			s.Stats.NbRestarts++
			s.rebuildOrderHeap()
			if s.Logger != nil {
				s.Logger.WithFields(logrus.Fields{
					"restarts":  s.Stats.NbRestarts,
					"conflicts": s.Stats.NbConflicts,
					"learned":   len(s.wl.learned),
					"deleted":   s.Stats.NbDeleted,
					"units":     s.Stats.NbUnitLearned,
				}).Debug("restarting search")
			}
		}
	}
	if s.status == Sat {
		s.lastModel = make([]decLevel, len(s.model))
		copy(s.lastModel, s.model)
	}
	return s.status
}

// Model returns a slice that associates, to each variable, its binding.
// If the solver did not reach the Sat status, the method will panic.
func (s *Solver) Model() []bool {
	if s.lastModel == nil {
		panic("cannot call Model() from a non-Sat solver")
	}
	res := make([]bool, s.nbVars)
	for i, lvl := range s.lastModel {
		res[i] = lvl > 0
	}
	return res
}

// OutputModel writes the latest result on w, using the DIMACS output
// conventions ("s SATISFIABLE" etc).
func (s *Solver) OutputModel(w io.Writer) {
	switch {
	case s.status == Sat || s.lastModel != nil:
		fmt.Fprintf(w, "s SATISFIABLE\nv ")
		for i, val := range s.lastModel {
			if val < 0 {
				fmt.Fprintf(w, "%d ", -i-1)
			} else {
				fmt.Fprintf(w, "%d ", i+1)
			}
		}
		fmt.Fprintf(w, "0\n")
	case s.status == Unsat:
		fmt.Fprintf(w, "s UNSATISFIABLE\n")
	default:
		fmt.Fprintf(w, "s INDETERMINATE\n")
	}
}
