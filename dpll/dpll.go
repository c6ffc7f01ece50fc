// Package dpll provides a family of basic DPLL solvers over plain CNF,
// using chronological backtracking and pluggable branching heuristics.
//
// These solvers are orders of magnitude slower than the CDCL engine of the
// solver package: they learn nothing from conflicts and only ever undo the
// most recent decision. They remain useful as a readable baseline and as an
// oracle for differential testing of branching heuristics.
package dpll

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/varasat/varasat/solver"
)

// Stats are statistics about a DPLL search. They are provided for
// information purpose only.
type Stats struct {
	NbDecisions        int
	NbConflicts        int
	NbBacktracks       int
	NbUnitProps        int // How many assignments were forced by unit propagation
	NbPureEliminations int // How many pure literals were bound
}

// A decision is a branching point that can be undone and flipped.
type decision struct {
	lit      int  // The decision literal, as a signed CNF literal
	trailLen int  // Trail length right before the decision was bound
	flipped  bool // Whether the opposite branch was already tried
}

// A Solver is a DPLL solver over a CNF formula. The zero value is not
// usable: use New. A Solver is not safe for concurrent use.
type Solver struct {
	Strategy     Strategy           // Branching heuristic; New sets it to FirstFree
	UnitProp     bool               // Propagate unit clauses at every node
	PureLits     bool               // Bind pure literals at every node
	MaxDecisions int                // If > 0, give up with Timeout after that many decisions
	Logger       logrus.FieldLogger // If non-nil, search progress is logged during backtracking
	Stats        Stats

	clauses  [][]int
	nbVars   int
	assign   []int8 // For each var, 1 if true, -1 if false, 0 if unbound
	trail    []int  // All bound literals, in binding order
	stack    []decision
	pureBuf  []int8 // Scratch for pure literal detection
	lastSat  []bool
	solved   bool
}

// New makes a DPLL solver for the given formula, with unit propagation and
// pure literal elimination enabled and the FirstFree branching heuristic.
// Each inner slice is a clause, each int a non-zero DIMACS literal.
func New(cnf [][]int) *Solver {
	nbVars := 0
	for _, clause := range cnf {
		for _, lit := range clause {
			if lit < 0 {
				lit = -lit
			}
			if lit > nbVars {
				nbVars = lit
			}
		}
	}
	s := &Solver{
		Strategy: FirstFree{},
		UnitProp: true,
		PureLits: true,
		clauses:  cnf,
		nbVars:   nbVars,
		assign:   make([]int8, nbVars),
		pureBuf:  make([]int8, nbVars),
	}
	return s
}

// NbVars returns the number of variables of the formula.
func (s *Solver) NbVars() int { return s.nbVars }

// LitValue returns 1 if lit is currently true, -1 if it is false, and 0 if
// its variable is unbound.
func (s *Solver) LitValue(lit int) int8 {
	if lit < 0 {
		return -s.assign[-lit-1]
	}
	return s.assign[lit-1]
}

func (s *Solver) bind(lit int) {
	v := lit
	val := int8(1)
	if lit < 0 {
		v = -lit
		val = -1
	}
	s.assign[v-1] = val
	s.trail = append(s.trail, lit)
}

func (s *Solver) undoTo(trailLen int) {
	for i := len(s.trail) - 1; i >= trailLen; i-- {
		lit := s.trail[i]
		if lit < 0 {
			lit = -lit
		}
		s.assign[lit-1] = 0
	}
	s.trail = s.trail[:trailLen]
}

// propagate applies unit propagation and pure literal elimination until
// fixpoint, depending on the solver settings. It returns a falsified
// clause, or nil if no clause is falsified.
func (s *Solver) propagate() []int {
	for {
		changed := false
		for _, clause := range s.clauses {
			sat := false
			free := 0
			unit := 0
			for _, lit := range clause {
				switch s.LitValue(lit) {
				case 1:
					sat = true
				case 0:
					free++
					unit = lit
				}
				if sat {
					break
				}
			}
			if sat {
				continue
			}
			if free == 0 {
				return clause
			}
			if free == 1 && s.UnitProp {
				s.bind(unit)
				s.Stats.NbUnitProps++
				changed = true
			}
		}
		if !changed && s.PureLits {
			changed = s.bindPures()
		}
		if !changed {
			return nil
		}
	}
}

// bindPures binds every literal whose negation appears in no unsatisfied
// clause. Returns true iff at least one variable was bound.
func (s *Solver) bindPures() bool {
	const both = 2
	seen := s.pureBuf
	for i := range seen {
		seen[i] = 0
	}
	for _, clause := range s.clauses {
		sat := false
		for _, lit := range clause {
			if s.LitValue(lit) == 1 {
				sat = true
				break
			}
		}
		if sat {
			continue
		}
		for _, lit := range clause {
			if s.LitValue(lit) != 0 {
				continue
			}
			v := lit
			pol := int8(1)
			if lit < 0 {
				v = -lit
				pol = -1
			}
			switch seen[v-1] {
			case 0:
				seen[v-1] = pol
			case pol:
			default:
				seen[v-1] = both
			}
		}
	}
	bound := false
	for i, pol := range seen {
		if pol == 1 || pol == -1 {
			s.bind(int(pol) * (i + 1))
			s.Stats.NbPureEliminations++
			bound = true
		}
	}
	return bound
}

// allSatisfied is true iff every clause has at least one true literal.
func (s *Solver) allSatisfied() bool {
	for _, clause := range s.clauses {
		sat := false
		for _, lit := range clause {
			if s.LitValue(lit) == 1 {
				sat = true
				break
			}
		}
		if !sat {
			return false
		}
	}
	return true
}

// Solve runs the search and returns Sat, Unsat, or Timeout if a decision
// budget was set and exhausted.
func (s *Solver) Solve() solver.Status {
	return s.SolveContext(context.Background())
}

// SolveContext behaves like Solve and additionally stops with the Timeout
// status when ctx expires or is cancelled.
func (s *Solver) SolveContext(ctx context.Context) solver.Status {
	s.Strategy.init(s.clauses, s.nbVars)
	for {
		if ctx.Err() != nil {
			return solver.Timeout
		}
		if s.MaxDecisions > 0 && s.Stats.NbDecisions >= s.MaxDecisions {
			return solver.Timeout
		}
		conflict := s.propagate()
		if conflict == nil {
			if s.allSatisfied() {
				s.saveModel()
				return solver.Sat
			}
			lit := s.Strategy.Choose(s)
			if lit == 0 { // The strategy found nothing: fall back to any free var
				lit = s.firstFreeVar()
			}
			s.Stats.NbDecisions++
			s.stack = append(s.stack, decision{lit: lit, trailLen: len(s.trail)})
			s.bind(lit)
			continue
		}
		s.Stats.NbConflicts++
		for _, lit := range conflict {
			if lit < 0 {
				lit = -lit
			}
			s.Strategy.bump(lit)
		}
		if s.Stats.NbConflicts%256 == 0 {
			s.Strategy.decay()
		}
		if !s.backtrack() {
			return solver.Unsat
		}
	}
}

// backtrack undoes the most recent unflipped decision and binds its
// opposite. Returns false when no decision is left to flip: the formula
// is unsatisfiable.
func (s *Solver) backtrack() bool {
	for {
		if len(s.stack) == 0 {
			return false
		}
		d := &s.stack[len(s.stack)-1]
		s.undoTo(d.trailLen)
		if d.flipped {
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}
		d.flipped = true
		s.Stats.NbBacktracks++
		if s.Logger != nil && s.Stats.NbBacktracks%10000 == 0 {
			s.Logger.WithFields(logrus.Fields{
				"backtracks": s.Stats.NbBacktracks,
				"decisions":  s.Stats.NbDecisions,
				"depth":      len(s.stack),
			}).Debug("still backtracking")
		}
		s.bind(-d.lit)
		return true
	}
}

func (s *Solver) firstFreeVar() int {
	for v := 1; v <= s.nbVars; v++ {
		if s.assign[v-1] == 0 {
			return v
		}
	}
	return 0
}

func (s *Solver) saveModel() {
	s.lastSat = make([]bool, s.nbVars)
	for i, val := range s.assign {
		s.lastSat[i] = val >= 0 // Unbound vars default to true
	}
	s.solved = true
}

// Model returns the model found by the last successful call to Solve.
// It panics if the solver did not reach the Sat status.
func (s *Solver) Model() []bool {
	if !s.solved {
		panic("cannot call Model() from a non-Sat solver")
	}
	return s.lastSat
}
