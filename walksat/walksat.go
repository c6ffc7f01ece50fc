// Package walksat provides an incomplete, randomized local-search SAT
// solver. It can find models of satisfiable formulas quickly but can never
// prove unsatisfiability: when its flip budget runs out it reports Indet.
package walksat

import (
	"context"
	"math/rand"

	"github.com/varasat/varasat/solver"
)

const (
	defaultMaxFlips = 100_000
	defaultMaxTries = 10
	defaultNoise    = 0.5
)

// Stats are statistics about a local search run.
type Stats struct {
	NbFlips    int
	NbTries    int
	NbRestarts int
}

// A Solver is a WalkSAT solver over a CNF formula.
// A Solver is not safe for concurrent use.
type Solver struct {
	MaxFlips int        // Flips per try before restarting; New sets a default
	MaxTries int        // Nb of random restarts before giving up
	Noise    float64    // Probability of a random walk move, in [0, 1]
	Rand     *rand.Rand // Source of randomness; New seeds a default one
	Stats    Stats

	clauses    [][]int
	nbVars     int
	assign     []bool
	occPos     [][]int // For each var, the clauses where it occurs positively
	occNeg     [][]int // For each var, the clauses where it occurs negatively
	satCount   []int   // For each clause, how many of its lits are true
	unsat      []int   // Indices of the currently falsified clauses
	whereUnsat []int   // For each clause, its position in unsat, or -1
	lastSat    []bool
}

// New makes a WalkSAT solver for the given formula, with default settings
// and a fixed-seed random source. Each inner slice is a clause, each int a
// non-zero DIMACS literal.
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
		MaxFlips:   defaultMaxFlips,
		MaxTries:   defaultMaxTries,
		Noise:      defaultNoise,
		Rand:       rand.New(rand.NewSource(0)),
		clauses:    cnf,
		nbVars:     nbVars,
		assign:     make([]bool, nbVars),
		occPos:     make([][]int, nbVars),
		occNeg:     make([][]int, nbVars),
		satCount:   make([]int, len(cnf)),
		whereUnsat: make([]int, len(cnf)),
	}
	for i, clause := range cnf {
		for _, lit := range clause {
			if lit > 0 {
				s.occPos[lit-1] = append(s.occPos[lit-1], i)
			} else {
				s.occNeg[-lit-1] = append(s.occNeg[-lit-1], i)
			}
		}
	}
	return s
}

func (s *Solver) litTrue(lit int) bool {
	if lit < 0 {
		return !s.assign[-lit-1]
	}
	return s.assign[lit-1]
}

// restart draws a fresh random assignment and recomputes all clause states.
func (s *Solver) restart() {
	for v := range s.assign {
		s.assign[v] = s.Rand.Intn(2) == 1
	}
	s.unsat = s.unsat[:0]
	for i, clause := range s.clauses {
		count := 0
		for _, lit := range clause {
			if s.litTrue(lit) {
				count++
			}
		}
		s.satCount[i] = count
		if count == 0 {
			s.whereUnsat[i] = len(s.unsat)
			s.unsat = append(s.unsat, i)
		} else {
			s.whereUnsat[i] = -1
		}
	}
}

func (s *Solver) markUnsat(c int) {
	s.whereUnsat[c] = len(s.unsat)
	s.unsat = append(s.unsat, c)
}

func (s *Solver) markSat(c int) {
	pos := s.whereUnsat[c]
	last := len(s.unsat) - 1
	s.unsat[pos] = s.unsat[last]
	s.whereUnsat[s.unsat[last]] = pos
	s.unsat = s.unsat[:last]
	s.whereUnsat[c] = -1
}

// flip inverts the value of var v and updates the clause states.
func (s *Solver) flip(v int) {
	wasTrue, nowTrue := s.occPos[v-1], s.occNeg[v-1]
	if !s.assign[v-1] {
		wasTrue, nowTrue = nowTrue, wasTrue
	}
	s.assign[v-1] = !s.assign[v-1]
	for _, c := range wasTrue {
		s.satCount[c]--
		if s.satCount[c] == 0 {
			s.markUnsat(c)
		}
	}
	for _, c := range nowTrue {
		s.satCount[c]++
		if s.satCount[c] == 1 {
			s.markSat(c)
		}
	}
	s.Stats.NbFlips++
}

// breakCount returns how many clauses would become falsified by flipping v:
// the clauses v currently satisfies alone.
func (s *Solver) breakCount(v int) int {
	occ := s.occPos[v-1]
	if !s.assign[v-1] {
		occ = s.occNeg[v-1]
	}
	count := 0
	for _, c := range occ {
		if s.satCount[c] == 1 {
			count++
		}
	}
	return count
}

// pickVar chooses the variable to flip in the given falsified clause,
// following the classic WalkSAT scheme: a zero-break variable if there is
// one, otherwise a random one with probability Noise, otherwise the one
// with the lowest break count.
func (s *Solver) pickVar(clause []int) int {
	bestVar, bestBreak := 0, int(^uint(0)>>1)
	for _, lit := range clause {
		v := lit
		if v < 0 {
			v = -v
		}
		if b := s.breakCount(v); b < bestBreak {
			bestVar, bestBreak = v, b
		}
	}
	if bestBreak == 0 {
		return bestVar
	}
	if s.Rand.Float64() < s.Noise {
		lit := clause[s.Rand.Intn(len(clause))]
		if lit < 0 {
			return -lit
		}
		return lit
	}
	return bestVar
}

// Solve runs the local search and returns Sat, or Indet when the flip and
// try budgets are exhausted without finding a model. Except for the trivial
// case of a formula containing an empty clause, it never returns Unsat:
// failure to find a model proves nothing.
func (s *Solver) Solve() solver.Status {
	return s.SolveContext(context.Background())
}

// SolveContext behaves like Solve and additionally gives up with Indet when
// ctx expires or is cancelled.
func (s *Solver) SolveContext(ctx context.Context) solver.Status {
	for _, clause := range s.clauses {
		if len(clause) == 0 { // An empty clause can never be satisfied
			return solver.Unsat
		}
	}
	for try := 0; try < s.MaxTries; try++ {
		s.Stats.NbTries++
		if try > 0 {
			s.Stats.NbRestarts++
		}
		s.restart()
		for flip := 0; flip < s.MaxFlips; flip++ {
			if len(s.unsat) == 0 {
				s.lastSat = make([]bool, len(s.assign))
				copy(s.lastSat, s.assign)
				return solver.Sat
			}
			if ctx.Err() != nil {
				return solver.Indet
			}
			clause := s.clauses[s.unsat[s.Rand.Intn(len(s.unsat))]]
			s.flip(s.pickVar(clause))
		}
	}
	return solver.Indet
}

// Model returns the model found by the last successful call to Solve.
// It panics if no model was found.
func (s *Solver) Model() []bool {
	if s.lastSat == nil {
		panic("cannot call Model() from a non-Sat solver")
	}
	return s.lastSat
}
