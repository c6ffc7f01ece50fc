package dpll

import "math"

// A Strategy picks the next decision literal. The provided implementations
// are FirstFree, DLIS, MOM, JW and VSIDS; the interface is sealed.
type Strategy interface {
	// Choose returns the next decision literal, as a signed CNF literal.
	// It may return 0 when it finds no candidate; the solver then falls
	// back to the first free variable.
	Choose(s *Solver) int
	init(cnf [][]int, nbVars int)
	bump(v int)
	decay()
}

// staticStrategy is embedded by the heuristics that ignore conflicts.
type staticStrategy struct{}

func (staticStrategy) init(cnf [][]int, nbVars int) {}
func (staticStrategy) bump(v int)                   {}
func (staticStrategy) decay()                       {}

// FirstFree branches on the lowest-index unbound variable of the first
// unsatisfied clause, trying true first.
type FirstFree struct{ staticStrategy }

func (FirstFree) Choose(s *Solver) int {
	best := 0
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
			if v < 0 {
				v = -v
			}
			if best == 0 || v < best {
				best = v
			}
		}
	}
	return best
}

// DLIS branches on the literal with the most occurrences in unsatisfied
// clauses (Dynamic Largest Individual Sum).
type DLIS struct{ staticStrategy }

func (DLIS) Choose(s *Solver) int {
	pos := make([]int, s.nbVars)
	neg := make([]int, s.nbVars)
	countFreeLits(s, func(lit int, _ int) {
		if lit > 0 {
			pos[lit-1]++
		} else {
			neg[-lit-1]++
		}
	})
	best, bestCount := 0, -1
	for v := 0; v < s.nbVars; v++ {
		if pos[v] > bestCount {
			best, bestCount = v+1, pos[v]
		}
		if neg[v] > bestCount {
			best, bestCount = -(v + 1), neg[v]
		}
	}
	if bestCount <= 0 {
		return 0
	}
	return best
}

// MOM branches on the variable with the Maximum number of Occurrences in
// clauses of Minimum size, scored by ((f(x)+f(-x))<<k) + f(x)*f(-x) and
// signed towards the more frequent polarity.
type MOM struct{ staticStrategy }

func (MOM) Choose(s *Solver) int {
	const k = 10
	minSize := math.MaxInt
	for _, clause := range s.clauses {
		if size, sat := clauseState(s, clause); !sat && size < minSize {
			minSize = size
		}
	}
	if minSize == math.MaxInt {
		return 0
	}
	pos := make([]int, s.nbVars)
	neg := make([]int, s.nbVars)
	for _, clause := range s.clauses {
		if size, sat := clauseState(s, clause); sat || size != minSize {
			continue
		}
		for _, lit := range clause {
			if s.LitValue(lit) != 0 {
				continue
			}
			if lit > 0 {
				pos[lit-1]++
			} else {
				neg[-lit-1]++
			}
		}
	}
	best, bestScore := 0, -1
	for v := 0; v < s.nbVars; v++ {
		if pos[v] == 0 && neg[v] == 0 {
			continue
		}
		score := (pos[v]+neg[v])<<k + pos[v]*neg[v]
		if score > bestScore {
			bestScore = score
			if pos[v] >= neg[v] {
				best = v + 1
			} else {
				best = -(v + 1)
			}
		}
	}
	return best
}

// JW branches using the Jeroslow-Wang weights: each free literal gets
// 2^-size for every unsatisfied clause of that size containing it. The
// variable maximizing J(x)+J(-x) is picked, signed by the larger weight.
type JW struct{ staticStrategy }

func (JW) Choose(s *Solver) int {
	pos := make([]float64, s.nbVars)
	neg := make([]float64, s.nbVars)
	countFreeLits(s, func(lit, size int) {
		w := math.Pow(2, -float64(size))
		if lit > 0 {
			pos[lit-1] += w
		} else {
			neg[-lit-1] += w
		}
	})
	best, bestScore := 0, 0.0
	for v := 0; v < s.nbVars; v++ {
		if score := pos[v] + neg[v]; score > bestScore {
			bestScore = score
			if pos[v] >= neg[v] {
				best = v + 1
			} else {
				best = -(v + 1)
			}
		}
	}
	return best
}

// VSIDS branches on the free variable with the highest activity. Scores are
// seeded with occurrence counts, bumped when the variable appears in a
// falsified clause and halved at every decay.
type VSIDS struct {
	activity []float64
}

func (h *VSIDS) init(cnf [][]int, nbVars int) {
	h.activity = make([]float64, nbVars)
	for _, clause := range cnf {
		for _, lit := range clause {
			if lit < 0 {
				lit = -lit
			}
			h.activity[lit-1]++
		}
	}
}

func (h *VSIDS) bump(v int) {
	h.activity[v-1]++
}

func (h *VSIDS) decay() {
	for i := range h.activity {
		h.activity[i] /= 2
	}
}

func (h *VSIDS) Choose(s *Solver) int {
	best, bestScore := 0, -1.0
	for v := 1; v <= s.nbVars; v++ {
		if s.assign[v-1] == 0 && h.activity[v-1] > bestScore {
			best, bestScore = v, h.activity[v-1]
		}
	}
	return best
}

// clauseState returns the number of free literals of the clause and whether
// it is satisfied.
func clauseState(s *Solver, clause []int) (freeSize int, sat bool) {
	for _, lit := range clause {
		switch s.LitValue(lit) {
		case 1:
			return 0, true
		case 0:
			freeSize++
		}
	}
	return freeSize, false
}

// countFreeLits calls f for every free literal of every unsatisfied clause,
// along with the number of free literals of that clause.
func countFreeLits(s *Solver, f func(lit, size int)) {
	for _, clause := range s.clauses {
		size, sat := clauseState(s, clause)
		if sat {
			continue
		}
		for _, lit := range clause {
			if s.LitValue(lit) == 0 {
				f(lit, size)
			}
		}
	}
}
