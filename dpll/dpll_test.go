package dpll

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varasat/varasat/solver"
)

func allStrategies() map[string]Strategy {
	return map[string]Strategy{
		"first-free": FirstFree{},
		"dlis":       DLIS{},
		"mom":        MOM{},
		"jw":         JW{},
		"vsids":      &VSIDS{},
	}
}

// verify returns true iff the model satisfies every clause of the formula.
func verify(cnf [][]int, model []bool) bool {
	for _, clause := range cnf {
		sat := false
		for _, lit := range clause {
			v := lit
			if v < 0 {
				v = -v
			}
			if model[v-1] == (lit > 0) {
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

func TestSolveSat(t *testing.T) {
	cnf := [][]int{{1, 2}, {-1, 3}, {-2, 3}, {1, -3, 2}}
	for name, strat := range allStrategies() {
		t.Run(name, func(t *testing.T) {
			s := New(cnf)
			s.Strategy = strat
			require.Equal(t, solver.Sat, s.Solve())
			assert.True(t, verify(cnf, s.Model()))
		})
	}
}

func TestSolveUnsat(t *testing.T) {
	cnf := [][]int{{1, 2}, {1, -2}, {-1, 2}, {-1, -2}}
	for name, strat := range allStrategies() {
		t.Run(name, func(t *testing.T) {
			s := New(cnf)
			s.Strategy = strat
			assert.Equal(t, solver.Unsat, s.Solve())
			assert.Panics(t, func() { s.Model() })
		})
	}
}

func TestSolveEmptyFormula(t *testing.T) {
	s := New(nil)
	assert.Equal(t, solver.Sat, s.Solve())
	assert.Empty(t, s.Model())
}

func TestSolveEmptyClause(t *testing.T) {
	s := New([][]int{{1, 2}, {}})
	assert.Equal(t, solver.Unsat, s.Solve())
}

func TestUnitPropagation(t *testing.T) {
	// A chain of implications: 1, 1 -> 2, 2 -> 3, 3 -> 4
	cnf := [][]int{{1}, {-1, 2}, {-2, 3}, {-3, 4}}
	s := New(cnf)
	require.Equal(t, solver.Sat, s.Solve())
	assert.Equal(t, []bool{true, true, true, true}, s.Model())
	assert.Equal(t, 0, s.Stats.NbDecisions, "the whole chain should be propagated")
	assert.Equal(t, 4, s.Stats.NbUnitProps)
}

func TestPureLiteralElimination(t *testing.T) {
	// 2 only occurs positively, 3 only negatively
	cnf := [][]int{{1, 2}, {-1, 2}, {1, -3}, {-1, -3}}
	s := New(cnf)
	require.Equal(t, solver.Sat, s.Solve())
	model := s.Model()
	assert.True(t, model[1])
	assert.False(t, model[2])
	assert.GreaterOrEqual(t, s.Stats.NbPureEliminations, 2)
	assert.Equal(t, 0, s.Stats.NbDecisions)
}

func TestSolveWithoutSimplifications(t *testing.T) {
	cnf := [][]int{{1}, {-1, 2}, {-2, 3}, {-1, -3, 4}, {-4, -2}}
	s := New(cnf)
	s.UnitProp = false
	s.PureLits = false
	assert.Equal(t, solver.Unsat, s.Solve())
	assert.Greater(t, s.Stats.NbBacktracks, 0)
	assert.Equal(t, 0, s.Stats.NbUnitProps)
	assert.Equal(t, 0, s.Stats.NbPureEliminations)
}

func TestDecisionBudget(t *testing.T) {
	cnf := randKCNF(rand.New(rand.NewSource(7)), 30, 120)
	s := New(cnf)
	s.UnitProp = false
	s.PureLits = false
	s.MaxDecisions = 3
	assert.Equal(t, solver.Timeout, s.Solve())
}

func TestCancelledContext(t *testing.T) {
	s := New([][]int{{1, 2}, {-1, -2}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, solver.Timeout, s.SolveContext(ctx))
}

func randKCNF(rnd *rand.Rand, nbVars, nbClauses int) [][]int {
	cnf := make([][]int, nbClauses)
	for i := range cnf {
		clause := make([]int, 3)
		for j := range clause {
			lit := rnd.Intn(nbVars) + 1
			if rnd.Intn(2) == 0 {
				lit = -lit
			}
			clause[j] = lit
		}
		cnf[i] = clause
	}
	return cnf
}

// TestAgreementWithCDCL checks that every heuristic reaches the same verdict
// as the CDCL engine on random instances around the phase transition.
func TestAgreementWithCDCL(t *testing.T) {
	rnd := rand.New(rand.NewSource(99))
	for i := 0; i < 20; i++ {
		nbVars := 10 + rnd.Intn(6)
		nbClauses := 4*nbVars + rnd.Intn(nbVars)
		cnf := randKCNF(rnd, nbVars, nbClauses)
		expected := solver.New(solver.ParseSlice(cnf)).Solve()
		for name, strat := range allStrategies() {
			s := New(cnf)
			s.Strategy = strat
			status := s.Solve()
			require.Equal(t, expected, status, "instance %d, strategy %s", i, name)
			if status == solver.Sat {
				require.True(t, verify(cnf, s.Model()), "instance %d, strategy %s: bogus model", i, name)
			}
		}
	}
}

func ExampleSolver() {
	s := New([][]int{{1, 2}, {-1, 2}, {-2, 3}})
	fmt.Println(s.Solve())
	// Output: SAT
}
