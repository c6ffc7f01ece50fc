package walksat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varasat/varasat/solver"
)

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
	s := New(cnf)
	require.Equal(t, solver.Sat, s.Solve())
	assert.True(t, verify(cnf, s.Model()))
	assert.Greater(t, s.Stats.NbTries, 0)
}

func TestSolveEmptyClause(t *testing.T) {
	assert.Equal(t, solver.Unsat, New([][]int{{1}, {}}).Solve())
}

func TestSolveEmptyFormula(t *testing.T) {
	s := New(nil)
	require.Equal(t, solver.Sat, s.Solve())
	assert.Empty(t, s.Model())
}

func TestSolveUnsatGivesIndet(t *testing.T) {
	cnf := [][]int{{1, 2}, {1, -2}, {-1, 2}, {-1, -2}}
	s := New(cnf)
	s.MaxFlips = 100
	s.MaxTries = 3
	assert.Equal(t, solver.Indet, s.Solve())
	assert.Panics(t, func() { s.Model() })
}

func TestSolveRandomSatInstances(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		// Instances built from a hidden model are satisfiable by construction
		nbVars := 20 + rnd.Intn(20)
		hidden := make([]bool, nbVars)
		for v := range hidden {
			hidden[v] = rnd.Intn(2) == 1
		}
		var cnf [][]int
		for c := 0; c < 4*nbVars; c++ {
			clause := make([]int, 3)
			for j := range clause {
				v := rnd.Intn(nbVars)
				clause[j] = v + 1
				if !hidden[v] {
					clause[j] = -clause[j]
				}
				// The first lit always agrees with the hidden model,
				// so every clause has at least one true lit under it
				if j > 0 && rnd.Intn(2) == 0 {
					clause[j] = -clause[j]
				}
			}
			cnf = append(cnf, clause)
		}
		s := New(cnf)
		s.Rand = rand.New(rand.NewSource(int64(i)))
		require.Equal(t, solver.Sat, s.Solve(), "instance %d", i)
		require.True(t, verify(cnf, s.Model()), "instance %d: bogus model", i)
	}
}

func TestNoiseBounds(t *testing.T) {
	cnf := [][]int{{1, 2}, {-1, 3}, {-2, 3}}
	for _, noise := range []float64{0, 0.5, 1} {
		s := New(cnf)
		s.Noise = noise
		assert.Equal(t, solver.Sat, s.Solve(), "noise %f", noise)
	}
}
