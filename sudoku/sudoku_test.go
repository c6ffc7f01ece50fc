package sudoku

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validCompletion checks that solved is a fully valid grid extending the
// givens of the original one.
func validCompletion(t *testing.T, givens, solved Grid) {
	t.Helper()
	size, boxSize, err := solved.Size()
	require.NoError(t, err)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			require.True(t, solved[r][c] >= 1 && solved[r][c] <= size,
				"cell (%d,%d) = %d", r, c, solved[r][c])
			if givens[r][c] != 0 {
				require.Equal(t, givens[r][c], solved[r][c],
					"cell (%d,%d) does not match its given", r, c)
			}
		}
	}
	seen := make(map[int]bool)
	check := func(kind string, idx int, cells []int) {
		for k := range seen {
			delete(seen, k)
		}
		for _, d := range cells {
			require.False(t, seen[d], "%s %d repeats digit %d", kind, idx, d)
			seen[d] = true
		}
	}
	for r := 0; r < size; r++ {
		check("row", r, solved[r])
	}
	for c := 0; c < size; c++ {
		col := make([]int, size)
		for r := 0; r < size; r++ {
			col[r] = solved[r][c]
		}
		check("column", c, col)
	}
	for boxR := 0; boxR < boxSize; boxR++ {
		for boxC := 0; boxC < boxSize; boxC++ {
			var box []int
			for r := boxR * boxSize; r < (boxR+1)*boxSize; r++ {
				for c := boxC * boxSize; c < (boxC+1)*boxSize; c++ {
					box = append(box, solved[r][c])
				}
			}
			check("box", boxR*boxSize+boxC, box)
		}
	}
}

func TestSolve4x4(t *testing.T) {
	grid := Grid{
		{1, 0, 0, 0},
		{0, 0, 3, 0},
		{0, 4, 0, 0},
		{0, 0, 0, 2},
	}
	solved, err := grid.Solve()
	require.NoError(t, err)
	validCompletion(t, grid, solved)
}

func TestSolve9x9(t *testing.T) {
	grid := Grid{
		{5, 3, 0, 0, 7, 0, 0, 0, 0},
		{6, 0, 0, 1, 9, 5, 0, 0, 0},
		{0, 9, 8, 0, 0, 0, 0, 6, 0},
		{8, 0, 0, 0, 6, 0, 0, 0, 3},
		{4, 0, 0, 8, 0, 3, 0, 0, 1},
		{7, 0, 0, 0, 2, 0, 0, 0, 6},
		{0, 6, 0, 0, 0, 0, 2, 8, 0},
		{0, 0, 0, 4, 1, 9, 0, 0, 5},
		{0, 0, 0, 0, 8, 0, 0, 7, 9},
	}
	solved, err := grid.Solve()
	require.NoError(t, err)
	validCompletion(t, grid, solved)
}

func TestSolveOneHole(t *testing.T) {
	full := Grid{
		{5, 3, 4, 6, 7, 8, 9, 1, 2},
		{6, 7, 2, 1, 9, 5, 3, 4, 8},
		{1, 9, 8, 3, 4, 2, 5, 6, 7},
		{8, 5, 9, 7, 6, 1, 4, 2, 3},
		{4, 2, 6, 8, 5, 3, 7, 9, 1},
		{7, 1, 3, 9, 2, 4, 8, 5, 6},
		{9, 6, 1, 5, 3, 7, 2, 8, 4},
		{2, 8, 7, 4, 1, 9, 6, 3, 5},
		{3, 4, 5, 2, 8, 6, 1, 7, 9},
	}
	// Blanking a single cell leaves a unique completion: the solver must
	// put the removed digit back
	for _, hole := range [][2]int{{0, 0}, {4, 4}, {8, 8}, {2, 7}} {
		grid := make(Grid, len(full))
		for r := range full {
			grid[r] = append([]int(nil), full[r]...)
		}
		grid[hole[0]][hole[1]] = 0
		solved, err := grid.Solve()
		require.NoError(t, err)
		assert.Equal(t, full, solved, "hole at (%d,%d)", hole[0], hole[1])
	}
}

func TestSolveEmptyGrid(t *testing.T) {
	grid := make(Grid, 9)
	for r := range grid {
		grid[r] = make([]int, 9)
	}
	solved, err := grid.Solve()
	require.NoError(t, err)
	validCompletion(t, grid, solved)
}

func TestSolveNoSolution(t *testing.T) {
	// Two identical digits in the first row
	grid := Grid{
		{1, 1, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}
	_, err := grid.Solve()
	assert.ErrorIs(t, err, ErrNoSolution)
}

func TestSolveInvalidGrids(t *testing.T) {
	for name, grid := range map[string]Grid{
		"empty":         {},
		"not square":    {{1, 0}, {0, 1}, {0, 0}},
		"size not a sq": {{0, 0}, {0, 0}},
		"value too big": {{5, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := grid.Solve()
			assert.Error(t, err)
		})
	}
}

func TestSolveCancelledContext(t *testing.T) {
	grid := make(Grid, 9)
	for r := range grid {
		grid[r] = make([]int, 9)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := grid.SolveContext(ctx)
	assert.Error(t, err)
}

func TestUnique(t *testing.T) {
	// A full grid is trivially unique
	full := Grid{
		{1, 2, 3, 4},
		{3, 4, 1, 2},
		{2, 1, 4, 3},
		{4, 3, 2, 1},
	}
	unique, err := full.Unique()
	require.NoError(t, err)
	assert.True(t, unique)

	// An empty 4x4 grid has many completions
	empty := make(Grid, 4)
	for r := range empty {
		empty[r] = make([]int, 4)
	}
	unique, err = empty.Unique()
	require.NoError(t, err)
	assert.False(t, unique)
}
