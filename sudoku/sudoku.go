// Package sudoku encodes Sudoku grids as CNF formulas and solves them with
// the CDCL engine. Grids of any box size are supported: the usual 9x9 grid
// has box size 3, a 16x16 grid box size 4.
package sudoku

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/varasat/varasat/solver"
)

// A Grid is a square Sudoku grid. The value 0 denotes an empty cell; other
// values must lie in [1, n] where n is the grid size.
type Grid [][]int

// ErrNoSolution is returned when a grid admits no valid completion.
var ErrNoSolution = errors.New("the grid has no solution")

// Size returns the grid size and its box size, or an error if the
// dimensions do not describe a square grid with square boxes.
func (g Grid) Size() (size, boxSize int, err error) {
	size = len(g)
	if size == 0 {
		return 0, 0, errors.New("empty grid")
	}
	boxSize = int(math.Sqrt(float64(size)))
	if boxSize*boxSize != size {
		return 0, 0, errors.Errorf("grid size %d is not a perfect square", size)
	}
	for r, row := range g {
		if len(row) != size {
			return 0, 0, errors.Errorf("row %d has %d cells, want %d", r, len(row), size)
		}
		for c, val := range row {
			if val < 0 || val > size {
				return 0, 0, errors.Errorf("cell (%d,%d) holds %d, want 0..%d", r, c, val, size)
			}
		}
	}
	return size, boxSize, nil
}

// cnfVar returns the CNF variable meaning "cell (row,col) holds digit".
// Digits are 1-based, the returned variable too.
func cnfVar(size, row, col, digit int) int {
	return row*size*size + col*size + digit
}

// exactlyOne appends the clauses stating that exactly one of the lits is
// true: one at-least-one clause and pairwise at-most-one clauses.
func exactlyOne(cnf [][]int, lits []int) [][]int {
	cnf = append(cnf, lits)
	for i := 0; i < len(lits); i++ {
		for j := i + 1; j < len(lits); j++ {
			cnf = append(cnf, []int{-lits[i], -lits[j]})
		}
	}
	return cnf
}

// Encode translates the grid into a CNF formula. The formula is satisfiable
// iff the givens extend to a valid completed grid; a model decodes back to
// that grid through Decode.
func (g Grid) Encode() ([][]int, error) {
	size, boxSize, err := g.Size()
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode grid")
	}
	var cnf [][]int
	lits := make([]int, size)
	// Each cell holds exactly one digit
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			for d := 1; d <= size; d++ {
				lits[d-1] = cnfVar(size, r, c, d)
			}
			cnf = exactlyOne(cnf, append([]int(nil), lits...))
		}
	}
	// Each digit appears exactly once per row and per column
	for d := 1; d <= size; d++ {
		for r := 0; r < size; r++ {
			for c := 0; c < size; c++ {
				lits[c] = cnfVar(size, r, c, d)
			}
			cnf = exactlyOne(cnf, append([]int(nil), lits...))
		}
		for c := 0; c < size; c++ {
			for r := 0; r < size; r++ {
				lits[r] = cnfVar(size, r, c, d)
			}
			cnf = exactlyOne(cnf, append([]int(nil), lits...))
		}
	}
	// Each digit appears exactly once per box
	for d := 1; d <= size; d++ {
		for boxR := 0; boxR < boxSize; boxR++ {
			for boxC := 0; boxC < boxSize; boxC++ {
				i := 0
				for r := boxR * boxSize; r < (boxR+1)*boxSize; r++ {
					for c := boxC * boxSize; c < (boxC+1)*boxSize; c++ {
						lits[i] = cnfVar(size, r, c, d)
						i++
					}
				}
				cnf = exactlyOne(cnf, append([]int(nil), lits...))
			}
		}
	}
	// Givens become unit clauses
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			if d := g[r][c]; d != 0 {
				cnf = append(cnf, []int{cnfVar(size, r, c, d)})
			}
		}
	}
	return cnf, nil
}

// Decode rebuilds a grid of the given size from a model of its encoding.
func Decode(model []bool, size int) Grid {
	grid := make(Grid, size)
	for r := range grid {
		grid[r] = make([]int, size)
		for c := 0; c < size; c++ {
			for d := 1; d <= size; d++ {
				if model[cnfVar(size, r, c, d)-1] {
					grid[r][c] = d
					break
				}
			}
		}
	}
	return grid
}

// Solve returns a completion of the grid, or ErrNoSolution if the givens
// admit none.
func (g Grid) Solve() (Grid, error) {
	return g.SolveContext(context.Background())
}

// SolveContext behaves like Solve; it additionally stops early with an
// error when ctx expires or is cancelled.
func (g Grid) SolveContext(ctx context.Context) (Grid, error) {
	size, _, err := g.Size()
	if err != nil {
		return nil, err
	}
	cnf, err := g.Encode()
	if err != nil {
		return nil, err
	}
	s := solver.New(solver.ParseSlice(cnf))
	switch status := s.SolveContext(ctx); status {
	case solver.Sat:
		return Decode(s.Model(), size), nil
	case solver.Timeout:
		return nil, errors.Wrap(ctx.Err(), "solving interrupted")
	default:
		return nil, ErrNoSolution
	}
}

// Unique reports whether the grid has exactly one completion. It solves the
// grid, then forbids the found completion with a blocking clause and checks
// that no other completion exists.
func (g Grid) Unique() (bool, error) {
	size, _, err := g.Size()
	if err != nil {
		return false, err
	}
	cnf, err := g.Encode()
	if err != nil {
		return false, err
	}
	s := solver.New(solver.ParseSlice(cnf))
	if s.Solve() != solver.Sat {
		return false, ErrNoSolution
	}
	first := Decode(s.Model(), size)
	blocking := make([]int, 0, size*size)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			blocking = append(blocking, -cnfVar(size, r, c, first[r][c]))
		}
	}
	cnf = append(cnf, blocking)
	return solver.New(solver.ParseSlice(cnf)).Solve() == solver.Unsat, nil
}
