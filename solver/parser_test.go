package solver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCNF(t *testing.T) {
	cnf := `c a comment
c another comment
p cnf 4 4
1 -2 0
2 3
-4 0
-1 0
4 2 0
`
	pb, err := ParseCNF(strings.NewReader(cnf))
	require.NoError(t, err)
	assert.Equal(t, 4, pb.NbVars)
	// Unit propagation at parse time solves this problem entirely:
	// -1 forces -2, -2 forces 4, 4 forces 3.
	assert.Equal(t, Sat, pb.Status)
	assert.Contains(t, pb.Units, IntToLit(-1))
	assert.Contains(t, pb.Units, IntToLit(-2))
	assert.Contains(t, pb.Units, IntToLit(4))
	assert.Contains(t, pb.Units, IntToLit(3))
}

func TestParseCNFClausesAcrossLines(t *testing.T) {
	// A clause only ends at its 0 marker, not at the end of a line
	pb, err := ParseCNF(strings.NewReader("p cnf 3 1\n1\n2\n3 0\n"))
	require.NoError(t, err)
	require.Len(t, pb.Clauses, 1)
	assert.Equal(t, 3, pb.Clauses[0].Len())
}

func TestParseCNFEmptyClause(t *testing.T) {
	pb, err := ParseCNF(strings.NewReader("p cnf 2 2\n1 2 0\n0\n"))
	require.NoError(t, err)
	assert.Equal(t, Unsat, pb.Status)
}

func TestParseCNFErrors(t *testing.T) {
	for name, cnf := range map[string]string{
		"no header":           "1 2 0\n",
		"empty input":         "",
		"bad header":          "p foo 2 2\n1 2 0\n-1 0\n",
		"literal out of rng":  "p cnf 2 1\n1 3 0\n",
		"negative out of rng": "p cnf 2 1\n1 -3 0\n",
		"unfinished clause":   "p cnf 2 1\n1 2\n",
		"unfinished at EOF":   "p cnf 2 1\n1 2",
		"garbage literal":     "p cnf 2 1\n1 a 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCNF(strings.NewReader(cnf))
			assert.Error(t, err)
		})
	}
}

func TestParseCNFNoFinalNewline(t *testing.T) {
	// A clause ends at its 0 marker, even when the file ends right there
	pb, err := ParseCNF(strings.NewReader("p cnf 2 1\n1 2 0"))
	require.NoError(t, err)
	require.Len(t, pb.Clauses, 1)
	assert.Equal(t, 2, pb.Clauses[0].Len())
}

func TestParseCNFDuplicateLiterals(t *testing.T) {
	pb, err := ParseCNF(strings.NewReader("p cnf 6 2\n-6 -3 -6 -6 0\n3 0\n"))
	require.NoError(t, err)
	// The clause dedups to -6 -3, which the unit 3 then reduces to -6
	assert.Equal(t, Sat, pb.Status)
	assert.Contains(t, pb.Units, IntToLit(3))
	assert.Contains(t, pb.Units, IntToLit(-6))
}

func TestParseCNFConflictingUnits(t *testing.T) {
	pb, err := ParseCNF(strings.NewReader("p cnf 1 2\n1 0\n-1 0\n"))
	require.NoError(t, err)
	assert.Equal(t, Unsat, pb.Status)
}

func TestParseSlice(t *testing.T) {
	pb := ParseSlice([][]int{{1, 2, 3}, {-2, 4}, {-3}})
	assert.Equal(t, 4, pb.NbVars)
	assert.Equal(t, Indet, pb.Status)
	assert.Contains(t, pb.Units, IntToLit(-3))
}

func TestParseSliceEmptyClause(t *testing.T) {
	pb := ParseSlice([][]int{{1, 2}, {}})
	assert.Equal(t, Unsat, pb.Status)
}

func TestParseSliceDuplicateLiterals(t *testing.T) {
	pb := ParseSlice([][]int{{1, 1, 2, 3}})
	require.Len(t, pb.Clauses, 1)
	assert.Equal(t, 3, pb.Clauses[0].Len())
	assert.Equal(t, Indet, pb.Status)
}

func TestParseSliceTautology(t *testing.T) {
	pb := ParseSlice([][]int{{1, -1}, {2, 2, -3, 3}})
	assert.Empty(t, pb.Clauses)
	assert.Equal(t, Sat, pb.Status)
}

func TestParseSlicePanicsOnNullLiteral(t *testing.T) {
	assert.Panics(t, func() { ParseSlice([][]int{{1, 0, 2}}) })
	assert.Panics(t, func() { ParseSlice([][]int{{0}}) })
}

func TestProblemCNF(t *testing.T) {
	pb := ParseSlice([][]int{{1, 2, 3}, {-1, 4}})
	out := pb.CNF()
	assert.True(t, strings.HasPrefix(out, "p cnf 4 2\n"))
	assert.Contains(t, out, "1 2 3 0")
	assert.Contains(t, out, "-1 4 0")
}

func TestVerify(t *testing.T) {
	pb := ParseSlice([][]int{{1, 2}, {-1, 3}, {2}})
	assert.True(t, pb.Verify([]bool{true, true, true}))
	assert.True(t, pb.Verify([]bool{false, true, false}))
	assert.False(t, pb.Verify([]bool{true, true, false}), "clause -1 3 is falsified")
	assert.False(t, pb.Verify([]bool{true, false, true}), "unit 2 is falsified")
	assert.False(t, pb.Verify([]bool{true}), "model too short")
}
