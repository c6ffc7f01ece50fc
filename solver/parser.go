package solver

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// dedupLits removes duplicate literals from lits, keeping the first
// occurrence of each. It returns nil when lits contains a literal and its
// negation: such a clause is always satisfied and can be dropped.
func dedupLits(lits []Lit) []Lit {
	res := lits[:0]
	for _, l := range lits {
		dup := false
		for _, kept := range res {
			if kept == l.Negation() {
				return nil
			}
			if kept == l {
				dup = true
				break
			}
		}
		if !dup {
			res = append(res, l)
		}
	}
	return res
}

// ParseSlice parses a slice of slices of ints and returns the equivalent
// problem. This is the entry point used by encoders (sudoku, circuit, package
// resolution): each inner slice is a clause, each int a non-zero literal.
// Duplicate literals within a clause are removed and tautological clauses
// dropped.
func ParseSlice(cnf [][]int) *Problem {
	var pb Problem
	for _, line := range cnf {
		switch len(line) {
		case 0:
			pb.Status = Unsat
			return &pb
		case 1:
			if line[0] == 0 {
				panic("null unit clause")
			}
			lit := IntToLit(line[0])
			if v := int(lit.Var()); v >= pb.NbVars {
				pb.NbVars = v + 1
			}
			pb.Units = append(pb.Units, lit)
		default:
			lits := make([]Lit, 0, len(line))
			for _, val := range line {
				if val == 0 {
					panic("null literal in clause")
				}
				lit := IntToLit(val)
				if v := int(lit.Var()); v >= pb.NbVars {
					pb.NbVars = v + 1
				}
				lits = append(lits, lit)
			}
			switch lits = dedupLits(lits); len(lits) {
			case 0: // Tautology
			case 1:
				pb.Units = append(pb.Units, lits[0])
			default:
				pb.Clauses = append(pb.Clauses, NewClause(lits))
			}
		}
	}
	pb.Model = make([]decLevel, pb.NbVars)
	for _, unit := range pb.Units {
		v := unit.Var()
		if pb.Model[v] == 0 {
			if unit.IsPositive() {
				pb.Model[v] = 1
			} else {
				pb.Model[v] = -1
			}
		} else if pb.Model[v] > 0 != unit.IsPositive() {
			pb.Status = Unsat
			return &pb
		}
	}
	pb.simplify()
	return &pb
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// readInt reads an int from r.
// 'b' is the last read byte. It can be a space, a '-' or a digit.
// All spaces before the int value are ignored. Can return EOF.
func readInt(b *byte, r *bufio.Reader) (res int, err error) {
	for err == nil && isSpace(*b) {
		*b, err = r.ReadByte()
	}
	if err == io.EOF {
		return res, io.EOF
	}
	if err != nil {
		return res, errors.Wrap(err, "could not read digit")
	}
	neg := 1
	if *b == '-' {
		neg = -1
		*b, err = r.ReadByte()
		if err != nil {
			return 0, errors.Wrap(err, "cannot read int")
		}
	}
	for err == nil {
		if *b < '0' || *b > '9' {
			return 0, errors.Errorf("cannot read int: %q is not a digit", *b)
		}
		res = 10*res + int(*b-'0')
		*b, err = r.ReadByte()
		if isSpace(*b) {
			break
		}
	}
	if err == io.EOF {
		// The value itself was fully read: EOF surfaces on the next call.
		*b = '\n'
		err = nil
	}
	res *= neg
	return res, err
}

func parseHeader(r *bufio.Reader) (nbVars, nbClauses int, err error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return 0, 0, errors.Wrap(err, "cannot read header")
	}
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "cnf" {
		return 0, 0, errors.Errorf("invalid syntax %q in header", "p "+strings.TrimSpace(line))
	}
	nbVars, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, errors.Errorf("nbvars is not an int: %q", fields[1])
	}
	nbClauses, err = strconv.Atoi(fields[2])
	if err != nil {
		return 0, 0, errors.Errorf("nbclauses is not an int: %q", fields[2])
	}
	return nbVars, nbClauses, nil
}

// ParseCNF parses DIMACS CNF content and returns the corresponding Problem.
// Malformed content (missing "p cnf" header, non-integer token, literal out
// of the declared range) is reported as an error; no partial problem is
// returned in that case.
func ParseCNF(f io.Reader) (*Problem, error) {
	r := bufio.NewReader(f)
	var pb Problem
	sawHeader := false
	b, err := r.ReadByte()
	for err == nil {
		if b == 'c' { // Ignore comment
			b, err = r.ReadByte()
			for err == nil && b != '\n' {
				b, err = r.ReadByte()
			}
		} else if b == 'p' { // Parse header
			var nbClauses int
			pb.NbVars, nbClauses, err = parseHeader(r)
			if err != nil {
				return nil, errors.Wrap(err, "cannot parse CNF header")
			}
			pb.Model = make([]decLevel, pb.NbVars)
			pb.Clauses = make([]*Clause, 0, nbClauses)
			sawHeader = true
		} else if isSpace(b) {
			// Skip blank lines
		} else {
			if !sawHeader {
				return nil, errors.New("clause found before \"p cnf\" header")
			}
			lits := make([]Lit, 0, 3)
			for {
				val, err := readInt(&b, r)
				if err == io.EOF {
					if len(lits) != 0 {
						return nil, errors.New("unfinished clause while EOF found")
					}
					break // Trailing spaces at the end of the file are fine
				}
				if err != nil {
					return nil, errors.Wrap(err, "cannot parse clause")
				}
				if val == 0 { // End-of-clause marker, never a literal
					if len(lits) == 0 {
						pb.Status = Unsat
						break
					}
					switch lits = dedupLits(lits); len(lits) {
					case 0: // Tautology
					case 1:
						pb.addUnit(lits[0])
					default:
						pb.Clauses = append(pb.Clauses, NewClause(lits))
					}
					break
				}
				if val > pb.NbVars || -val > pb.NbVars {
					return nil, errors.Errorf("invalid literal %d for problem with %d vars only", val, pb.NbVars)
				}
				lits = append(lits, IntToLit(val))
			}
		}
		b, err = r.ReadByte()
	}
	if err != io.EOF {
		return nil, err
	}
	if !sawHeader {
		return nil, errors.New("no \"p cnf\" header found")
	}
	if pb.Status != Unsat {
		pb.simplify()
	}
	return &pb, nil
}
