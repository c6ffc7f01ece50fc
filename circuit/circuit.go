// Package circuit builds combinational boolean circuits, translates them to
// CNF through the Tseitin transformation and checks circuit equivalence by
// solving a miter: two circuits are equivalent iff the formula stating that
// their outputs differ on some shared input is unsatisfiable.
package circuit

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/varasat/varasat/solver"
)

// A Wire is the output of a gate or a primary input of a circuit.
type Wire int

type gateKind int

const (
	inputGate gateKind = iota
	notGate
	andGate
	orGate
	xorGate
	nandGate
)

type gate struct {
	kind gateKind
	a, b Wire
	name string // Only set for inputs
}

// A Circuit is a combinational circuit under construction. Build it with
// Input and the gate methods, then mark its output with SetOutput.
type Circuit struct {
	gates     []gate
	inputs    map[string]Wire
	output    Wire
	outputSet bool
}

// New returns an empty circuit.
func New() *Circuit {
	return &Circuit{inputs: make(map[string]Wire)}
}

// Input returns the wire of the named primary input, creating it on first
// use. Calling Input twice with the same name returns the same wire.
func (c *Circuit) Input(name string) Wire {
	if w, ok := c.inputs[name]; ok {
		return w
	}
	w := c.add(gate{kind: inputGate, name: name})
	c.inputs[name] = w
	return w
}

func (c *Circuit) add(g gate) Wire {
	c.gates = append(c.gates, g)
	return Wire(len(c.gates) - 1)
}

// Not returns a wire carrying the negation of a.
func (c *Circuit) Not(a Wire) Wire { return c.add(gate{kind: notGate, a: a}) }

// And returns a wire carrying the conjunction of a and b.
func (c *Circuit) And(a, b Wire) Wire { return c.add(gate{kind: andGate, a: a, b: b}) }

// Or returns a wire carrying the disjunction of a and b.
func (c *Circuit) Or(a, b Wire) Wire { return c.add(gate{kind: orGate, a: a, b: b}) }

// Xor returns a wire carrying the exclusive disjunction of a and b.
func (c *Circuit) Xor(a, b Wire) Wire { return c.add(gate{kind: xorGate, a: a, b: b}) }

// Nand returns a wire carrying the negated conjunction of a and b.
func (c *Circuit) Nand(a, b Wire) Wire { return c.add(gate{kind: nandGate, a: a, b: b}) }

// SetOutput marks w as the primary output of the circuit.
func (c *Circuit) SetOutput(w Wire) {
	c.output = w
	c.outputSet = true
}

// InputNames returns the names of the primary inputs, sorted.
func (c *Circuit) InputNames() []string {
	names := lo.Keys(c.inputs)
	sort.Strings(names)
	return names
}

// tseitin appends the clauses defining the given gate, with y the CNF
// variable of its output and a, b those of its operands.
func tseitin(cnf [][]int, kind gateKind, y, a, b int) [][]int {
	switch kind {
	case notGate:
		return append(cnf, []int{y, a}, []int{-y, -a})
	case andGate:
		return append(cnf, []int{-y, a}, []int{-y, b}, []int{y, -a, -b})
	case orGate:
		return append(cnf, []int{y, -a}, []int{y, -b}, []int{-y, a, b})
	case xorGate:
		return append(cnf, []int{-y, a, b}, []int{-y, -a, -b}, []int{y, -a, b}, []int{y, a, -b})
	case nandGate:
		return append(cnf, []int{y, a}, []int{y, b}, []int{-y, -a, -b})
	default:
		panic("unknown gate kind")
	}
}

// encode appends the Tseitin clauses of every gate of the circuit, mapping
// each wire to a CNF variable through varOf.
func (c *Circuit) encode(cnf [][]int, varOf func(Wire) int) [][]int {
	for i, g := range c.gates {
		if g.kind == inputGate {
			continue
		}
		cnf = tseitin(cnf, g.kind, varOf(Wire(i)), varOf(g.a), varOf(g.b))
	}
	return cnf
}

// CNF returns the Tseitin encoding of the circuit along with the CNF
// variable carrying its output. The formula constrains nothing about the
// output: callers typically add a unit clause over the returned variable.
func (c *Circuit) CNF() (cnf [][]int, outVar int, err error) {
	if !c.outputSet {
		return nil, 0, errors.New("circuit has no output")
	}
	varOf := func(w Wire) int { return int(w) + 1 }
	return c.encode(nil, varOf), varOf(c.output), nil
}

// Satisfiable reports whether some input assignment makes the circuit
// output true, and returns one if so.
func (c *Circuit) Satisfiable() (bool, map[string]bool, error) {
	cnf, outVar, err := c.CNF()
	if err != nil {
		return false, nil, err
	}
	cnf = append(cnf, []int{outVar})
	s := solver.New(solver.ParseSlice(cnf))
	if s.Solve() != solver.Sat {
		return false, nil, nil
	}
	return true, c.inputValues(s.Model(), func(w Wire) int { return int(w) + 1 }), nil
}

func (c *Circuit) inputValues(model []bool, varOf func(Wire) int) map[string]bool {
	values := make(map[string]bool, len(c.inputs))
	for name, w := range c.inputs {
		// An input feeding no gate appears in no clause, so the model may
		// not cover its variable. Any value works for it.
		if v := varOf(w) - 1; v < len(model) {
			values[name] = model[v]
		} else {
			values[name] = false
		}
	}
	return values
}

// Eval simulates the circuit under the given input values. It panics if an
// input name is missing or the output was not set.
func (c *Circuit) Eval(inputs map[string]bool) bool {
	values := make([]bool, len(c.gates))
	for i, g := range c.gates {
		switch g.kind {
		case inputGate:
			val, ok := inputs[g.name]
			if !ok {
				panic("missing value for input " + g.name)
			}
			values[i] = val
		case notGate:
			values[i] = !values[g.a]
		case andGate:
			values[i] = values[g.a] && values[g.b]
		case orGate:
			values[i] = values[g.a] || values[g.b]
		case xorGate:
			values[i] = values[g.a] != values[g.b]
		case nandGate:
			values[i] = !(values[g.a] && values[g.b])
		}
	}
	if !c.outputSet {
		panic("circuit has no output")
	}
	return values[c.output]
}

// Equivalent reports whether the two circuits compute the same function of
// their shared inputs. When they differ, a counterexample input assignment
// is returned. The circuits must have the same set of input names.
func Equivalent(c1, c2 *Circuit) (bool, map[string]bool, error) {
	return EquivalentContext(context.Background(), c1, c2)
}

// EquivalentContext behaves like Equivalent and additionally stops with an
// error when ctx expires or is cancelled.
func EquivalentContext(ctx context.Context, c1, c2 *Circuit) (bool, map[string]bool, error) {
	if !c1.outputSet || !c2.outputSet {
		return false, nil, errors.New("both circuits need an output")
	}
	names1, names2 := c1.InputNames(), c2.InputNames()
	if only1, only2 := lo.Difference(names1, names2); len(only1) != 0 || len(only2) != 0 {
		return false, nil, errors.Errorf("input sets differ: %v vs %v", names1, names2)
	}
	// The first circuit keeps its own variables; the second reuses the
	// variables of the shared inputs and shifts everything else.
	varOf1 := func(w Wire) int { return int(w) + 1 }
	offset := len(c1.gates)
	varOf2 := func(w Wire) int {
		if g := c2.gates[w]; g.kind == inputGate {
			return varOf1(c1.inputs[g.name])
		}
		return offset + int(w) + 1
	}
	cnf := c1.encode(nil, varOf1)
	cnf = c2.encode(cnf, varOf2)
	// Miter: the outputs differ
	miter := offset + len(c2.gates) + 1
	cnf = tseitin(cnf, xorGate, miter, varOf1(c1.output), varOf2(c2.output))
	cnf = append(cnf, []int{miter})
	s := solver.New(solver.ParseSlice(cnf))
	switch status := s.SolveContext(ctx); status {
	case solver.Unsat:
		return true, nil, nil
	case solver.Sat:
		return false, c1.inputValues(s.Model(), varOf1), nil
	default:
		return false, nil, errors.Wrap(ctx.Err(), "equivalence check interrupted")
	}
}
