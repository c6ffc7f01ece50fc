package solver

import (
	"fmt"
	"strings"
)

// A Problem is an immutable CNF formula: a number of vars and a list of
// clauses. Unit clauses found at parse time are stored apart and
// pre-propagated before search starts.
type Problem struct {
	NbVars  int        // Total nb of vars
	Clauses []*Clause  // List of non-empty, non-unit clauses
	Status  Status     // Can be trivially Unsat (empty clause met or inferred) or Indet
	Units   []Lit      // Unit literals found in the problem
	Model   []decLevel // For each var, its inferred binding: 0 unbound, 1 true, -1 false
}

// CNF returns a DIMACS CNF representation of the problem.
func (pb *Problem) CNF() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "p cnf %d %d\n", pb.NbVars, len(pb.Clauses)+len(pb.Units))
	for _, unit := range pb.Units {
		fmt.Fprintf(&sb, "%d 0\n", unit.Int())
	}
	for _, clause := range pb.Clauses {
		fmt.Fprintf(&sb, "%s\n", clause.CNF())
	}
	return sb.String()
}

// Verify returns true iff the given total or partial model satisfies every
// clause of the problem, units included. Unbound values falsify no clause by
// themselves: a clause with no true literal is a failure even if some of its
// literals are unbound.
func (pb *Problem) Verify(model []bool) bool {
	if len(model) < pb.NbVars {
		return false
	}
	for _, unit := range pb.Units {
		if model[unit.Var()] != unit.IsPositive() {
			return false
		}
	}
	for _, c := range pb.Clauses {
		sat := false
		for i := 0; i < c.Len(); i++ {
			lit := c.Get(i)
			if model[lit.Var()] == lit.IsPositive() {
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

func (pb *Problem) updateStatus(nbClauses int) {
	pb.Clauses = pb.Clauses[:nbClauses]
	if pb.Status == Indet && nbClauses == 0 {
		pb.Status = Sat
	}
}

// simplify runs unit propagation on the problem until fixpoint, removing
// satisfied clauses and falsified literals. It can prove the problem Unsat
// (empty clause derived) or Sat (no clause left).
func (pb *Problem) simplify() {
	nbClauses := len(pb.Clauses)
	i := 0
	for i < nbClauses {
		c := pb.Clauses[i]
		nbLits := c.Len()
		clauseSat := false
		j := 0
		for j < nbLits {
			lit := c.Get(j)
			if pb.Model[lit.Var()] == 0 {
				j++
			} else if (pb.Model[lit.Var()] == 1) == lit.IsPositive() {
				clauseSat = true
				break
			} else {
				nbLits--
				c.Set(j, c.Get(nbLits))
			}
		}
		if clauseSat {
			nbClauses--
			pb.Clauses[i] = pb.Clauses[nbClauses]
		} else if nbLits == 0 {
			pb.Status = Unsat
			return
		} else if nbLits == 1 { // The clause became unit: propagate
			pb.addUnit(c.Get(0))
			if pb.Status == Unsat {
				return
			}
			nbClauses--
			pb.Clauses[i] = pb.Clauses[nbClauses]
			i = 0 // Restart: this unit might have made another clause unit or sat
		} else {
			if c.Len() != nbLits {
				c.Shrink(nbLits)
			}
			i++
		}
	}
	pb.updateStatus(nbClauses)
}

func (pb *Problem) addUnit(lit Lit) {
	v := lit.Var()
	if lit.IsPositive() {
		if pb.Model[v] == -1 {
			pb.Status = Unsat
			return
		}
		pb.Model[v] = 1
	} else {
		if pb.Model[v] == 1 {
			pb.Status = Unsat
			return
		}
		pb.Model[v] = -1
	}
	pb.Units = append(pb.Units, lit)
}
