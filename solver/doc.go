// Package solver provides a CDCL SAT solver for problems in CNF.
//
// The solver reads problems in the DIMACS CNF format (see ParseCNF) or
// directly from slices of integers (see ParseSlice), and decides their
// satisfiability through conflict-driven clause learning: unit propagation
// over two watched literals, first-UIP conflict analysis, non-chronological
// backjumping, VSIDS-style activity heuristics with phase saving, geometric
// restarts and activity/LBD-based deletion of learned clauses.
//
// Typical use:
//
//	pb, err := solver.ParseCNF(f)
//	if err != nil {
//	    return err
//	}
//	s := solver.New(pb)
//	if s.Solve() == solver.Sat {
//	    model := s.Model()
//	    // ...
//	}
package solver
