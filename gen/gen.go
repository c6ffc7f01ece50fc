// Package gen generates CNF instances of classic SAT problem families,
// mostly for testing and benchmarking solvers.
package gen

import "math/rand"

// Pigeonhole returns the clauses stating that nbPigeons pigeons fit into
// nbHoles holes, each hole holding at most one pigeon. The formula is
// unsatisfiable iff nbPigeons > nbHoles.
func Pigeonhole(nbPigeons, nbHoles int) [][]int {
	v := func(pigeon, hole int) int { return pigeon*nbHoles + hole + 1 }
	cnf := make([][]int, 0, nbPigeons+nbHoles*nbPigeons*(nbPigeons-1)/2)
	for p := 0; p < nbPigeons; p++ {
		clause := make([]int, nbHoles)
		for h := 0; h < nbHoles; h++ {
			clause[h] = v(p, h)
		}
		cnf = append(cnf, clause)
	}
	for h := 0; h < nbHoles; h++ {
		for p1 := 0; p1 < nbPigeons; p1++ {
			for p2 := p1 + 1; p2 < nbPigeons; p2++ {
				cnf = append(cnf, []int{-v(p1, h), -v(p2, h)})
			}
		}
	}
	return cnf
}

// RandomKCNF returns a uniform random k-CNF instance over nbVars variables.
// Each clause holds k distinct variables, each negated with probability 1/2.
// The caller controls reproducibility through r.
func RandomKCNF(r *rand.Rand, k, nbVars, nbClauses int) [][]int {
	if k > nbVars {
		panic("cannot draw k distinct vars out of fewer than k")
	}
	cnf := make([][]int, nbClauses)
	for i := range cnf {
		clause := make([]int, 0, k)
		used := make(map[int]bool, k)
		for len(clause) < k {
			v := r.Intn(nbVars) + 1
			if used[v] {
				continue
			}
			used[v] = true
			if r.Intn(2) == 0 {
				v = -v
			}
			clause = append(clause, v)
		}
		cnf[i] = clause
	}
	return cnf
}

// HiddenModelKCNF returns a satisfiable random k-CNF instance: a model is
// drawn first and every clause is forced to contain at least one literal
// true under it. The hidden model is returned along with the clauses.
func HiddenModelKCNF(r *rand.Rand, k, nbVars, nbClauses int) (cnf [][]int, model []bool) {
	model = make([]bool, nbVars)
	for v := range model {
		model[v] = r.Intn(2) == 1
	}
	cnf = make([][]int, nbClauses)
	for i := range cnf {
		clause := make([]int, k)
		for j := range clause {
			v := r.Intn(nbVars)
			lit := v + 1
			if !model[v] {
				lit = -lit
			}
			if j > 0 && r.Intn(2) == 0 {
				lit = -lit
			}
			clause[j] = lit
		}
		cnf[i] = clause
	}
	return cnf, model
}
