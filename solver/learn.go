package solver

import "sort"

// Conflict analysis: derivation of a learned clause from a conflicting one,
// following the first-UIP scheme.

// computeLbd computes and sets c's LBD (Literal Block Distance), i.e the
// number of distinct decision levels appearing in the clause. The clause
// lits must be sorted by decreasing decision level.
func (c *Clause) computeLbd(model []decLevel) {
	c.setLbd(1)
	curLvl := abs(model[c.Get(0).Var()])
	for i := 1; i < c.Len(); i++ {
		if lvl := abs(model[c.Get(i).Var()]); lvl != curLvl {
			curLvl = lvl
			c.incLbd()
		}
	}
}

// sortLiterals sorts lits by decreasing decision level, so that lits[0] is
// the asserting literal and lits[1] is bound at the backjump level.
func sortLiterals(lits []Lit, model []decLevel) {
	sort.Slice(lits, func(i, j int) bool {
		return abs(model[lits[i].Var()]) > abs(model[lits[j].Var()])
	})
}

// learnClause analyzes the conflict and returns either:
// the learned clause itself, if its length is at least 2,
// or a nil clause and a unit literal, if its length is exactly 1.
// The learned clause contains exactly one literal bound at the current
// decision level (the first UIP), negated; all its other literals are bound
// at strictly lower levels, so the clause is asserting after the backjump.
func (s *Solver) learnClause(confl *Clause, lvl decLevel) (learned *Clause, unit Lit) {
	s.clauseBumpActivity(confl)
	lits := s.bufLits[:1]           // Not 0: make room for the asserting literal
	buf := make([]bool, s.nbVars*2) // Single alloc for met and metLvl
	met := buf[:s.nbVars]           // Vars already part of the resolution
	metLvl := buf[s.nbVars:]        // Vars from the current level left to resolve
	nbLvl := 0                      // How many vars from the current level are in the working clause
	for i := 0; i < confl.Len(); i++ {
		l := confl.Get(i)
		v := l.Var()
		met[v] = true
		s.varBumpActivity(v)
		if abs(s.model[v]) == lvl {
			metLvl[v] = true
			nbLvl++
		} else if abs(s.model[v]) != 1 {
			lits = append(lits, l)
		}
	}
	ptr := len(s.trail) - 1
	for nbLvl > 1 { // Resolve until a single current-level lit remains: the first UIP
		for !metLvl[s.trail[ptr].Var()] {
			if abs(s.model[s.trail[ptr].Var()]) == lvl { // Deduced later, not part of the conflict
				met[s.trail[ptr].Var()] = true
			}
			ptr--
		}
		v := s.trail[ptr].Var()
		ptr--
		nbLvl--
		// A nil reason means v was a decision: it contributes no antecedent
		// and simply drops out of the working clause.
		if reason := s.reason[v]; reason != nil {
			s.clauseBumpActivity(reason)
			for i := 0; i < reason.Len(); i++ {
				lit := reason.Get(i)
				if v2 := lit.Var(); !met[v2] && v2 != v {
					met[v2] = true
					s.varBumpActivity(v2)
					if abs(s.model[v2]) == lvl {
						metLvl[v2] = true
						nbLvl++
					} else if abs(s.model[v2]) != 1 {
						lits = append(lits, lit)
					}
				}
			}
		}
	}
	for _, l := range s.trail { // The earliest metLvl var is the UIP: assert its negation
		if metLvl[l.Var()] {
			lits[0] = l.Negation()
			break
		}
	}
	s.varDecayActivity()
	s.clauseDecayActivity()
	sortLiterals(lits, s.model)
	sz := s.minimizeLearned(met, lits)
	if sz == 1 {
		return nil, lits[0]
	}
	litsCopy := make([]Lit, sz)
	copy(litsCopy, lits[:sz])
	learned = NewLearnedClause(litsCopy)
	learned.computeLbd(s.model)
	return learned, -1
}

// minimizeLearned removes redundant literals from the learned clause: a lit
// whose reason clause only contains already-met vars (or top-level bindings)
// is implied by the rest of the clause. Returns the new length.
func (s *Solver) minimizeLearned(met []bool, learned []Lit) int {
	sz := 1
	for i := 1; i < len(learned); i++ {
		if reason := s.reason[learned[i].Var()]; reason == nil {
			learned[sz] = learned[i]
			sz++
		} else {
			for k := 0; k < reason.Len(); k++ {
				lit := reason.Get(k)
				if !met[lit.Var()] && abs(s.model[lit.Var()]) > 1 {
					learned[sz] = learned[i]
					sz++
					break
				}
			}
		}
	}
	return sz
}
