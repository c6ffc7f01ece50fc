package solver

import "sort"

// The two-watched-literal index. Each clause of length >= 2 is watched by
// exactly two of its literals; binary clauses get a dedicated, lighter list.
// Invariant outside a propagation step: the two watched literals of a clause
// are never both false, unless a conflict was just detected.

type watcher struct {
	other  Lit // The other watched lit from the clause
	clause *Clause
}

// A watcherList stores clauses and their watches, for both the original
// problem clauses and the learned ones.
type watcherList struct {
	nbMax    int         // Max # of learned clauses before a reduction is triggered
	wlistBin [][]watcher // For each literal, the binary clauses where its negation appears
	wlist    [][]*Clause // For each literal, the non-binary clauses where its negation is watched
	original []*Clause   // Clauses from the problem
	learned  []*Clause   // Learned clauses, in insertion order
}

// initWatcherList makes a new watcherList for the solver.
func (s *Solver) initWatcherList(clauses []*Clause) {
	s.wl = watcherList{
		nbMax:    s.MaxLearned,
		wlistBin: make([][]watcher, s.nbVars*2),
		wlist:    make([][]*Clause, s.nbVars*2),
		original: clauses,
	}
	for _, c := range clauses {
		s.watchClause(c)
	}
}

// Watches the provided clause. The clause must have at least 2 literals.
func (s *Solver) watchClause(c *Clause) {
	if c.Len() == 2 {
		first := c.First()
		second := c.Second()
		neg0 := first.Negation()
		neg1 := second.Negation()
		s.wl.wlistBin[neg0] = append(s.wl.wlistBin[neg0], watcher{clause: c, other: second})
		s.wl.wlistBin[neg1] = append(s.wl.wlistBin[neg1], watcher{clause: c, other: first})
	} else {
		neg0 := c.First().Negation()
		neg1 := c.Second().Negation()
		s.wl.wlist[neg0] = append(s.wl.wlist[neg0], c)
		s.wl.wlist[neg1] = append(s.wl.wlist[neg1], c)
	}
}

// unwatchClause removes the watches of a deleted learned clause.
// Learned clauses of length 2 are never deleted, so only wlist is involved.
func (s *Solver) unwatchClause(c *Clause) {
	for i := 0; i < 2; i++ {
		neg := c.Get(i).Negation()
		j := 0
		length := len(s.wl.wlist[neg])
		// Looking for the index of the clause. This will panic if c is not
		// in wlist[neg], but that cannot happen unless watches were corrupted.
		for s.wl.wlist[neg][j] != c {
			j++
		}
		s.wl.wlist[neg][j] = s.wl.wlist[neg][length-1]
		s.wl.wlist[neg] = s.wl.wlist[neg][:length-1]
	}
}

// reduceLearned deletes about half of the learned clauses, keeping the ones
// deemed useful: locked clauses (currently the reason of a propagation),
// binary clauses and clauses of LBD <= 2 always survive.
func (s *Solver) reduceLearned() {
	learned := s.wl.learned
	sort.Slice(learned, func(i, j int) bool {
		if learned[i].lbd() != learned[j].lbd() {
			return learned[i].lbd() > learned[j].lbd()
		}
		return learned[i].activity < learned[j].activity
	})
	length := len(learned) / 2
	nbRemoved := 0
	for i := 0; i < length; i++ {
		c := learned[i]
		if c.lbd() <= 2 || c.Len() == 2 || c.isLocked() {
			continue
		}
		nbRemoved++
		s.Stats.NbDeleted++
		learned[i] = learned[len(learned)-nbRemoved]
		s.unwatchClause(c)
	}
	s.wl.learned = learned[:len(learned)-nbRemoved]
}

// addLearned appends a learned clause and updates the watches.
func (s *Solver) addLearned(c *Clause) {
	s.wl.learned = append(s.wl.learned, c)
	s.watchClause(c)
	s.clauseBumpActivity(c)
}

// If l is negative, -lvl is returned. Else, lvl is returned.
func lvlToSignedLvl(l Lit, lvl decLevel) decLevel {
	if l.IsPositive() {
		return lvl
	}
	return -lvl
}

// Removes the first occurrence of c from lst.
// The element *must* be present in lst.
func removeFrom(lst []*Clause, c *Clause) []*Clause {
	i := 0
	for lst[i] != c {
		i++
	}
	last := len(lst) - 1
	lst[i] = lst[last]
	return lst[:last]
}

// unifyLiteral assigns the given literal at the given level, propagates all
// consequences, and returns a conflict clause, or nil if no conflict arose.
// Every propagated assignment is appended to the trail with its reason
// clause, so that conflict analysis can walk the implication graph backward.
func (s *Solver) unifyLiteral(lit Lit, lvl decLevel) *Clause {
	s.model[lit.Var()] = lvlToSignedLvl(lit, lvl)
	ptr := len(s.trail)
	s.trail = append(s.trail, lit)
	for ptr < len(s.trail) {
		lit := s.trail[ptr]
		for _, w := range s.wl.wlistBin[lit] {
			v2 := w.other.Var()
			if assign := s.model[v2]; assign == 0 { // Other was unbound: propagate
				s.reason[v2] = w.clause
				w.clause.lock()
				s.model[v2] = lvlToSignedLvl(w.other, lvl)
				s.trail = append(s.trail, w.other)
				s.Stats.NbUnitProps++
			} else if (assign > 0) != w.other.IsPositive() { // Conflict
				return w.clause
			}
		}
		for _, c := range s.wl.wlist[lit] {
			switch res, unit := s.simplifyClause(c); res {
			case Unsat: // All lits are false: conflict
				return c
			case Unit:
				v := unit.Var()
				s.reason[v] = c
				c.lock()
				s.model[v] = lvlToSignedLvl(unit, lvl)
				s.trail = append(s.trail, unit)
				s.Stats.NbUnitProps++
			}
		}
		ptr++
	}
	return nil
}

// simplifyClause inspects the given clause under the current bindings.
// If two lits are free, the watches are moved so that both watched positions
// hold free lits, and Many is returned. If the clause is satisfied, Sat is
// returned. If exactly one lit is free, Unit is returned along with that lit.
// Otherwise all lits are false and Unsat is returned.
func (s *Solver) simplifyClause(clause *Clause) (Status, Lit) {
	var freeIdx int // Index of the first free lit found, if any
	found := false
	length := clause.Len()
	for i := 0; i < length; i++ {
		lit := clause.Get(i)
		if assign := s.model[lit.Var()]; assign == 0 {
			if found {
				// 2 lits are known to be free: rearrange watches and stop
				switch freeIdx {
				case 0: // clause[0] keeps its watch, clause[1] does not
					n1 := &s.wl.wlist[clause.Second().Negation()]
					nf1 := &s.wl.wlist[clause.Get(i).Negation()]
					clause.swap(i, 1)
					*n1 = removeFrom(*n1, clause)
					*nf1 = append(*nf1, clause)
				case 1: // clause[1] keeps its watch, clause[0] does not
					n0 := &s.wl.wlist[clause.First().Negation()]
					nf1 := &s.wl.wlist[clause.Get(i).Negation()]
					clause.swap(i, 0)
					*n0 = removeFrom(*n0, clause)
					*nf1 = append(*nf1, clause)
				default: // Both watches move
					n0 := &s.wl.wlist[clause.First().Negation()]
					n1 := &s.wl.wlist[clause.Second().Negation()]
					nf0 := &s.wl.wlist[clause.Get(freeIdx).Negation()]
					nf1 := &s.wl.wlist[clause.Get(i).Negation()]
					clause.swap(freeIdx, 0)
					clause.swap(i, 1)
					*n0 = removeFrom(*n0, clause)
					*n1 = removeFrom(*n1, clause)
					*nf0 = append(*nf0, clause)
					*nf1 = append(*nf1, clause)
				}
				return Many, -1
			}
			freeIdx = i
			found = true
		} else if (assign > 0) == lit.IsPositive() {
			return Sat, -1
		}
	}
	if !found {
		return Unsat, -1
	}
	if freeIdx >= 2 {
		// Move the last free lit into a watched position: once it is
		// propagated, one watched lit of the clause is true again.
		n0 := &s.wl.wlist[clause.First().Negation()]
		nf := &s.wl.wlist[clause.Get(freeIdx).Negation()]
		clause.swap(freeIdx, 0)
		*n0 = removeFrom(*n0, clause)
		*nf = append(*nf, clause)
		freeIdx = 0
	}
	return Unit, clause.Get(freeIdx)
}
