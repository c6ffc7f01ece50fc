package solver

import (
	"fmt"
	"strings"
)

// A Clause is a disjunction of literals, possibly learned during search.
// Learned clauses carry an LBD value and an activity used by the deletion
// policy.
type Clause struct {
	lits []Lit
	// meta's bits are as follow:
	// leftmost bit: learned flag.
	// second bit: locked flag (the clause is the reason of a propagation).
	// last 30 bits: LBD value (learned clauses only).
	meta     uint32
	activity float32
}

const (
	learnedMask uint32 = 1 << 31
	lockedMask  uint32 = 1 << 30
	bothMasks   uint32 = learnedMask | lockedMask
)

// NewClause returns a clause whose lits are given as an argument.
func NewClause(lits []Lit) *Clause {
	return &Clause{lits: lits}
}

// NewLearnedClause returns a new clause marked as learned.
func NewLearnedClause(lits []Lit) *Clause {
	return &Clause{lits: lits, meta: learnedMask}
}

// Learned returns true iff c was learned during conflict analysis.
func (c *Clause) Learned() bool {
	return c.meta&learnedMask == learnedMask
}

func (c *Clause) lock() {
	c.meta |= lockedMask
}

func (c *Clause) unlock() {
	c.meta &= ^lockedMask
}

// isLocked is true iff c is currently the reason of a propagation.
// Locked clauses must not be deleted.
func (c *Clause) isLocked() bool {
	return c.meta&bothMasks == bothMasks
}

func (c *Clause) lbd() int {
	return int(c.meta & ^bothMasks)
}

func (c *Clause) setLbd(lbd int) {
	c.meta = (c.meta & bothMasks) | uint32(lbd)
}

func (c *Clause) incLbd() {
	c.meta++
}

// Len returns the nb of lits in the clause.
func (c *Clause) Len() int {
	return len(c.lits)
}

// First returns the first lit from the clause.
func (c *Clause) First() Lit {
	return c.lits[0]
}

// Second returns the second lit from the clause.
func (c *Clause) Second() Lit {
	return c.lits[1]
}

// Get returns the ith literal from the clause.
func (c *Clause) Get(i int) Lit {
	return c.lits[i]
}

// Set sets the ith literal of the clause.
func (c *Clause) Set(i int, l Lit) {
	c.lits[i] = l
}

// swap swaps the ith and jth lits from the clause.
func (c *Clause) swap(i, j int) {
	c.lits[i], c.lits[j] = c.lits[j], c.lits[i]
}

// Shrink reduces the length of the clause, by removing all lits
// starting from position newLen.
func (c *Clause) Shrink(newLen int) {
	c.lits = c.lits[:newLen]
}

// CNF returns a DIMACS CNF representation of the clause.
func (c *Clause) CNF() string {
	var sb strings.Builder
	for _, lit := range c.lits {
		fmt.Fprintf(&sb, "%d ", lit.Int())
	}
	sb.WriteByte('0')
	return sb.String()
}
