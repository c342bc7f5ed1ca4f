package grammar

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/leapstack-labs/querysmith/pkg/schema"
)

// NamedRel is a relation visible under an alias: a base table bound in
// a FROM clause, or a derived table.
type NamedRel interface {
	RelExpr
	Name() string
}

// state is the per-statement build context shared by every scope frame:
// the seeded RNG, the alias counter, and the depth budget.
type state struct {
	rng      *rand.Rand
	maxDepth int
	aliases  int
}

func (st *state) coin() bool    { return st.rng.Intn(2) == 0 }
func (st *state) d6() int       { return st.rng.Intn(6) + 1 }
func (st *state) d9() int       { return st.rng.Intn(9) + 1 }
func (st *state) d100() int     { return st.rng.Intn(100) + 1 }
func (st *state) pick(n int) int { return st.rng.Intn(n) }

// Scope is the stack of visible bindings at one point of the tree
// under construction. Entering a child frame copies the binding slice,
// so a half-built subquery that is abandoned can never corrupt its
// parent's bindings; the child simply goes out of (Go) scope.
type Scope struct {
	parent *Scope
	schema *schema.Schema
	level  int
	refs   []NamedRel
	frame  int // index into refs where this frame's own bindings start
	st     *state
}

// NewScope seeds a top-level scope from a loaded schema. The base
// tables become the catalog the grammar draws FROM sources out of.
func NewScope(sch *schema.Schema, rng *rand.Rand, maxDepth int) *Scope {
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &Scope{
		schema: sch,
		st:     &state{rng: rng, maxDepth: maxDepth},
	}
}

// Schema exposes the enclosing read-only schema.
func (s *Scope) Schema() *schema.Schema { return s.schema }

// Level is the nesting depth of this frame.
func (s *Scope) Level() int { return s.level }

// Enter pushes a child frame. The child sees the parent's bindings but
// owns its own slice; nothing it binds leaks outward.
func (s *Scope) Enter() *Scope {
	return &Scope{
		parent: s,
		schema: s.schema,
		level:  s.level + 1,
		refs:   append(make([]NamedRel, 0, len(s.refs)+2), s.refs...),
		frame:  len(s.refs),
		st:     s.st,
	}
}

// Bind makes rel visible under its alias in the current frame. Alias
// collisions within one frame are rejected.
func (s *Scope) Bind(rel NamedRel) error {
	for _, r := range s.refs[s.frame:] {
		if r.Name() == rel.Name() {
			return fmt.Errorf("grammar: alias %q already bound in this scope", rel.Name())
		}
	}
	s.refs = append(s.refs, rel)
	return nil
}

// Name generates a fresh alias, unique across the whole statement.
func (s *Scope) Name(prefix string) string {
	s.st.aliases++
	return fmt.Sprintf("%s_%d", prefix, s.st.aliases)
}

// Refs returns the visible binding chain, innermost frame last.
func (s *Scope) Refs() []NamedRel { return s.refs }

// ResolveColumn picks a visible column compatible with want, scanning
// the active binding chain. An optional alias filter restricts the pick
// to the named relations, for slots that must reference one specific
// binding. Fails with ErrNoCandidate when nothing matches; callers
// treat that as "this subtree cannot be built here".
func (s *Scope) ResolveColumn(want schema.Type, aliases ...string) (*ColRef, error) {
	type cand struct {
		rel NamedRel
		col schema.Column
	}
	var candidates []cand
	for _, rel := range s.refs {
		if len(aliases) > 0 && !slices.Contains(aliases, rel.Name()) {
			continue
		}
		for _, col := range rel.Cols() {
			if col.Type.CompatibleWith(want) {
				candidates = append(candidates, cand{rel, col})
			}
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidate
	}
	c := candidates[s.st.pick(len(candidates))]
	return &ColRef{
		node: node{depth: s.level},
		Qual: c.rel.Name(),
		Col:  c.col,
	}, nil
}

// deepen decides whether a depth-increasing alternative is eligible
// here. The chance decays linearly toward zero as the level approaches
// the budget; at or past the budget only terminals remain.
func (s *Scope) deepen() bool {
	if s.level >= s.st.maxDepth {
		return false
	}
	return s.st.rng.Intn(s.st.maxDepth+1) > s.level
}
