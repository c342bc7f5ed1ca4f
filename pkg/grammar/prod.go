// Package grammar is the production engine: a closed family of AST node
// kinds that know how to randomly construct themselves against a Scope
// and render themselves back to SQL text. Construction is recursive
// descent with a depth budget and backtracking; rendering is a pure
// traversal of the already-built tree.
package grammar

import (
	"errors"
	"strings"

	"github.com/leapstack-labs/querysmith/pkg/schema"
)

// ErrNoCandidate signals that a production cannot be built in the
// current scope (no column of the required type, no eligible table).
// It is always recovered inside the engine by retrying an alternative
// or degrading to a literal; it never escapes the Factory.
var ErrNoCandidate = errors.New("grammar: no candidate in scope")

// retryCount bounds how often a node re-rolls its alternatives before
// degrading to a guaranteed-constructible terminal.
const retryCount = 20

// Prod is one node of a generated statement tree. Nodes own their
// children exclusively; the tree has no sharing and no cycles.
type Prod interface {
	// Render appends the node's exact SQL text. It is deterministic:
	// no randomness, no side effects, byte-identical on repeat calls.
	Render(b *strings.Builder)

	// Depth is the recursion depth the node was created at.
	Depth() int

	// Children returns the direct child nodes, render order.
	Children() []Prod
}

// Expr is a production with a value type the grammar advertises.
type Expr interface {
	Prod
	Type() schema.Type
}

// RelExpr is a production producing rows: a table reference, join,
// select, values list, or set operation.
type RelExpr interface {
	Prod
	Cols() []schema.Column
}

// SQL renders a production tree to its textual SQL form.
func SQL(p Prod) string {
	var b strings.Builder
	p.Render(&b)
	return b.String()
}

// Walk visits p and every node below it, parents first.
func Walk(p Prod, fn func(Prod)) {
	fn(p)
	for _, c := range p.Children() {
		Walk(c, fn)
	}
}

// node carries the creation depth shared by all productions.
type node struct {
	depth int
}

func (n node) Depth() int { return n.depth }

func renderList[T Prod](b *strings.Builder, items []T, sep string) {
	for i, it := range items {
		if i > 0 {
			b.WriteString(sep)
		}
		it.Render(b)
	}
}

func childList[T Prod](items []T) []Prod {
	out := make([]Prod, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
