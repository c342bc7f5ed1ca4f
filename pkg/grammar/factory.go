package grammar

import (
	"math/rand"
	"time"

	"github.com/leapstack-labs/querysmith/pkg/schema"
)

// Weights control how often each top-level statement kind is picked.
// A zero weight disables the kind.
type Weights struct {
	Select int
	Insert int
	Update int
	Delete int
}

// DefaultWeights lean heavily on queries: reads exercise far more of an
// engine than writes do.
var DefaultWeights = Weights{Select: 7, Insert: 2, Update: 1, Delete: 1}

func (w Weights) total() int { return w.Select + w.Insert + w.Update + w.Delete }

// Options configure a Factory. A zero Seed means "seed from the clock";
// a zero MaxDepth means DefaultMaxDepth, and a negative MaxDepth leaves
// only terminal expressions eligible.
type Options struct {
	Seed     int64
	MaxDepth int
	Weights  Weights
}

// DefaultMaxDepth bounds recursion when the caller does not say.
const DefaultMaxDepth = 8

// Factory is the sole entry point of the production engine: it builds
// one complete top-level statement per call against a fixed schema.
// It is not safe for concurrent use; run one Factory per target.
type Factory struct {
	schema  *schema.Schema
	rng     *rand.Rand
	depth   int
	weights Weights
}

// New creates a Factory over a loaded schema.
func New(sch *schema.Schema, opts Options) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	depth := opts.MaxDepth
	if depth == 0 {
		depth = DefaultMaxDepth
	}
	if depth < 0 {
		depth = 0
	}
	w := opts.Weights
	if w.total() == 0 {
		w = DefaultWeights
	}
	return &Factory{
		schema:  sch,
		rng:     rand.New(rand.NewSource(seed)),
		depth:   depth,
		weights: w,
	}
}

// Build constructs one statement. It never fails: statement kinds that
// cannot be built against this schema (e.g. an insert with no writable
// table) fall through to a query, whose own slots degrade to literals.
func (f *Factory) Build() Stmt {
	s := NewScope(f.schema, f.rng, f.depth)

	roll := f.rng.Intn(f.weights.total())
	var (
		stmt Stmt
		err  error
	)
	switch {
	case roll < f.weights.Select:
		stmt, err = s.makeQuery(nil)
	case roll < f.weights.Select+f.weights.Insert:
		stmt, err = s.makeInsert()
	case roll < f.weights.Select+f.weights.Insert+f.weights.Update:
		stmt, err = s.makeUpdate()
	default:
		stmt, err = s.makeDelete()
	}
	if err != nil {
		stmt, err = s.makeQuery(nil)
	}
	if err != nil {
		// makeQuery's own degradation path means this is unreachable
		// with a loadable schema, but never return a nil statement.
		v, _ := s.makeValues(nil)
		stmt = v
	}
	return stmt
}
