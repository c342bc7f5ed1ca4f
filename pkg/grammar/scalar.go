package grammar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/querysmith/pkg/schema"
)

// Literal is the guaranteed-constructible terminal every expression
// slot can degrade to. Its text is fixed at construction time.
type Literal struct {
	node
	T    schema.Type
	Text string
}

func (l *Literal) Type() schema.Type         { return l.T }
func (l *Literal) Children() []Prod          { return nil }
func (l *Literal) Render(b *strings.Builder) { b.WriteString(l.Text) }

var textPool = []string{"'alpha'", "'bravo'", "'charlie'", "''", "'O''Brien'"}

var datetimePool = []string{
	"'1999-12-31 23:59:59'",
	"'2020-01-01 00:00:00'",
	"'2024-03-11 08:30:00'",
}

var binaryPool = []string{"x'00'", "x'deadbeef'", "x'ff00ff'"}

// makeLiteral builds a typed constant. Works at any depth and for any
// required type, including a typed NULL for nullable slots.
func (s *Scope) makeLiteral(want schema.Type) *Literal {
	if want == schema.Any {
		want = schema.ConcreteTypes[s.st.pick(len(schema.ConcreteTypes))]
	}
	var text string
	if s.st.d9() == 1 {
		text = fmt.Sprintf("cast(null as %s)", want.SQLName())
	} else {
		switch want {
		case schema.Numeric:
			switch s.st.d6() {
			case 1:
				text = "0"
			case 2:
				text = "-1"
			case 3:
				text = "3.14"
			default:
				text = fmt.Sprintf("%d", s.st.d100())
			}
		case schema.Text:
			text = textPool[s.st.pick(len(textPool))]
		case schema.Boolean:
			if s.st.coin() {
				text = "true"
			} else {
				text = "false"
			}
		case schema.Datetime:
			text = datetimePool[s.st.pick(len(datetimePool))]
		case schema.Binary:
			text = binaryPool[s.st.pick(len(binaryPool))]
		}
	}
	return &Literal{node: node{depth: s.level}, T: want, Text: text}
}

// ColRef references a visible column through its relation's alias.
type ColRef struct {
	node
	Qual string
	Col  schema.Column
}

func (c *ColRef) Type() schema.Type { return c.Col.Type }
func (c *ColRef) Children() []Prod  { return nil }

func (c *ColRef) Render(b *strings.Builder) {
	b.WriteString(c.Qual)
	b.WriteByte('.')
	b.WriteString(c.Col.Name)
}

// OpExpr is a parenthesized binary operator application.
type OpExpr struct {
	node
	Out   schema.Type
	Op    string
	Left  Expr
	Right Expr
}

func (o *OpExpr) Type() schema.Type { return o.Out }
func (o *OpExpr) Children() []Prod  { return []Prod{o.Left, o.Right} }

func (o *OpExpr) Render(b *strings.Builder) {
	b.WriteByte('(')
	o.Left.Render(b)
	b.WriteByte(' ')
	b.WriteString(o.Op)
	b.WriteByte(' ')
	o.Right.Render(b)
	b.WriteByte(')')
}

var cmpOps = []string{"=", "<>", "<", "<=", ">", ">="}
var arithOps = []string{"+", "-", "*"}

// makeBinOp builds an operator expression of the required result type.
// The chosen operator fixes both operand types.
func (s *Scope) makeBinOp(want schema.Type) (Expr, error) {
	switch want {
	case schema.Numeric:
		op := arithOps[s.st.pick(len(arithOps))]
		return s.opExpr(want, op, schema.Numeric, schema.Numeric)
	case schema.Text:
		return s.opExpr(want, "||", schema.Text, schema.Text)
	case schema.Boolean:
		if s.st.coin() {
			// Comparison: the left operand's type fixes the right's.
			operand := schema.ConcreteTypes[s.st.pick(len(schema.ConcreteTypes))]
			op := cmpOps[s.st.pick(len(cmpOps))]
			return s.opExpr(want, op, operand, operand)
		}
		op := "and"
		if s.st.coin() {
			op = "or"
		}
		return s.opExpr(want, op, schema.Boolean, schema.Boolean)
	default:
		return nil, ErrNoCandidate
	}
}

func (s *Scope) opExpr(out schema.Type, op string, lt, rt schema.Type) (Expr, error) {
	left := s.makeScalar(lt)
	right := s.makeScalar(rt)
	return &OpExpr{node: node{depth: s.level}, Out: out, Op: op, Left: left, Right: right}, nil
}

// NotExpr negates a boolean expression.
type NotExpr struct {
	node
	Arg Expr
}

func (n *NotExpr) Type() schema.Type { return schema.Boolean }
func (n *NotExpr) Children() []Prod  { return []Prod{n.Arg} }

func (n *NotExpr) Render(b *strings.Builder) {
	b.WriteString("(not ")
	n.Arg.Render(b)
	b.WriteByte(')')
}

// CaseExpr is the two-armed searched CASE; both arms share the result type.
type CaseExpr struct {
	node
	Cond Expr
	Then Expr
	Else Expr
}

func (c *CaseExpr) Type() schema.Type { return c.Then.Type() }
func (c *CaseExpr) Children() []Prod  { return []Prod{c.Cond, c.Then, c.Else} }

func (c *CaseExpr) Render(b *strings.Builder) {
	b.WriteString("case when ")
	c.Cond.Render(b)
	b.WriteString(" then ")
	c.Then.Render(b)
	b.WriteString(" else ")
	c.Else.Render(b)
	b.WriteString(" end")
}

func (s *Scope) makeCase(want schema.Type) (Expr, error) {
	return &CaseExpr{
		node: node{depth: s.level},
		Cond: s.makeBoolExpr(),
		Then: s.makeScalar(want),
		Else: s.makeScalar(want),
	}, nil
}

// CoalesceExpr wraps coalesce in a cast so the advertised type holds
// regardless of how the engine unifies the argument types.
type CoalesceExpr struct {
	node
	T    schema.Type
	Args []Expr
}

func (c *CoalesceExpr) Type() schema.Type { return c.T }
func (c *CoalesceExpr) Children() []Prod  { return childList(c.Args) }

func (c *CoalesceExpr) Render(b *strings.Builder) {
	b.WriteString("cast(coalesce(")
	renderList(b, c.Args, ", ")
	b.WriteString(") as ")
	b.WriteString(c.T.SQLName())
	b.WriteByte(')')
}

func (s *Scope) makeCoalesce(want schema.Type) (Expr, error) {
	if want == schema.Any {
		want = schema.ConcreteTypes[s.st.pick(len(schema.ConcreteTypes))]
	}
	args := []Expr{s.makeScalar(want), s.makeScalar(want)}
	return &CoalesceExpr{node: node{depth: s.level}, T: want, Args: args}, nil
}

// CastExpr coerces its argument to a fixed type.
type CastExpr struct {
	node
	To  schema.Type
	Arg Expr
}

func (c *CastExpr) Type() schema.Type { return c.To }
func (c *CastExpr) Children() []Prod  { return []Prod{c.Arg} }

func (c *CastExpr) Render(b *strings.Builder) {
	b.WriteString("cast(")
	c.Arg.Render(b)
	b.WriteString(" as ")
	b.WriteString(c.To.SQLName())
	b.WriteByte(')')
}

func (s *Scope) makeCast(want schema.Type) (Expr, error) {
	if want == schema.Any {
		want = schema.ConcreteTypes[s.st.pick(len(schema.ConcreteTypes))]
	}
	return &CastExpr{node: node{depth: s.level}, To: want, Arg: s.makeScalar(schema.Any)}, nil
}

// FuncCall applies a scalar routine from the schema.
type FuncCall struct {
	node
	Fn   *schema.Routine
	Args []Expr
}

func (f *FuncCall) Type() schema.Type { return f.Fn.Ret }
func (f *FuncCall) Children() []Prod  { return childList(f.Args) }

func (f *FuncCall) Render(b *strings.Builder) {
	b.WriteString(f.Fn.Name)
	b.WriteByte('(')
	renderList(b, f.Args, ", ")
	b.WriteByte(')')
}

func (s *Scope) makeFuncCall(want schema.Type) (Expr, error) {
	fn, ok := s.schema.RoutineReturning(s.st.rng, want, schema.ScalarFunc)
	if !ok {
		return nil, ErrNoCandidate
	}
	args := make([]Expr, len(fn.Args))
	for i, at := range fn.Args {
		args[i] = s.makeScalar(at)
	}
	return &FuncCall{node: node{depth: s.level}, Fn: fn, Args: args}, nil
}

// AggCall applies an aggregate routine. A zero-argument aggregate
// renders as count(*)-style.
type AggCall struct {
	node
	Fn   *schema.Routine
	Args []Expr
}

func (a *AggCall) Type() schema.Type { return a.Fn.Ret }
func (a *AggCall) Children() []Prod  { return childList(a.Args) }

func (a *AggCall) Render(b *strings.Builder) {
	b.WriteString(a.Fn.Name)
	b.WriteByte('(')
	if len(a.Args) == 0 {
		b.WriteByte('*')
	} else {
		renderList(b, a.Args, ", ")
	}
	b.WriteByte(')')
}

func (s *Scope) makeAggregate(want schema.Type) (Expr, error) {
	fn, ok := s.schema.RoutineReturning(s.st.rng, want, schema.Aggregate)
	if !ok {
		return nil, ErrNoCandidate
	}
	args := make([]Expr, len(fn.Args))
	for i, at := range fn.Args {
		// Aggregate arguments are plain column references or literals;
		// nesting aggregates is invalid everywhere.
		if ref, err := s.ResolveColumn(at); err == nil {
			args[i] = ref
		} else {
			args[i] = s.makeLiteral(at)
		}
	}
	return &AggCall{node: node{depth: s.level}, Fn: fn, Args: args}, nil
}

// WindowCall applies a window routine over an ORDER BY (and optional
// PARTITION BY) of visible columns.
type WindowCall struct {
	node
	Fn          *schema.Routine
	PartitionBy Expr
	OrderBy     Expr
}

func (w *WindowCall) Type() schema.Type { return w.Fn.Ret }

func (w *WindowCall) Children() []Prod {
	out := make([]Prod, 0, 2)
	if w.PartitionBy != nil {
		out = append(out, w.PartitionBy)
	}
	return append(out, w.OrderBy)
}

func (w *WindowCall) Render(b *strings.Builder) {
	b.WriteString(w.Fn.Name)
	b.WriteString("() over (")
	if w.PartitionBy != nil {
		b.WriteString("partition by ")
		w.PartitionBy.Render(b)
		b.WriteByte(' ')
	}
	b.WriteString("order by ")
	w.OrderBy.Render(b)
	b.WriteByte(')')
}

func (s *Scope) makeWindowCall(want schema.Type) (Expr, error) {
	fn, ok := s.schema.RoutineReturning(s.st.rng, want, schema.WindowFunc)
	if !ok {
		return nil, ErrNoCandidate
	}
	orderBy, err := s.ResolveColumn(schema.Any)
	if err != nil {
		return nil, err
	}
	w := &WindowCall{node: node{depth: s.level}, Fn: fn, OrderBy: orderBy}
	if s.st.coin() {
		if part, err := s.ResolveColumn(schema.Any); err == nil {
			w.PartitionBy = part
		}
	}
	return w, nil
}

// Exists wraps a subquery as a boolean predicate.
type Exists struct {
	node
	Sub RelExpr
}

func (e *Exists) Type() schema.Type { return schema.Boolean }
func (e *Exists) Children() []Prod  { return []Prod{e.Sub} }

func (e *Exists) Render(b *strings.Builder) {
	b.WriteString("exists (")
	e.Sub.Render(b)
	b.WriteByte(')')
}

func (s *Scope) makeExists() (Expr, error) {
	sub, err := s.makeSelect(nil)
	if err != nil {
		return nil, err
	}
	return &Exists{node: node{depth: s.level}, Sub: sub}, nil
}

// ScalarSubq is a single-column, LIMIT 1 subquery used as a value.
// The subquery sees the enclosing bindings, so it may be correlated.
type ScalarSubq struct {
	node
	Sub *SelectStmt
}

func (q *ScalarSubq) Type() schema.Type { return q.Sub.Cols()[0].Type }
func (q *ScalarSubq) Children() []Prod  { return []Prod{q.Sub} }

func (q *ScalarSubq) Render(b *strings.Builder) {
	b.WriteByte('(')
	q.Sub.Render(b)
	b.WriteByte(')')
}

func (s *Scope) makeScalarSubquery(want schema.Type) (Expr, error) {
	sub, err := s.makeSelect([]schema.Type{want})
	if err != nil {
		return nil, err
	}
	sub.Limit = 1
	return &ScalarSubq{node: node{depth: s.level}, Sub: sub}, nil
}

// makeScalar builds an expression of the required type. It cannot fail:
// alternatives that come up empty are retried, and after retryCount
// attempts the slot degrades to a typed literal.
func (s *Scope) makeScalar(want schema.Type) Expr {
	if want == schema.Any {
		want = schema.ConcreteTypes[s.st.pick(len(schema.ConcreteTypes))]
	}
	s = s.Enter()

	for i := 0; i < retryCount; i++ {
		var (
			e   Expr
			err error
		)
		switch {
		case len(s.refs) > 0 && s.st.d6() > 2:
			e, err = s.ResolveColumn(want)
		case s.deepen() && s.st.d9() == 1:
			e, err = s.makeCase(want)
		case s.deepen() && s.st.d9() == 1:
			e, err = s.makeCoalesce(want)
		case s.deepen() && s.st.d6() < 3:
			e, err = s.makeBinOp(want)
		case s.deepen() && s.st.d9() < 3:
			e, err = s.makeFuncCall(want)
		case s.deepen() && s.st.d9() == 1:
			e, err = s.makeScalarSubquery(want)
		case s.deepen() && s.st.d9() == 1:
			e, err = s.makeCast(want)
		default:
			e, err = s.makeLiteral(want), nil
		}
		if err == nil {
			return e
		}
		if !errors.Is(err, ErrNoCandidate) {
			break
		}
	}
	return s.makeLiteral(want)
}

// makeBoolExpr builds a predicate. Same guarantee as makeScalar.
func (s *Scope) makeBoolExpr() Expr {
	s = s.Enter()

	for i := 0; i < retryCount; i++ {
		var (
			e   Expr
			err error
		)
		switch {
		case s.deepen() && s.st.d6() < 4:
			e, err = s.makeBinOp(schema.Boolean)
		case s.deepen() && s.st.d6() == 1:
			e, err = s.makeExists()
		case s.deepen() && s.st.d6() == 1:
			inner := s.makeScalar(schema.Boolean)
			e, err = &NotExpr{node: node{depth: s.level}, Arg: inner}, nil
		default:
			e, err = s.makeScalar(schema.Boolean), nil
		}
		if err == nil {
			return e
		}
		if !errors.Is(err, ErrNoCandidate) {
			break
		}
	}
	return s.makeLiteral(schema.Boolean)
}
