package grammar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/querysmith/pkg/schema"
)

// Stmt is a complete top-level statement production.
type Stmt = Prod

// TableRef binds a base table under a statement-unique alias.
type TableRef struct {
	node
	Table *schema.Table
	Alias string
}

func (t *TableRef) Name() string          { return t.Alias }
func (t *TableRef) Cols() []schema.Column { return t.Table.Columns }
func (t *TableRef) Children() []Prod      { return nil }

func (t *TableRef) Render(b *strings.Builder) {
	b.WriteString(t.Table.Name)
	b.WriteString(" as ")
	b.WriteString(t.Alias)
}

// makeTableRef picks a random base table, binds it, and returns it.
// It only fails if the alias collides, which fresh names prevent.
func (s *Scope) makeTableRef() (*TableRef, error) {
	ref := &TableRef{
		node:  node{depth: s.level},
		Table: s.schema.RandomTable(s.st.rng),
		Alias: s.Name("tab"),
	}
	if err := s.Bind(ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// DerivedTable is a subquery in FROM position. Its query is built in an
// isolated scope: without LATERAL it must not see sibling bindings.
type DerivedTable struct {
	node
	Alias string
	Sub   RelExpr
}

func (d *DerivedTable) Name() string          { return d.Alias }
func (d *DerivedTable) Cols() []schema.Column { return d.Sub.Cols() }
func (d *DerivedTable) Children() []Prod      { return []Prod{d.Sub} }

func (d *DerivedTable) Render(b *strings.Builder) {
	b.WriteByte('(')
	d.Sub.Render(b)
	b.WriteString(") as ")
	b.WriteString(d.Alias)
}

// isolated returns a fresh frame that shares the build state and depth
// but sees no outer bindings.
func (s *Scope) isolated() *Scope {
	return &Scope{
		schema: s.schema,
		level:  s.level + 1,
		st:     s.st,
	}
}

func (s *Scope) makeDerivedTable() (*DerivedTable, error) {
	sub, err := s.isolated().makeSelect(nil)
	if err != nil {
		return nil, err
	}
	d := &DerivedTable{
		node:  node{depth: s.level},
		Alias: s.Name("tab"),
		Sub:   sub,
	}
	if err := s.Bind(d); err != nil {
		return nil, err
	}
	return d, nil
}

// JoinExpr joins two data sources on a boolean condition. Both sides'
// bindings stay visible in the enclosing select.
type JoinExpr struct {
	node
	Kind string
	Lhs  RelExpr
	Rhs  RelExpr
	On   Expr
}

var joinKinds = []string{"join", "left join", "right join"}

func (j *JoinExpr) Children() []Prod { return []Prod{j.Lhs, j.Rhs, j.On} }

func (j *JoinExpr) Cols() []schema.Column {
	cols := make([]schema.Column, 0, len(j.Lhs.Cols())+len(j.Rhs.Cols()))
	cols = append(cols, j.Lhs.Cols()...)
	return append(cols, j.Rhs.Cols()...)
}

func (j *JoinExpr) Render(b *strings.Builder) {
	j.Lhs.Render(b)
	b.WriteByte(' ')
	b.WriteString(j.Kind)
	b.WriteByte(' ')
	j.Rhs.Render(b)
	b.WriteString(" on ")
	j.On.Render(b)
}

func (s *Scope) makeJoin() (RelExpr, error) {
	lhs, err := s.makeDataSource()
	if err != nil {
		return nil, err
	}
	rhs, err := s.makeDataSource()
	if err != nil {
		return nil, err
	}
	return &JoinExpr{
		node: node{depth: s.level},
		Kind: joinKinds[s.st.pick(len(joinKinds))],
		Lhs:  lhs,
		Rhs:  rhs,
		On:   s.makeBoolExpr(),
	}, nil
}

// makeDataSource builds one FROM-clause item, binding every named
// relation it introduces into s.
func (s *Scope) makeDataSource() (RelExpr, error) {
	if s.deepen() && s.st.d6() == 1 {
		return s.makeJoin()
	}
	if s.deepen() && s.st.d6() == 1 {
		return s.makeDerivedTable()
	}
	return s.makeTableRef()
}

// SelectStmt is the core select production. Output columns are aliased
// c_1..c_n so the statement can serve as a derived table or subquery.
type SelectStmt struct {
	node
	Distinct bool
	List     []Expr
	From     RelExpr
	Where    Expr
	OrderBy  []int // output ordinals, 1-based
	Limit    int   // 0 means none
	cols     []schema.Column
}

func (s *SelectStmt) Cols() []schema.Column { return s.cols }

func (s *SelectStmt) Children() []Prod {
	out := make([]Prod, 0, len(s.List)+2)
	out = append(out, childList(s.List)...)
	out = append(out, s.From)
	if s.Where != nil {
		out = append(out, s.Where)
	}
	return out
}

func (s *SelectStmt) Render(b *strings.Builder) {
	b.WriteString("select ")
	if s.Distinct {
		b.WriteString("distinct ")
	}
	for i, e := range s.List {
		if i > 0 {
			b.WriteString(", ")
		}
		e.Render(b)
		fmt.Fprintf(b, " as c_%d", i+1)
	}
	b.WriteString(" from ")
	s.From.Render(b)
	if s.Where != nil {
		b.WriteString(" where ")
		s.Where.Render(b)
	}
	if len(s.OrderBy) > 0 {
		b.WriteString(" order by ")
		for i, ord := range s.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%d", ord)
		}
	}
	if s.Limit > 0 {
		fmt.Fprintf(b, " limit %d", s.Limit)
	}
}

// makeSelect builds a select producing one column per desired type;
// nil desired means "pick your own row shape". One of three list modes
// is chosen: plain scalars, aggregate-only, or scalars plus window
// calls, so every list stays valid without a GROUP BY clause.
func (s *Scope) makeSelect(desired []schema.Type) (*SelectStmt, error) {
	s = s.Enter()

	from, err := s.makeDataSource()
	if err != nil {
		return nil, err
	}

	if desired == nil {
		for {
			desired = append(desired, schema.ConcreteTypes[s.st.pick(len(schema.ConcreteTypes))])
			if s.st.d6() < 3 {
				break
			}
		}
	}

	aggregate := s.st.d9() == 1
	window := !aggregate && s.st.d9() == 1

	out := &SelectStmt{node: node{depth: s.level}, From: from}
	for _, t := range desired {
		var e Expr
		switch {
		case aggregate:
			var err error
			if e, err = s.makeAggregate(t); err != nil {
				// Bare constants are legal beside aggregates.
				e = s.makeLiteral(t)
			}
		case window && s.st.d6() == 1:
			var err error
			if e, err = s.makeWindowCall(t); err != nil {
				e = s.makeScalar(t)
			}
		default:
			e = s.makeScalar(t)
		}
		out.List = append(out.List, e)
		out.cols = append(out.cols, schema.Column{
			Name: fmt.Sprintf("c_%d", len(out.cols)+1),
			Type: e.Type(),
		})
	}

	if s.st.coin() {
		out.Where = s.makeBoolExpr()
	}
	for s.st.d6() == 1 {
		out.OrderBy = append(out.OrderBy, s.st.pick(len(out.List))+1)
	}
	out.Distinct = s.st.d100() == 1
	if s.st.d6() > 4 {
		out.Limit = s.st.d100()
	}
	return out, nil
}

// Values is a literal row source.
type Values struct {
	node
	Rows [][]Expr
	cols []schema.Column
}

func (v *Values) Cols() []schema.Column { return v.cols }

func (v *Values) Children() []Prod {
	var out []Prod
	for _, row := range v.Rows {
		out = append(out, childList(row)...)
	}
	return out
}

func (v *Values) Render(b *strings.Builder) {
	b.WriteString("values ")
	for i, row := range v.Rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		renderList(b, row, ", ")
		b.WriteByte(')')
	}
}

func (s *Scope) makeValues(desired []schema.Type) (*Values, error) {
	s = s.Enter()
	if desired == nil {
		for {
			desired = append(desired, schema.ConcreteTypes[s.st.pick(len(schema.ConcreteTypes))])
			if s.st.d6() < 3 {
				break
			}
		}
	}
	out := &Values{node: node{depth: s.level}}
	rows := s.st.pick(4) + 1
	for i := 0; i < rows; i++ {
		row := make([]Expr, len(desired))
		for j, t := range desired {
			row[j] = s.makeScalar(t)
		}
		out.Rows = append(out.Rows, row)
	}
	for i, t := range desired {
		out.cols = append(out.cols, schema.Column{Name: fmt.Sprintf("c_%d", i+1), Type: t})
	}
	return out, nil
}

// SetOp combines two queries of identical row shape. Operands are
// rendered bare and built without ORDER BY or LIMIT, which compound
// selects reserve for the whole statement.
type SetOp struct {
	node
	Op    string
	Left  RelExpr
	Right RelExpr
}

var setOps = []string{"union", "union all", "except", "intersect"}

func (o *SetOp) Cols() []schema.Column { return o.Left.Cols() }
func (o *SetOp) Children() []Prod      { return []Prod{o.Left, o.Right} }

func (o *SetOp) Render(b *strings.Builder) {
	o.Left.Render(b)
	b.WriteByte(' ')
	b.WriteString(o.Op)
	b.WriteByte(' ')
	o.Right.Render(b)
}

func (s *Scope) makeSetOp(desired []schema.Type) (RelExpr, error) {
	s = s.Enter()
	if desired == nil {
		for {
			desired = append(desired, schema.ConcreteTypes[s.st.pick(len(schema.ConcreteTypes))])
			if s.st.d6() < 3 {
				break
			}
		}
	}
	left, err := s.isolated().makeSelect(desired)
	if err != nil {
		return nil, err
	}
	right, err := s.isolated().makeSelect(desired)
	if err != nil {
		return nil, err
	}
	left.OrderBy, left.Limit = nil, 0
	right.OrderBy, right.Limit = nil, 0
	return &SetOp{
		node:  node{depth: s.level},
		Op:    setOps[s.st.pick(len(setOps))],
		Left:  left,
		Right: right,
	}, nil
}

// makeQuery builds any row-returning statement with the desired row
// shape: plain select, values list, or set operation.
func (s *Scope) makeQuery(desired []schema.Type) (RelExpr, error) {
	for i := 0; i < retryCount; i++ {
		var (
			out RelExpr
			err error
		)
		switch {
		case s.deepen() && s.st.d6() < 3:
			out, err = s.makeSetOp(desired)
		case s.st.d6() < 3:
			out, err = s.makeValues(desired)
		default:
			out, err = s.makeSelect(desired)
		}
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrNoCandidate) {
			return nil, err
		}
	}
	return s.makeValues(desired)
}

// Insert writes a query's rows into a base table's writable columns.
type Insert struct {
	node
	Table   *schema.Table
	Targets []schema.Column
	Src     RelExpr
}

func (i *Insert) Children() []Prod { return []Prod{i.Src} }

func (i *Insert) Render(b *strings.Builder) {
	b.WriteString("insert into ")
	b.WriteString(i.Table.Name)
	b.WriteString(" (")
	for n, c := range i.Targets {
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
	}
	b.WriteString(") ")
	i.Src.Render(b)
}

func (s *Scope) makeInsert() (*Insert, error) {
	tbl, ok := s.schema.RandomTableWhere(s.st.rng, func(t *schema.Table) bool {
		if !t.Insertable {
			return false
		}
		for _, c := range t.Columns {
			if c.Writable {
				return true
			}
		}
		return false
	})
	if !ok {
		return nil, ErrNoCandidate
	}

	var (
		targets []schema.Column
		desired []schema.Type
	)
	for _, c := range tbl.Columns {
		if c.Writable && (!c.Nullable || s.st.coin()) {
			targets = append(targets, c)
			desired = append(desired, c.Type)
		}
	}
	if len(targets) == 0 {
		for _, c := range tbl.Columns {
			if c.Writable {
				targets = append(targets, c)
				desired = append(desired, c.Type)
				break
			}
		}
	}

	src, err := s.isolated().makeQuery(desired)
	if err != nil {
		return nil, err
	}
	return &Insert{
		node:    node{depth: s.level},
		Table:   tbl,
		Targets: targets,
		Src:     src,
	}, nil
}

// Assign is one SET item of an update.
type Assign struct {
	node
	Col schema.Column
	Val Expr
}

func (a *Assign) Children() []Prod { return []Prod{a.Val} }

func (a *Assign) Render(b *strings.Builder) {
	b.WriteString(a.Col.Name)
	b.WriteString(" = ")
	a.Val.Render(b)
}

// Update rewrites writable columns of an updatable table. The target
// table is visible to both the SET expressions and the WHERE clause.
type Update struct {
	node
	Target *TableRef
	Set    []*Assign
	Where  Expr
}

func (u *Update) Children() []Prod {
	out := make([]Prod, 0, len(u.Set)+1)
	out = append(out, childList(u.Set)...)
	if u.Where != nil {
		out = append(out, u.Where)
	}
	return out
}

func (u *Update) Render(b *strings.Builder) {
	b.WriteString("update ")
	u.Target.Render(b)
	b.WriteString(" set ")
	renderList(b, u.Set, ", ")
	if u.Where != nil {
		b.WriteString(" where ")
		u.Where.Render(b)
	}
}

func (s *Scope) makeUpdate() (*Update, error) {
	tbl, ok := s.schema.RandomTableWhere(s.st.rng, func(t *schema.Table) bool {
		if !t.Updatable {
			return false
		}
		for _, c := range t.Columns {
			if c.Writable {
				return true
			}
		}
		return false
	})
	if !ok {
		return nil, ErrNoCandidate
	}

	s = s.Enter()
	ref := &TableRef{node: node{depth: s.level}, Table: tbl, Alias: s.Name("tab")}
	if err := s.Bind(ref); err != nil {
		return nil, err
	}

	out := &Update{node: node{depth: s.level}, Target: ref}
	for _, c := range tbl.Columns {
		if c.Writable && s.st.d6() < 3 {
			out.Set = append(out.Set, &Assign{
				node: node{depth: s.level},
				Col:  c,
				Val:  s.makeScalar(c.Type),
			})
		}
	}
	if len(out.Set) == 0 {
		for _, c := range tbl.Columns {
			if c.Writable {
				out.Set = append(out.Set, &Assign{
					node: node{depth: s.level},
					Col:  c,
					Val:  s.makeScalar(c.Type),
				})
				break
			}
		}
	}
	if s.st.coin() {
		out.Where = s.makeBoolExpr()
	}
	return out, nil
}

// Delete removes rows from an updatable table.
type Delete struct {
	node
	Target *TableRef
	Where  Expr
}

func (d *Delete) Children() []Prod {
	if d.Where != nil {
		return []Prod{d.Where}
	}
	return nil
}

func (d *Delete) Render(b *strings.Builder) {
	b.WriteString("delete from ")
	d.Target.Render(b)
	if d.Where != nil {
		b.WriteString(" where ")
		d.Where.Render(b)
	}
}

func (s *Scope) makeDelete() (*Delete, error) {
	tbl, ok := s.schema.RandomTableWhere(s.st.rng, func(t *schema.Table) bool {
		return t.Updatable
	})
	if !ok {
		return nil, ErrNoCandidate
	}

	s = s.Enter()
	ref := &TableRef{node: node{depth: s.level}, Table: tbl, Alias: s.Name("tab")}
	if err := s.Bind(ref); err != nil {
		return nil, err
	}

	out := &Delete{node: node{depth: s.level}, Target: ref}
	if s.st.coin() {
		out.Where = s.makeBoolExpr()
	}
	return out, nil
}
