// Package schema holds the read-only model of the target database that
// statement generation draws from: tables, columns, scalar types, and
// callable routines. A Schema is built once per run and never mutated
// afterwards, so it is safe for concurrent read.
package schema

import (
	"fmt"
	"math/rand"
	"strings"
)

// Type is the closed set of scalar types the generator reasons about.
// Engine-specific type names are folded into these buckets at load time;
// anything unrecognized becomes Any.
type Type uint8

const (
	Any Type = iota
	Numeric
	Text
	Boolean
	Datetime
	Binary
)

var typeNames = [...]string{"any", "numeric", "text", "boolean", "datetime", "binary"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// SQLName returns the name used when the type appears in rendered SQL,
// e.g. in CAST expressions. Names are chosen to be accepted by all
// supported dialects; an occasional rejection is expected fuzzing noise.
func (t Type) SQLName() string {
	switch t {
	case Numeric:
		return "NUMERIC"
	case Text:
		return "VARCHAR"
	case Boolean:
		return "BOOLEAN"
	case Datetime:
		return "TIMESTAMP"
	case Binary:
		return "BLOB"
	default:
		return "VARCHAR"
	}
}

// CompatibleWith reports whether a value of type t can stand in a slot
// that requires want. Any is compatible in both directions: the
// generator's type inference is best-effort, not a type checker.
func (t Type) CompatibleWith(want Type) bool {
	return want == Any || t == Any || t == want
}

// ConcreteTypes lists the types a slot declared Any may be narrowed to.
var ConcreteTypes = []Type{Numeric, Text, Boolean, Datetime}

// TypeFromName maps an engine-reported type name onto the closed set.
func TypeFromName(name string) Type {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "bool"):
		return Boolean
	case strings.Contains(n, "int"), strings.Contains(n, "dec"),
		strings.Contains(n, "num"), strings.Contains(n, "real"),
		strings.Contains(n, "double"), strings.Contains(n, "float"),
		strings.Contains(n, "serial"), strings.Contains(n, "money"):
		return Numeric
	case strings.Contains(n, "char"), strings.Contains(n, "text"),
		strings.Contains(n, "clob"), strings.Contains(n, "string"),
		strings.Contains(n, "uuid"), strings.Contains(n, "json"):
		return Text
	case strings.Contains(n, "date"), strings.Contains(n, "time"):
		return Datetime
	case strings.Contains(n, "blob"), strings.Contains(n, "bytea"),
		strings.Contains(n, "binary"):
		return Binary
	default:
		return Any
	}
}

// Column belongs to exactly one Table and is immutable after load.
type Column struct {
	Name     string
	Table    *Table
	Type     Type
	Nullable bool
	Writable bool
}

// Table is an introspected relation. Views are not insertable or
// updatable; everything is immutable after load.
type Table struct {
	Name          string
	Columns       []Column
	Insertable    bool
	Updatable     bool
	IsView        bool
	HasPrimaryKey bool
}

// RoutineKind distinguishes how a routine may be invoked.
type RoutineKind uint8

const (
	ScalarFunc RoutineKind = iota
	Aggregate
	WindowFunc
)

func (k RoutineKind) String() string {
	switch k {
	case ScalarFunc:
		return "scalar"
	case Aggregate:
		return "aggregate"
	case WindowFunc:
		return "window"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Routine is a callable the expression grammar may emit. An Any return
// type means "same as the (single) argument", as with min/max.
type Routine struct {
	Name string
	Args []Type
	Ret  Type
	Kind RoutineKind
}

// Schema owns the full table and routine sets for one target.
type Schema struct {
	Dialect  string
	Tables   []*Table
	Routines []*Routine

	byName map[string]*Table
}

// New assembles a Schema from already-introspected parts and indexes it.
func New(dialect string, tables []*Table, routines []*Routine) *Schema {
	s := &Schema{
		Dialect:  dialect,
		Tables:   tables,
		Routines: routines,
		byName:   make(map[string]*Table, len(tables)),
	}
	for _, t := range tables {
		for i := range t.Columns {
			t.Columns[i].Table = t
		}
		s.byName[t.Name] = t
	}
	return s
}

// TableByName looks up a table; ok is false when absent.
func (s *Schema) TableByName(name string) (*Table, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// RandomTable returns a uniformly chosen table.
func (s *Schema) RandomTable(r *rand.Rand) *Table {
	return s.Tables[r.Intn(len(s.Tables))]
}

// RandomTableWhere returns a uniformly chosen table satisfying pred,
// or false when none does.
func (s *Schema) RandomTableWhere(r *rand.Rand, pred func(*Table) bool) (*Table, bool) {
	var candidates []*Table
	for _, t := range s.Tables {
		if pred(t) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[r.Intn(len(candidates))], true
}

// ColumnOfType returns a uniformly chosen column whose type is
// compatible with t, across all tables.
func (s *Schema) ColumnOfType(r *rand.Rand, t Type) (*Column, bool) {
	var candidates []*Column
	for _, tbl := range s.Tables {
		for i := range tbl.Columns {
			if tbl.Columns[i].Type.CompatibleWith(t) {
				candidates = append(candidates, &tbl.Columns[i])
			}
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[r.Intn(len(candidates))], true
}

// RoutineReturning returns a uniformly chosen routine of the given kind
// whose return type is compatible with t.
func (s *Schema) RoutineReturning(r *rand.Rand, t Type, kind RoutineKind) (*Routine, bool) {
	var candidates []*Routine
	for _, rt := range s.Routines {
		if rt.Kind == kind && rt.Ret.CompatibleWith(t) {
			candidates = append(candidates, rt)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[r.Intn(len(candidates))], true
}
