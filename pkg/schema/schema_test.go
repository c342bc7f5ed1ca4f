package schema

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeFromName(t *testing.T) {
	tests := []struct {
		name     string
		typeName string
		expected Type
	}{
		{"integer", "integer", Numeric},
		{"bigint", "BIGINT", Numeric},
		{"decimal with precision", "decimal(10,2)", Numeric},
		{"double precision", "double precision", Numeric},
		{"serial", "serial", Numeric},
		{"varchar", "character varying", Text},
		{"text", "TEXT", Text},
		{"uuid", "uuid", Text},
		{"boolean", "boolean", Boolean},
		{"timestamp", "timestamp without time zone", Datetime},
		{"date", "DATE", Datetime},
		{"blob", "BLOB", Binary},
		{"bytea", "bytea", Binary},
		{"unknown", "geometry", Any},
		{"empty", "", Any},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TypeFromName(tt.typeName))
		})
	}
}

func TestTypeCompatibleWith(t *testing.T) {
	assert.True(t, Numeric.CompatibleWith(Numeric))
	assert.True(t, Any.CompatibleWith(Text), "Any stands in for anything")
	assert.True(t, Text.CompatibleWith(Any), "anything fills an Any slot")
	assert.False(t, Numeric.CompatibleWith(Text))
	assert.False(t, Boolean.CompatibleWith(Datetime))
}

func TestTypeSQLName(t *testing.T) {
	for _, typ := range ConcreteTypes {
		assert.NotEmpty(t, typ.SQLName())
	}
	assert.Equal(t, "VARCHAR", Any.SQLName(), "Any falls back to a text cast")
}

func testSchema() *Schema {
	tables := []*Table{
		{
			Name:       "users",
			Insertable: true,
			Updatable:  true,
			Columns: []Column{
				{Name: "id", Type: Numeric, Writable: true},
				{Name: "name", Type: Text, Nullable: true, Writable: true},
				{Name: "active", Type: Boolean, Writable: true},
			},
		},
		{
			Name:   "user_stats",
			IsView: true,
			Columns: []Column{
				{Name: "user_id", Type: Numeric},
				{Name: "last_seen", Type: Datetime},
			},
		},
	}
	return New("generic", tables, builtinRoutines())
}

func TestNewIndexesTables(t *testing.T) {
	s := testSchema()

	tbl, ok := s.TableByName("users")
	require.True(t, ok)
	assert.Equal(t, "users", tbl.Name)

	_, ok = s.TableByName("missing")
	assert.False(t, ok)

	// Back-pointers are filled in during indexing.
	for _, tbl := range s.Tables {
		for i := range tbl.Columns {
			assert.Same(t, tbl, tbl.Columns[i].Table)
		}
	}
}

func TestRandomTableWhere(t *testing.T) {
	s := testSchema()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		tbl, ok := s.RandomTableWhere(rng, func(t *Table) bool { return t.Insertable })
		require.True(t, ok)
		assert.Equal(t, "users", tbl.Name, "only the base table is insertable")
	}

	_, ok := s.RandomTableWhere(rng, func(t *Table) bool { return false })
	assert.False(t, ok)
}

func TestColumnOfType(t *testing.T) {
	s := testSchema()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		col, ok := s.ColumnOfType(rng, Datetime)
		require.True(t, ok)
		assert.Equal(t, "last_seen", col.Name)
	}

	_, ok := s.ColumnOfType(rng, Binary)
	assert.False(t, ok, "no binary column in the fixture")
}

func TestRoutineReturning(t *testing.T) {
	s := testSchema()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		fn, ok := s.RoutineReturning(rng, Text, ScalarFunc)
		require.True(t, ok)
		assert.Equal(t, Text, fn.Ret)
		assert.Equal(t, ScalarFunc, fn.Kind)
	}

	fn, ok := s.RoutineReturning(rng, Numeric, WindowFunc)
	require.True(t, ok)
	assert.Equal(t, WindowFunc, fn.Kind)

	_, ok = s.RoutineReturning(rng, Binary, Aggregate)
	assert.False(t, ok)
}
