package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Querier is the slice of a DUT the loader needs: the ability to run
// introspection queries on the live session.
type Querier interface {
	Query(ctx context.Context, stmt string) (*sql.Rows, error)
}

// Introspector is implemented by DUTs whose engine has no usable
// information_schema (e.g. SQLite); it replaces the generic table scan.
type Introspector interface {
	IntrospectTables(ctx context.Context) ([]*Table, error)
}

// LoadError reports that introspection could not produce a usable
// schema. It is fatal: nothing can be generated without tables.
type LoadError struct {
	Dialect string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("schema load (%s): no usable tables found", e.Dialect)
	}
	return fmt.Sprintf("schema load (%s): %v", e.Dialect, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// systemSchemas are excluded from the generic information_schema scan.
const tableScanQuery = `
	SELECT t.table_name, t.table_type, c.column_name, c.data_type, c.is_nullable
	FROM information_schema.tables t
	JOIN information_schema.columns c
	  ON c.table_schema = t.table_schema AND c.table_name = t.table_name
	WHERE t.table_schema NOT IN ('information_schema', 'pg_catalog', 'system', 'temp')
	ORDER BY t.table_name, c.ordinal_position`

// Load introspects the target behind src and builds the Schema. The
// dialect is taken from src when it exposes DialectName. Fails with a
// *LoadError when no table with at least one column survives.
func Load(ctx context.Context, src Querier, logger *slog.Logger) (*Schema, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dialect := "generic"
	if d, ok := src.(interface{ DialectName() string }); ok {
		dialect = d.DialectName()
	}

	var (
		tables []*Table
		err    error
	)
	if in, ok := src.(Introspector); ok {
		tables, err = in.IntrospectTables(ctx)
	} else {
		tables, err = scanInformationSchema(ctx, src)
	}
	if err != nil {
		return nil, &LoadError{Dialect: dialect, Err: err}
	}

	usable := tables[:0]
	for _, t := range tables {
		if len(t.Columns) > 0 {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return nil, &LoadError{Dialect: dialect}
	}

	s := New(dialect, usable, builtinRoutines())
	logger.Debug("schema loaded",
		slog.String("dialect", dialect),
		slog.Int("tables", len(s.Tables)),
		slog.Int("routines", len(s.Routines)))
	return s, nil
}

func scanInformationSchema(ctx context.Context, src Querier) ([]*Table, error) {
	rows, err := src.Query(ctx, tableScanQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to scan information_schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		tables  []*Table
		current *Table
	)
	for rows.Next() {
		var tableName, tableType, colName, dataType, nullable string
		if err := rows.Scan(&tableName, &tableType, &colName, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		if current == nil || current.Name != tableName {
			isView := tableType == "VIEW"
			current = &Table{
				Name:       tableName,
				IsView:     isView,
				Insertable: !isView,
				Updatable:  !isView,
			}
			tables = append(tables, current)
		}
		current.Columns = append(current.Columns, Column{
			Name:     colName,
			Type:     TypeFromName(dataType),
			Nullable: nullable == "YES",
			Writable: !current.IsView,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table rows: %w", err)
	}
	return tables, nil
}

// builtinRoutines is the portable callable set registered for every
// target. Engines reject the odd one; that is expected noise.
func builtinRoutines() []*Routine {
	return []*Routine{
		{Name: "lower", Args: []Type{Text}, Ret: Text, Kind: ScalarFunc},
		{Name: "upper", Args: []Type{Text}, Ret: Text, Kind: ScalarFunc},
		{Name: "trim", Args: []Type{Text}, Ret: Text, Kind: ScalarFunc},
		{Name: "length", Args: []Type{Text}, Ret: Numeric, Kind: ScalarFunc},
		{Name: "abs", Args: []Type{Numeric}, Ret: Numeric, Kind: ScalarFunc},
		{Name: "round", Args: []Type{Numeric}, Ret: Numeric, Kind: ScalarFunc},

		{Name: "count", Args: nil, Ret: Numeric, Kind: Aggregate},
		{Name: "sum", Args: []Type{Numeric}, Ret: Numeric, Kind: Aggregate},
		{Name: "avg", Args: []Type{Numeric}, Ret: Numeric, Kind: Aggregate},
		{Name: "min", Args: []Type{Numeric}, Ret: Numeric, Kind: Aggregate},
		{Name: "max", Args: []Type{Numeric}, Ret: Numeric, Kind: Aggregate},
		{Name: "min", Args: []Type{Text}, Ret: Text, Kind: Aggregate},
		{Name: "max", Args: []Type{Text}, Ret: Text, Kind: Aggregate},
		{Name: "min", Args: []Type{Datetime}, Ret: Datetime, Kind: Aggregate},
		{Name: "max", Args: []Type{Datetime}, Ret: Datetime, Kind: Aggregate},

		{Name: "row_number", Args: nil, Ret: Numeric, Kind: WindowFunc},
		{Name: "rank", Args: nil, Ret: Numeric, Kind: WindowFunc},
		{Name: "dense_rank", Args: nil, Ret: Numeric, Kind: WindowFunc},
	}
}
