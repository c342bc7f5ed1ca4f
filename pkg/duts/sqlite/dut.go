// Package sqlite provides the SQLite target driver for querysmith,
// backed by the cgo-free modernc driver.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // sqlite database/sql driver

	"github.com/leapstack-labs/querysmith/pkg/dut"
	"github.com/leapstack-labs/querysmith/pkg/schema"
)

// DUT drives a SQLite database file (or ":memory:").
type DUT struct {
	dut.BaseSQLDUT
}

// New creates a SQLite DUT. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *DUT {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DUT{
		BaseSQLDUT: dut.BaseSQLDUT{
			DriverName: "sqlite",
			Dialect:    "sqlite",
			Logger:     logger,
		},
	}
}

// IntrospectTables replaces the generic information_schema scan, which
// SQLite does not have, with sqlite_master plus pragma table_info.
func (d *DUT) IntrospectTables(ctx context.Context) ([]*schema.Table, error) {
	names, err := d.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	var tables []*schema.Table
	for _, n := range names {
		t := &schema.Table{
			Name:       n.name,
			IsView:     n.isView,
			Insertable: !n.isView,
			Updatable:  !n.isView,
		}
		rows, err := d.Query(ctx, fmt.Sprintf("pragma table_info(%s)", n.name))
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", n.name, err)
		}
		for rows.Next() {
			var (
				cid, notnull, pk int
				name, typ        string
				dflt             any
			)
			if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan column of %s: %w", n.name, err)
			}
			if pk > 0 {
				t.HasPrimaryKey = true
			}
			t.Columns = append(t.Columns, schema.Column{
				Name:     name,
				Type:     schema.TypeFromName(typ),
				Nullable: notnull == 0,
				Writable: !n.isView,
			})
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("error iterating columns of %s: %w", n.name, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

type master struct {
	name   string
	isView bool
}

func (d *DUT) tableNames(ctx context.Context) ([]master, error) {
	rows, err := d.Query(ctx, `select name, type from sqlite_master
		where type in ('table', 'view') and name not like 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []master
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		out = append(out, master{name: name, isView: typ == "view"})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table names: %w", err)
	}
	return out, nil
}
