// Package duckdb provides the DuckDB target driver for querysmith.
package duckdb

import (
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb database/sql driver

	"github.com/leapstack-labs/querysmith/pkg/dut"
)

// DUT drives a DuckDB database file (or ":memory:"). DuckDB runs in
// process, so a crash takes the session down with it and surfaces as a
// transport-level connection loss.
type DUT struct {
	dut.BaseSQLDUT
}

// New creates a DuckDB DUT. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *DUT {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DUT{
		BaseSQLDUT: dut.BaseSQLDUT{
			DriverName: "duckdb",
			Dialect:    "duckdb",
			Logger:     logger,
		},
	}
}
