// This file registers the DuckDB driver with the DUT registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/leapstack-labs/querysmith/pkg/duts/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/querysmith/pkg/dut"
)

func init() {
	dut.Register("duckdb", func(logger *slog.Logger) dut.DUT { return New(logger) })
}
