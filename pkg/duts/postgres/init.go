// This file registers the PostgreSQL driver with the DUT registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/leapstack-labs/querysmith/pkg/duts/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/querysmith/pkg/dut"
)

func init() {
	dut.Register("postgres", func(logger *slog.Logger) dut.DUT { return New(logger) })
}
