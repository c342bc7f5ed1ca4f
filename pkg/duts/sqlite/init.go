// This file registers the SQLite driver with the DUT registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/leapstack-labs/querysmith/pkg/duts/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/querysmith/pkg/dut"
)

func init() {
	dut.Register("sqlite", func(logger *slog.Logger) dut.DUT { return New(logger) })
}
