// Package postgres provides the PostgreSQL target driver for querysmith.
package postgres

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/leapstack-labs/querysmith/pkg/dut"
)

// DUT drives a PostgreSQL (or wire-compatible) target.
type DUT struct {
	dut.BaseSQLDUT
}

// New creates a PostgreSQL DUT. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *DUT {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &DUT{
		BaseSQLDUT: dut.BaseSQLDUT{
			DriverName: "pgx",
			Dialect:    "postgres",
			Logger:     logger,
		},
	}
	d.Classify = classify
	return d
}

// classify buckets a server error by its severity and SQLSTATE class.
// Class 57 is operator intervention (shutdown, crash), 58 is system
// error, XX is internal error: all of those kill the session.
func classify(err error) (dut.FailureKind, string) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return dut.StatementFailure, ""
	}
	if pgErr.Severity == "FATAL" || pgErr.Severity == "PANIC" {
		return dut.BrokenSession, pgErr.Code
	}
	for _, class := range []string{"57", "58", "XX"} {
		if strings.HasPrefix(pgErr.Code, class) {
			return dut.BrokenSession, pgErr.Code
		}
	}
	return dut.StatementFailure, pgErr.Code
}
