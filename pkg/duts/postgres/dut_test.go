package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/querysmith/pkg/dut"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expectKind  dut.FailureKind
		expectState string
	}{
		{
			name:        "syntax error is statement level",
			err:         &pgconn.PgError{Severity: "ERROR", Code: "42601"},
			expectKind:  dut.StatementFailure,
			expectState: "42601",
		},
		{
			name:        "fatal severity kills the session",
			err:         &pgconn.PgError{Severity: "FATAL", Code: "28000"},
			expectKind:  dut.BrokenSession,
			expectState: "28000",
		},
		{
			name:        "panic severity kills the session",
			err:         &pgconn.PgError{Severity: "PANIC", Code: "53300"},
			expectKind:  dut.BrokenSession,
			expectState: "53300",
		},
		{
			name:        "admin shutdown class 57",
			err:         &pgconn.PgError{Severity: "ERROR", Code: "57P01"},
			expectKind:  dut.BrokenSession,
			expectState: "57P01",
		},
		{
			name:        "system error class 58",
			err:         &pgconn.PgError{Severity: "ERROR", Code: "58030"},
			expectKind:  dut.BrokenSession,
			expectState: "58030",
		},
		{
			name:        "internal error class XX",
			err:         &pgconn.PgError{Severity: "ERROR", Code: "XX000"},
			expectKind:  dut.BrokenSession,
			expectState: "XX000",
		},
		{
			name:        "wrapped server error still classifies",
			err:         fmt.Errorf("exec: %w", &pgconn.PgError{Severity: "ERROR", Code: "57014"}),
			expectKind:  dut.BrokenSession,
			expectState: "57014",
		},
		{
			name:       "non-server error is statement level",
			err:        errors.New("something else"),
			expectKind: dut.StatementFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, state := classify(tt.err)
			assert.Equal(t, tt.expectKind, kind)
			assert.Equal(t, tt.expectState, state)
		})
	}
}

func TestRegistered(t *testing.T) {
	d, err := dut.New("postgres", nil)
	assert.NoError(t, err)
	assert.Equal(t, "postgres", d.DialectName())
}
