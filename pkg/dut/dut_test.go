package dut

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDUT struct {
	BaseSQLDUT
}

func TestRegistry(t *testing.T) {
	Register("stub", func(logger *slog.Logger) DUT {
		return &stubDUT{BaseSQLDUT: BaseSQLDUT{Dialect: "stub", Logger: logger}}
	})

	d, err := New("stub", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", d.DialectName())

	assert.Contains(t, List(), "stub")
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New("no-such-engine", nil)
	require.Error(t, err)

	var unknown *UnknownDUTError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no-such-engine", unknown.Name)
	assert.Contains(t, err.Error(), "no-such-engine")
}

// Compile-time check that the base satisfies the interface contract the
// concrete drivers rely on.
var _ interface {
	Connect(ctx context.Context, dsn string) error
	Reconnect(ctx context.Context) error
	Execute(ctx context.Context, stmt string) (Outcome, error)
	Query(ctx context.Context, stmt string) (*sql.Rows, error)
	DialectName() string
	Close() error
} = (*BaseSQLDUT)(nil)
