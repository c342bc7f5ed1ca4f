package report

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querysmith/pkg/dut"
)

func TestStorePersistsFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	s, err := NewStore(path, "sqlite", nil)
	require.NoError(t, err)
	runID := s.RunID()
	require.NotEmpty(t, runID)

	ok := testStmt("select 1")
	s.Generated(ok)
	s.Executed(ok, dut.Outcome{Elapsed: time.Millisecond})

	bad := testStmt("select frum nowhere")
	s.Generated(bad)
	s.Error(bad, &dut.EngineError{
		Kind:     dut.StatementFailure,
		Dialect:  "sqlite",
		SQLState: "42601",
		Err:      errors.New("syntax error"),
	})

	gone := testStmt("select 2")
	s.Generated(gone)
	s.Error(gone, &dut.EngineError{Kind: dut.BrokenSession, Dialect: "sqlite", Err: errors.New("gone")})

	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var dialect string
	var generated, executed, failures, broken int
	err = db.QueryRow(
		`SELECT dialect, generated, executed, failures, broken FROM runs WHERE id = ?`, runID).
		Scan(&dialect, &generated, &executed, &failures, &broken)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", dialect)
	assert.Equal(t, 3, generated)
	assert.Equal(t, 1, executed)
	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, broken)

	rows, err := db.Query(
		`SELECT kind, sqlstate, stmt FROM failures WHERE run_id = ? ORDER BY id`, runID)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	type failure struct{ kind, sqlstate, stmt string }
	var got []failure
	for rows.Next() {
		var f failure
		require.NoError(t, rows.Scan(&f.kind, &f.sqlstate, &f.stmt))
		got = append(got, f)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 2)
	assert.Equal(t, "statement", got[0].kind)
	assert.Equal(t, "42601", got[0].sqlstate)
	assert.Equal(t, "select frum nowhere", got[0].stmt)
	assert.Equal(t, "broken-session", got[1].kind)
}

func TestStoreSeparatesRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")

	first, err := NewStore(path, "duckdb", nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(path, "duckdb", nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID(), second.RunID())
	require.NoError(t, second.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM runs`).Scan(&n))
	assert.Equal(t, 2, n)
}
