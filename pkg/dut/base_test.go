package dut

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLDUT_Execute(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(mock sqlmock.Sqlmock)
		classify    func(err error) (FailureKind, string)
		expectRows  int64
		expectErr   bool
		expectKind  FailureKind
		expectState string
	}{
		{
			name: "success drains all rows",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"c_1"}).AddRow(1).AddRow(2).AddRow(3)
				mock.ExpectQuery("select").WillReturnRows(rows)
			},
			expectRows: 3,
		},
		{
			name: "engine error defaults to statement failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("select").WillReturnError(errors.New("syntax error"))
			},
			expectErr:  true,
			expectKind: StatementFailure,
		},
		{
			name: "transport loss beats the classify hook",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("select").WillReturnError(driver.ErrBadConn)
			},
			classify: func(error) (FailureKind, string) {
				return StatementFailure, "42601"
			},
			expectErr:  true,
			expectKind: BrokenSession,
		},
		{
			name: "classify hook buckets engine errors",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("select").WillReturnError(errors.New("terminating backend"))
			},
			classify: func(error) (FailureKind, string) {
				return BrokenSession, "57P01"
			},
			expectErr:   true,
			expectKind:  BrokenSession,
			expectState: "57P01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			base := &BaseSQLDUT{DB: db, Dialect: "test", Classify: tt.classify}
			out, err := base.Execute(context.Background(), "select 1")

			if tt.expectErr {
				require.Error(t, err)
				var engErr *EngineError
				require.ErrorAs(t, err, &engErr)
				assert.Equal(t, tt.expectKind, engErr.Kind)
				assert.Equal(t, tt.expectState, engErr.SQLState)
				assert.Equal(t, "test", engErr.Dialect)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectRows, out.RowsRead)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLDUT_ExecuteWithoutSession(t *testing.T) {
	base := &BaseSQLDUT{Dialect: "test"}
	_, err := base.Execute(context.Background(), "select 1")
	require.Error(t, err)

	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Contains(t, engErr.Error(), "session not established")
}

func TestBaseSQLDUT_Query(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("select name").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow("users"))

	base := &BaseSQLDUT{DB: db, Dialect: "test"}
	rows, err := base.Query(context.Background(), "select name from tables")
	require.NoError(t, err)
	require.NotNil(t, rows)
	assert.True(t, rows.Next())
	_ = rows.Close()

	nobody := &BaseSQLDUT{Dialect: "test"}
	_, err = nobody.Query(context.Background(), "select 1")
	assert.Error(t, err)
}

func TestBaseSQLDUT_Close(t *testing.T) {
	// Closing without a session is a no-op.
	base := &BaseSQLDUT{}
	assert.NoError(t, base.Close())

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	base.DB = db
	assert.NoError(t, base.Close())
	assert.Nil(t, base.DB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLDUT_DialectName(t *testing.T) {
	base := &BaseSQLDUT{Dialect: "duckdb"}
	assert.Equal(t, "duckdb", base.DialectName())
}
