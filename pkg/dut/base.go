package dut

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// BaseSQLDUT provides the database/sql plumbing shared by all concrete
// drivers: open/ping, timed execute with full row drain, reconnect, and
// error classification. Embed it and supply DriverName, Dialect, and
// optionally Classify.
type BaseSQLDUT struct {
	DB         *sql.DB
	DSN        string
	DriverName string
	Dialect    string
	Logger     *slog.Logger

	// Classify buckets a dialect-specific engine error and extracts its
	// SQLSTATE. Transport-level connection loss is recognized before
	// this hook runs; nil means every engine error is statement-level.
	Classify func(err error) (FailureKind, string)
}

// Connect opens and pings a fresh session, remembering the descriptor
// for later reconnects.
func (b *BaseSQLDUT) Connect(ctx context.Context, dsn string) error {
	db, err := sql.Open(b.DriverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", b.Dialect, err)
	}
	// A fuzzing session is a single logical connection; pooling would
	// hide broken-session failures behind silent reconnects.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", b.Dialect, err)
	}
	b.DB = db
	b.DSN = dsn
	if b.Logger != nil {
		b.Logger.Debug("session established", slog.String("dialect", b.Dialect))
	}
	return nil
}

// Reconnect discards the current session and establishes a new one
// against the same descriptor.
func (b *BaseSQLDUT) Reconnect(ctx context.Context) error {
	if b.DB != nil {
		_ = b.DB.Close()
		b.DB = nil
	}
	return b.Connect(ctx, b.DSN)
}

// Execute submits one statement, drains any result rows, and measures
// elapsed time. Every failure returns a classified *EngineError.
func (b *BaseSQLDUT) Execute(ctx context.Context, stmt string) (Outcome, error) {
	if b.DB == nil {
		return Outcome{}, b.wrap(fmt.Errorf("session not established"))
	}
	start := time.Now()
	rows, err := b.DB.QueryContext(ctx, stmt)
	if err != nil {
		return Outcome{Elapsed: time.Since(start)}, b.wrap(err)
	}
	var n int64
	for rows.Next() {
		n++
	}
	err = rows.Err()
	_ = rows.Close()
	out := Outcome{Elapsed: time.Since(start), RowsRead: n}
	if err != nil {
		return out, b.wrap(err)
	}
	return out, nil
}

// Query runs an introspection query without outcome bookkeeping.
func (b *BaseSQLDUT) Query(ctx context.Context, stmt string) (*sql.Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("session not established")
	}
	//nolint:rowserrcheck // rows.Err() is checked by the caller after iteration
	rows, err := b.DB.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}

// DialectName returns the SQL dialect of the target engine.
func (b *BaseSQLDUT) DialectName() string { return b.Dialect }

// Close releases the underlying session.
func (b *BaseSQLDUT) Close() error {
	if b.DB != nil {
		err := b.DB.Close()
		b.DB = nil
		return err
	}
	return nil
}

func (b *BaseSQLDUT) wrap(err error) *EngineError {
	kind := StatementFailure
	sqlstate := ""
	if connectionLost(err) {
		kind = BrokenSession
	} else if b.Classify != nil {
		kind, sqlstate = b.Classify(err)
	}
	return &EngineError{Kind: kind, Dialect: b.Dialect, SQLState: sqlstate, Err: err}
}
