package report

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // sqlite driver for the log database

	"github.com/leapstack-labs/querysmith/internal/fuzz"
	"github.com/leapstack-labs/querysmith/pkg/dut"
	"github.com/leapstack-labs/querysmith/pkg/grammar"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store persists every classified failure to a SQLite log database so
// a long fuzzing session leaves an inspectable trail. Successful
// statements are only counted, not stored; the volume would be useless.
type Store struct {
	db     *sql.DB
	runID  string
	logger *slog.Logger

	generated uint64
	executed  uint64
	failures  uint64
	broken    uint64
}

var _ fuzz.Observer = (*Store)(nil)

// NewStore opens (or creates) the log database at path, migrates it,
// and registers a new run row. If logger is nil, a discard logger is used.
func NewStore(path, dialect string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open log database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping log database: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &Store{db: db, runID: uuid.New().String(), logger: logger}
	_, err = db.Exec(`INSERT INTO runs (id, dialect, started_at) VALUES (?, ?, ?)`,
		s.runID, dialect, time.Now().UTC())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create run row: %w", err)
	}
	logger.Debug("error log opened", slog.String("path", path), slog.String("run", s.runID))
	return s, nil
}

// RunID identifies this run's row in the log database.
func (s *Store) RunID() string { return s.runID }

// Generated counts a built statement.
func (s *Store) Generated(grammar.Stmt) { s.generated++ }

// Executed counts a success.
func (s *Store) Executed(grammar.Stmt, dut.Outcome) { s.executed++ }

// Error persists one classified failure.
func (s *Store) Error(stmt grammar.Stmt, engErr *dut.EngineError) {
	if engErr.Kind == dut.BrokenSession {
		s.broken++
	} else {
		s.failures++
	}
	_, err := s.db.Exec(
		`INSERT INTO failures (run_id, created_at, kind, sqlstate, stmt, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.runID, time.Now().UTC(), engErr.Kind.String(), engErr.SQLState,
		grammar.SQL(stmt), engErr.Err.Error())
	if err != nil {
		s.logger.Warn("failed to persist failure", slog.Any("error", err))
	}
}

// Close finalizes the run row and releases the database.
func (s *Store) Close() error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, generated = ?, executed = ?, failures = ?, broken = ?
		 WHERE id = ?`,
		time.Now().UTC(), s.generated, s.executed, s.failures, s.broken, s.runID)
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}
