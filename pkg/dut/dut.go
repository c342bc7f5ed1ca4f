// Package dut is the execution harness: a uniform interface over
// heterogeneous target engines (devices under test), a registry of
// self-registering drivers, and the classification of engine failures
// into statement-level versus broken-session errors.
package dut

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Outcome describes one successful execution.
type Outcome struct {
	Elapsed  time.Duration
	RowsRead int64
}

// DUT drives one target engine session. Execute returns a *EngineError
// on any failure; Reconnect tears down and recreates the session after
// a broken-session classification.
type DUT interface {
	Connect(ctx context.Context, dsn string) error
	Reconnect(ctx context.Context) error
	Execute(ctx context.Context, stmt string) (Outcome, error)
	Query(ctx context.Context, stmt string) (*sql.Rows, error)
	DialectName() string
	Close() error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) DUT)
)

// Register adds a DUT factory to the registry. Called by driver
// implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) DUT) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates a DUT instance by registered name. The logger is passed
// through to the driver (nil uses a discard logger).
func New(name string, logger *slog.Logger) (DUT, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownDUTError{Name: name, Available: List()}
	}
	return factory(logger), nil
}

// List returns all registered driver names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownDUTError is returned when an unregistered driver is requested.
type UnknownDUTError struct {
	Name      string
	Available []string
}

func (e *UnknownDUTError) Error() string {
	return fmt.Sprintf("unknown target driver %q (available: %v)", e.Name, e.Available)
}
