// Package fuzz owns the generate→execute→classify cycle: the observer
// fan-out for statement lifecycle events and the run loop that drives a
// target and recovers broken sessions.
package fuzz

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/querysmith/pkg/dut"
	"github.com/leapstack-labs/querysmith/pkg/grammar"
)

// Observer is notified at the three lifecycle points of a generated
// statement. Implementations must not retain the statement tree beyond
// the call. Close is the shutdown hook, invoked exactly once on every
// loop exit path.
type Observer interface {
	Generated(stmt grammar.Stmt)
	Executed(stmt grammar.Stmt, out dut.Outcome)
	Error(stmt grammar.Stmt, engErr *dut.EngineError)
	Close() error
}

// Observers fans lifecycle events out to a set of independent
// observers. A panicking observer is contained and logged; it never
// blocks the other observers or the run loop.
type Observers struct {
	list   []Observer
	logger *slog.Logger
}

// NewObservers builds a fan-out. If logger is nil, a discard logger is used.
func NewObservers(logger *slog.Logger, list ...Observer) *Observers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Observers{list: list, logger: logger}
}

// Generated notifies all observers of a freshly built statement.
func (o *Observers) Generated(stmt grammar.Stmt) {
	for _, obs := range o.list {
		o.guard(obs, func() { obs.Generated(stmt) })
	}
}

// Executed notifies all observers of a successful execution.
func (o *Observers) Executed(stmt grammar.Stmt, out dut.Outcome) {
	for _, obs := range o.list {
		o.guard(obs, func() { obs.Executed(stmt, out) })
	}
}

// Error notifies all observers of a classified engine failure.
func (o *Observers) Error(stmt grammar.Stmt, engErr *dut.EngineError) {
	for _, obs := range o.list {
		o.guard(obs, func() { obs.Error(stmt, engErr) })
	}
}

// Close shuts down every observer, joining their errors.
func (o *Observers) Close() error {
	var errs []error
	for _, obs := range o.list {
		if err := obs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("observer %T: %w", obs, err))
		}
	}
	return errors.Join(errs...)
}

func (o *Observers) guard(obs Observer, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("observer failed",
				slog.String("observer", fmt.Sprintf("%T", obs)),
				slog.Any("panic", r))
		}
	}()
	fn()
}
