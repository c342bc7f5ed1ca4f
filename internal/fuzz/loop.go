package fuzz

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/leapstack-labs/querysmith/pkg/dut"
	"github.com/leapstack-labs/querysmith/pkg/grammar"
)

// Config controls one run loop.
type Config struct {
	// MaxStatements stops the loop cleanly after this many generated
	// statements; 0 means run until cancelled.
	MaxStatements uint64

	// Backoff is the fixed pause before each session recovery attempt.
	Backoff time.Duration

	// DryRun generates and renders statements without executing them.
	DryRun bool
}

// DefaultBackoff is the pause between session recovery attempts.
const DefaultBackoff = time.Second

// Stats are the counters a finished (or cancelled) run reports.
type Stats struct {
	Generated         uint64
	Executed          uint64
	StatementFailures uint64
	BrokenSessions    uint64
	Recoveries        uint64
}

// Reloader rebuilds the statement factory after a session recovery.
// The schema may have drifted while the target was down (DDL applied,
// target restored from backup), so recovery re-introspects instead of
// assuming the old schema still holds.
type Reloader func(ctx context.Context) (*grammar.Factory, error)

// Loop owns the generate→render→execute→classify cycle against one
// target, including the unbounded broken-session recovery path.
type Loop struct {
	factory *grammar.Factory
	target  dut.DUT
	obs     *Observers
	cfg     Config
	reload  Reloader
	logger  *slog.Logger
}

// New builds a run loop. reload may be nil, in which case recovery
// keeps the existing factory. If logger is nil, a discard logger is used.
func New(factory *grammar.Factory, target dut.DUT, obs *Observers, cfg Config, reload Reloader, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if obs == nil {
		obs = NewObservers(logger)
	}
	return &Loop{
		factory: factory,
		target:  target,
		obs:     obs,
		cfg:     cfg,
		reload:  reload,
		logger:  logger,
	}
}

// Run drives the loop until the statement ceiling is reached (nil
// error), or ctx is cancelled (ctx.Err()). Statement failures never end
// the run; broken sessions are recovered indefinitely. Observers are
// closed on every exit path.
func (l *Loop) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	defer func() {
		if err := l.obs.Close(); err != nil {
			l.logger.Warn("observer shutdown failed", slog.Any("error", err))
		}
	}()

	for {
		// Cancellation is only honored between statements, never in the
		// middle of building one, so a half-built statement is never
		// observed.
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if l.cfg.MaxStatements > 0 && stats.Generated >= l.cfg.MaxStatements {
			l.logger.Info("statement ceiling reached", slog.Uint64("generated", stats.Generated))
			return stats, nil
		}

		stmt := l.factory.Build()
		stats.Generated++
		l.obs.Generated(stmt)
		if l.cfg.DryRun {
			continue
		}

		out, err := l.target.Execute(ctx, grammar.SQL(stmt))
		if err == nil {
			stats.Executed++
			l.obs.Executed(stmt, out)
			continue
		}
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		var engErr *dut.EngineError
		if !errors.As(err, &engErr) {
			engErr = &dut.EngineError{Kind: dut.StatementFailure, Dialect: l.target.DialectName(), Err: err}
		}
		l.obs.Error(stmt, engErr)

		if engErr.Kind == dut.StatementFailure {
			stats.StatementFailures++
			continue
		}

		stats.BrokenSessions++
		l.logger.Warn("session broken, entering recovery", slog.Any("error", engErr))
		if err := l.recover(ctx); err != nil {
			return stats, err
		}
		stats.Recoveries++
	}
}

// recover sleeps the fixed backoff and recreates the target session,
// retrying forever: a long-running fuzzing session must survive target
// restarts. Only cancellation ends it.
func (l *Loop) recover(ctx context.Context) error {
	timer := time.NewTimer(l.cfg.Backoff)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if err := l.target.Reconnect(ctx); err != nil {
			l.logger.Warn("reconnect failed, will retry", slog.Any("error", err))
			timer.Reset(l.cfg.Backoff)
			continue
		}
		if l.reload != nil {
			factory, err := l.reload(ctx)
			if err != nil {
				l.logger.Warn("schema reload failed, will retry", slog.Any("error", err))
				timer.Reset(l.cfg.Backoff)
				continue
			}
			l.factory = factory
		}
		l.logger.Info("session recovered")
		return nil
	}
}
