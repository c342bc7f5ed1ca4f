package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/querysmith/internal/cli/config"
	"github.com/leapstack-labs/querysmith/internal/fuzz"
	"github.com/leapstack-labs/querysmith/internal/report"
	"github.com/leapstack-labs/querysmith/pkg/dut"
	"github.com/leapstack-labs/querysmith/pkg/grammar"
	"github.com/leapstack-labs/querysmith/pkg/schema"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate and execute random SQL against the target",
		Long: `Connect to the target database, introspect its schema, and feed it a
stream of randomly generated SQL statements.

Statement failures are counted and the run continues; a lost session is
reconnected with a fixed backoff and the schema is re-read, so the run
survives server restarts. The run stops on Ctrl-C or after --max-queries
statements.`,
		Example: `  # Fuzz an in-memory SQLite database forever
  querysmith run --driver sqlite

  # A reproducible bounded run against Postgres
  querysmith run --driver postgres --target "postgres://localhost/fuzz" \
    --seed 42 --max-queries 10000

  # Record failures for later triage
  querysmith run --driver duckdb --log-db failures.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd)
		},
	}
	return cmd
}

func runRun(cmd *cobra.Command) error {
	cfg := config.GetCurrentConfig()
	logger := config.GetLogger(cmd.Context())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target, err := dut.New(cfg.Driver, logger)
	if err != nil {
		return err
	}
	if err := target.Connect(ctx, cfg.Target); err != nil {
		return fmt.Errorf("failed to connect to %s target: %w", cfg.Driver, err)
	}
	defer target.Close()

	newFactory := func(ctx context.Context) (*grammar.Factory, error) {
		sch, err := schema.Load(ctx, target, logger)
		if err != nil {
			return nil, err
		}
		return grammar.New(sch, grammar.Options{
			Seed:     cfg.Seed,
			MaxDepth: cfg.MaxDepth,
		}), nil
	}

	// An unusable schema at startup is fatal; during recovery the loop
	// retries it instead.
	factory, err := newFactory(ctx)
	if err != nil {
		return err
	}

	observers := []fuzz.Observer{report.NewConsole(cmd.OutOrStdout(), cfg.Verbose)}
	if cfg.DryRun {
		// A dry run's product is the statement stream itself.
		observers = append(observers, report.NewEcho(cmd.OutOrStdout()))
	}
	if cfg.LogDB != "" {
		store, err := report.NewStore(cfg.LogDB, cfg.Driver, logger)
		if err != nil {
			return fmt.Errorf("failed to open failure log: %w", err)
		}
		observers = append(observers, store)
	}
	if cfg.DumpASTs != "" {
		dump, err := report.NewASTDump(cfg.DumpASTs)
		if err != nil {
			return fmt.Errorf("failed to open tree dump: %w", err)
		}
		observers = append(observers, dump)
	}

	loop := fuzz.New(factory, target, fuzz.NewObservers(logger, observers...), fuzz.Config{
		MaxStatements: cfg.MaxQueries,
		Backoff:       cfg.Backoff,
		DryRun:        cfg.DryRun,
	}, newFactory, logger)

	stats, err := loop.Run(ctx)
	logger.Info("run finished",
		"generated", stats.Generated,
		"executed", stats.Executed,
		"failures", stats.StatementFailures,
		"broken_sessions", stats.BrokenSessions,
		"recoveries", stats.Recoveries)

	// Interruption is the normal way to end an unbounded run.
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
