package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/querysmith/internal/cli/config"
	"github.com/leapstack-labs/querysmith/pkg/dut"
	"github.com/leapstack-labs/querysmith/pkg/schema"
	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the schema the generator would fuzz against",
		Long: `Connect to the target, introspect its tables and columns, and print what
the generator sees: every table with its column names, mapped types, and
whether statements may write to it.

Useful for checking that a target exposes enough surface before starting
a long run.`,
		Example: `  # Inspect a local DuckDB file
  querysmith schema --driver duckdb --target fuzz.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd)
		},
	}
	return cmd
}

func runSchema(cmd *cobra.Command) error {
	cfg := config.GetCurrentConfig()
	logger := config.GetLogger(cmd.Context())
	ctx := cmd.Context()

	target, err := dut.New(cfg.Driver, logger)
	if err != nil {
		return err
	}
	if err := target.Connect(ctx, cfg.Target); err != nil {
		return fmt.Errorf("failed to connect to %s target: %w", cfg.Driver, err)
	}
	defer target.Close()

	sch, err := schema.Load(ctx, target, logger)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Table", "Column", "Type", "Nullable", "Writable"})
	for _, tbl := range sch.Tables {
		for i, col := range tbl.Columns {
			name := ""
			if i == 0 {
				name = tbl.Name
			}
			t.AppendRow(table.Row{name, col.Name, col.Type.String(), col.Nullable, col.Writable})
		}
		t.AppendSeparator()
	}
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "%d tables, %d routines (%s)\n",
		len(sch.Tables), len(sch.Routines), sch.Dialect)
	return nil
}
