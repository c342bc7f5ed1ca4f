// Package cli provides the command-line interface for querysmith.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/querysmith/internal/cli/commands"
	"github.com/leapstack-labs/querysmith/internal/cli/config"
	"github.com/spf13/cobra"

	// Register the built-in targets.
	_ "github.com/leapstack-labs/querysmith/pkg/duts/duckdb"
	_ "github.com/leapstack-labs/querysmith/pkg/duts/postgres"
	_ "github.com/leapstack-labs/querysmith/pkg/duts/sqlite"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "querysmith",
		Short: "querysmith - random SQL generator and database fuzzer",
		Long: `querysmith generates random, grammatically valid SQL statements against
a live database schema and executes them, watching for crashes, lost
connections, and other misbehavior.

It introspects the target's tables and columns, then grows statements
from a weighted grammar so that every identifier and type in the
generated SQL refers to something real.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for commands that never touch a target
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			// Load configuration with CLI flags layered on top
			var err error
			cfg, err = config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			// Build the run logger; verbose enables debug-level output
			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./querysmith.yaml)")
	rootCmd.PersistentFlags().StringP("driver", "d", "", "Target driver (postgres|sqlite|duckdb)")
	rootCmd.PersistentFlags().StringP("target", "t", "", "Target DSN (empty for in-memory where supported)")
	rootCmd.PersistentFlags().Int64("seed", 0, "Random seed (0 for time-based)")
	rootCmd.PersistentFlags().Uint64("max-queries", 0, "Stop after this many generated statements (0 for unbounded)")
	rootCmd.PersistentFlags().Int("max-depth", 0, "Maximum grammar nesting depth (0 for default)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Generate statements without executing them")
	rootCmd.PersistentFlags().Duration("backoff", 0, "Delay between reconnection attempts")
	rootCmd.PersistentFlags().String("log-db", "", "Path to a SQLite database for recording runs and failures")
	rootCmd.PersistentFlags().String("dump-asts", "", "Path to write generated statement trees as YAML")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	// Register completion for driver flag
	_ = rootCmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"postgres", "sqlite", "duckdb"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewSchemaCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for querysmith.

To load completions:

Bash:
  $ source <(querysmith completion bash)

Zsh:
  $ querysmith completion zsh > "${fpath[1]}/_querysmith"

Fish:
  $ querysmith completion fish | source

PowerShell:
  PS> querysmith completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
