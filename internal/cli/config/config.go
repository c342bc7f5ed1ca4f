// Package config loads querysmith's run configuration from defaults,
// an optional YAML file, environment variables, and CLI flags, in
// ascending precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the fully resolved run configuration.
type Config struct {
	// Driver is the registered DUT name (postgres, sqlite, duckdb).
	Driver string `koanf:"driver"`

	// Target is the opaque connection descriptor handed to the driver.
	Target string `koanf:"target"`

	// Seed seeds the generator RNG; 0 seeds from the clock.
	Seed int64 `koanf:"seed"`

	// MaxQueries stops the run after this many statements; 0 is unbounded.
	MaxQueries uint64 `koanf:"max_queries"`

	// MaxDepth bounds grammar recursion; 0 uses the built-in default.
	MaxDepth int `koanf:"max_depth"`

	// DryRun renders statements without executing them.
	DryRun bool `koanf:"dry_run"`

	// Backoff is the pause before each session recovery attempt.
	Backoff time.Duration `koanf:"backoff"`

	// LogDB, when set, persists failures to this SQLite database.
	LogDB string `koanf:"log_db"`

	// DumpASTs, when set, writes every generated tree to this file.
	DumpASTs string `koanf:"dump_asts"`

	Verbose bool `koanf:"verbose"`
}

// Validate checks the cross-field rules and fills driver-specific
// conveniences (file-backed engines default to in-memory databases).
func (c *Config) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("no target driver configured (use --driver)")
	}
	if c.Target == "" {
		switch c.Driver {
		case "sqlite", "duckdb":
			c.Target = ":memory:"
		default:
			return fmt.Errorf("no connection descriptor configured (use --target)")
		}
	}
	if c.Backoff < 0 {
		return fmt.Errorf("backoff must not be negative")
	}
	return nil
}
