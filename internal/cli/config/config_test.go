package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("driver", "", "")
	fs.String("target", "", "")
	fs.Int64("seed", 0, "")
	fs.Uint64("max-queries", 0, "")
	fs.Int("max-depth", 0, "")
	fs.Bool("dry-run", false, "")
	fs.Duration("backoff", 0, "")
	fs.String("log-db", "", "")
	fs.String("dump-asts", "", "")
	fs.Bool("verbose", false, "")
	return fs
}

func TestLoadConfigRequiresDriver(t *testing.T) {
	_, err := LoadConfig("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver")
}

func TestLoadConfigDefaults(t *testing.T) {
	fs := testFlags(t)
	require.NoError(t, fs.Set("driver", "postgres"))
	require.NoError(t, fs.Set("target", "postgres://localhost/fuzz"))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, uint64(0), cfg.MaxQueries)
	assert.Equal(t, time.Second, cfg.Backoff)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfigInMemoryDefaultTarget(t *testing.T) {
	for _, driver := range []string{"sqlite", "duckdb"} {
		fs := testFlags(t)
		require.NoError(t, fs.Set("driver", driver))

		cfg, err := LoadConfig("", fs)
		require.NoError(t, err)
		assert.Equal(t, ":memory:", cfg.Target, "file-backed engines default to in-memory")
	}

	// Network engines have no sensible default target.
	fs := testFlags(t)
	require.NoError(t, fs.Set("driver", "postgres"))
	_, err := LoadConfig("", fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target")
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "querysmith.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
driver: sqlite
seed: 42
max_queries: 1000
backoff: 250ms
verbose: true
`), 0644))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, uint64(1000), cfg.MaxQueries)
	assert.Equal(t, 250*time.Millisecond, cfg.Backoff)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "querysmith.yaml")
	require.NoError(t, os.WriteFile(path, []byte("driver: sqlite\nseed: 1\n"), 0644))

	t.Setenv("QUERYSMITH_SEED", "7")
	t.Setenv("QUERYSMITH_MAX_DEPTH", "4")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 4, cfg.MaxDepth)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("QUERYSMITH_DRIVER", "sqlite")
	t.Setenv("QUERYSMITH_SEED", "7")

	fs := testFlags(t)
	require.NoError(t, fs.Set("driver", "duckdb"))
	require.NoError(t, fs.Set("max-queries", "500"))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.Driver, "changed flag beats env")
	assert.Equal(t, int64(7), cfg.Seed, "env survives when the flag is unset")
	assert.Equal(t, uint64(500), cfg.MaxQueries)
}

func TestLoadConfigUnchangedFlagsAreIgnored(t *testing.T) {
	t.Setenv("QUERYSMITH_DRIVER", "sqlite")
	t.Setenv("QUERYSMITH_VERBOSE", "true")

	cfg, err := LoadConfig("", testFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.True(t, cfg.Verbose, "an unset flag's zero value must not mask env")
}

func TestLoadConfigRejectsNegativeBackoff(t *testing.T) {
	fs := testFlags(t)
	require.NoError(t, fs.Set("driver", "sqlite"))
	require.NoError(t, fs.Set("backoff", "-1s"))

	_, err := LoadConfig("", fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backoff")
}

func TestGetCurrentConfig(t *testing.T) {
	fs := testFlags(t)
	require.NoError(t, fs.Set("driver", "sqlite"))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)
	assert.Same(t, cfg, GetCurrentConfig())
}
