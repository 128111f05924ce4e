package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "27121", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "dev_", cfg.TablePrefix)
	assert.Equal(t, 0, cfg.HistoryDepth)
	assert.Equal(t, 720*time.Hour, cfg.PurgeAfter)
	assert.True(t, cfg.Debug)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/notes")
	t.Setenv("HISTORY_DEPTH", "50")
	t.Setenv("TABLE_PREFIX", "x_")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 50, cfg.HistoryDepth)
	assert.Equal(t, "x_", cfg.TablePrefix)
	assert.False(t, cfg.Debug)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"negative history", map[string]string{"HISTORY_DEPTH": "-1"}},
		{"zero increment", map[string]string{"SORT_INCREMENT": "0"}},
		{"malformed int", map[string]string{"CACHE_SIZE": "lots"}},
		{"zero purge interval", map[string]string{"PURGE_INTERVAL": "0s"}},
		{"negative purge interval", map[string]string{"PURGE_INTERVAL": "-1h"}},
		{"negative purge window", map[string]string{"PURGE_AFTER": "-1h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_PurgeDisabledIgnoresInterval(t *testing.T) {
	t.Setenv("PURGE_AFTER", "0s")
	t.Setenv("PURGE_INTERVAL", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.PurgeAfter)
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"notetree-2024-01-01T00-00-00.000.log",
		"notetree-2024-01-02T00-00-00.000.log",
		"notetree-2024-01-03T00-00-00.000.log",
		"unrelated.log",
	}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}

	require.NoError(t, cleanupOldLogs(dir, 2))

	_, err := os.Stat(filepath.Join(dir, names[0]))
	assert.True(t, os.IsNotExist(err), "oldest log should be removed")
	for _, n := range names[1:] {
		_, err := os.Stat(filepath.Join(dir, n))
		assert.NoError(t, err, n)
	}
}
