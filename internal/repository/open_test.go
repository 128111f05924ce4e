package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notetree/internal/config"
	"notetree/internal/domain/models"
	"notetree/internal/domain/repositories"
)

func TestOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"memory", &config.Config{StoreDriver: config.DriverMemory}},
		{"sqlite", &config.Config{StoreDriver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "notes.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, closeFn, err := Open(ctx, tt.cfg, logger)
			require.NoError(t, err)
			defer closeFn()

			_, err = repo.CreateNode(ctx, models.CreateNodeInput{Title: "hello"})
			require.NoError(t, err)
			nodes, err := repo.ListNodes(ctx, models.NodeFilter{})
			require.NoError(t, err)
			assert.Len(t, nodes, 1)

			_, purges := repo.(repositories.Purger)
			assert.True(t, purges)
		})
	}

	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := Open(ctx, &config.Config{StoreDriver: "mongo"}, logger)
		assert.Error(t, err)
	})
}
