package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notetree/internal/domain"
	"notetree/internal/domain/models"
)

func TestNewTableNames(t *testing.T) {
	assert.Equal(t, "dev_nodes", NewTableNames("dev_").Nodes)
	assert.Equal(t, "nodes", NewTableNames("").Nodes)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now \\ ok`, escapeLike(`50% off_now \ ok`))
}

// openTestRepo connects to TEST_DATABASE_URL and gives each test its own table
func openTestRepo(t *testing.T) *PostgresNodeRepository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := CreateConnectionPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	tables := NewTableNames("test_" + time.Now().Format("150405000") + "_")
	require.NoError(t, EnsureSchema(ctx, pool, tables))
	t.Cleanup(func() { _ = DropSchema(context.Background(), pool, tables) })

	return NewNodeRepository(&RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestNodeRepository_Lifecycle(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	folder, err := repo.CreateNode(ctx, models.CreateNodeInput{Title: "F", IsFolder: true, SortOrder: models.Ptr(2.0)})
	require.NoError(t, err)
	doc, err := repo.CreateNode(ctx, models.CreateNodeInput{Title: "d", ParentID: folder.ID, Content: "body"})
	require.NoError(t, err)

	_, err = repo.UpdateNode(ctx, folder.ID, models.NodePatch{ParentID: &folder.ID})
	assert.ErrorIs(t, err, domain.ErrCycle)

	renamed, err := repo.UpdateNode(ctx, doc.ID, models.NodePatch{Title: models.Ptr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", renamed.Title)

	require.NoError(t, repo.BatchDeleteNodes(ctx, []string{folder.ID, doc.ID}))
	live, err := repo.ListNodes(ctx, models.NodeFilter{})
	require.NoError(t, err)
	assert.Empty(t, live)

	assert.ErrorIs(t, repo.DeleteNode(ctx, doc.ID), domain.ErrNotFound)

	restored, err := repo.UpdateNode(ctx, doc.ID, models.NodePatch{Deleted: models.Ptr(false)})
	require.NoError(t, err)
	assert.False(t, restored.Deleted)

	removed, err := repo.PurgeDeleted(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
