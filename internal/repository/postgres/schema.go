package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const nodesSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
    id          TEXT PRIMARY KEY,
    title       TEXT             NOT NULL,
    is_folder   BOOLEAN          NOT NULL DEFAULT FALSE,
    parent_id   TEXT             NOT NULL DEFAULT '',
    sort_order  DOUBLE PRECISION NOT NULL DEFAULT 0,
    content     TEXT             NOT NULL DEFAULT '',
    is_deleted  BOOLEAN          NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
    deleted_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS %[1]s_parent_idx ON %[1]s (parent_id) WHERE is_deleted = FALSE;
CREATE INDEX IF NOT EXISTS %[1]s_deleted_at_idx ON %[1]s (deleted_at) WHERE is_deleted = TRUE;
`

// EnsureSchema creates the prefixed nodes table and its indexes if missing
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, fmt.Sprintf(nodesSchema, tables.Nodes)); err != nil {
		return fmt.Errorf("ensure %s schema: %w", tables.Nodes, err)
	}
	return nil
}

// DropSchema removes the prefixed nodes table. Used by the reset script.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", tables.Nodes)); err != nil {
		return fmt.Errorf("drop %s: %w", tables.Nodes, err)
	}
	return nil
}
