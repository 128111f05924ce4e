// Package sqlite provides the SQLite-backed node store used by the desktop build.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"notetree/internal/domain"
	"notetree/internal/domain/models"
	"notetree/internal/domain/repositories"
	"notetree/internal/repository/sqlite/migrations"
)

var (
	_ repositories.NodeRepository = (*Store)(nil)
	_ repositories.Purger         = (*Store)(nil)
)

const nodeColumns = `id, title, is_folder, parent_id, sort_order, content, is_deleted, created_at, updated_at, deleted_at`

// Store persists nodes in a single SQLite file
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (creating if needed) the database at path and applies migrations
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; SQLite serializes anyway and this avoids SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListNodes returns nodes ordered by sort key descending, newest on top
func (s *Store) ListNodes(ctx context.Context, filter models.NodeFilter) ([]models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE 1 = 1`
	var args []any
	if !filter.IncludeDeleted {
		query += ` AND is_deleted = 0`
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query += ` AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY sort_order DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []models.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// CreateNode inserts a node under the root or a live folder
func (s *Store) CreateNode(ctx context.Context, in models.CreateNodeInput) (*models.Node, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkParent(ctx, tx, in.ParentID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	node := models.Node{
		ID:        uuid.NewString(),
		Title:     in.Title,
		IsFolder:  in.IsFolder,
		ParentID:  in.ParentID,
		SortOrder: float64(now.UnixMilli()),
		CreatedAt: fromMillis(toMillis(now)),
		UpdatedAt: fromMillis(toMillis(now)),
	}
	if in.SortOrder != nil {
		node.SortOrder = *in.SortOrder
	}
	if !in.IsFolder {
		node.Content = in.Content
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO nodes (id, title, is_folder, parent_id, sort_order, content, is_deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		node.ID, node.Title, node.IsFolder, node.ParentID, node.SortOrder, node.Content,
		toMillis(node.CreatedAt), toMillis(node.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: node id %s", domain.ErrConflict, node.ID)
		}
		return nil, fmt.Errorf("create node: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}
	return &node, nil
}

// UpdateNode applies a partial update. Soft-deleted nodes only accept a restore.
func (s *Store) UpdateNode(ctx context.Context, id string, patch models.NodePatch) (*models.Node, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	node, err := getNode(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if node.Deleted && !patch.IsRestore() {
		return nil, domain.NewNotFound(id)
	}

	if patch.ParentID != nil && *patch.ParentID != node.ParentID {
		if err := checkParent(ctx, tx, *patch.ParentID); err != nil {
			return nil, err
		}
		cyclic, err := chainContains(ctx, tx, *patch.ParentID, id)
		if err != nil {
			return nil, fmt.Errorf("check ancestry: %w", err)
		}
		if cyclic {
			return nil, &domain.CycleError{DraggedID: id, TargetID: *patch.ParentID}
		}
	}

	patch.Apply(&node, fromMillis(toMillis(s.now())))

	var deletedAt *int64
	if node.DeletedAt != nil {
		v := toMillis(*node.DeletedAt)
		deletedAt = &v
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE nodes SET title = ?, parent_id = ?, sort_order = ?, content = ?, is_deleted = ?, updated_at = ?, deleted_at = ?
		 WHERE id = ?`,
		node.Title, node.ParentID, node.SortOrder, node.Content, node.Deleted, toMillis(node.UpdatedAt), deletedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update node: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return &node, nil
}

// DeleteNode soft-deletes a single node
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	return s.BatchDeleteNodes(ctx, []string{id})
}

// BatchDeleteNodes soft-deletes every id in one transaction, or none if any is missing
func (s *Store) BatchDeleteNodes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := toMillis(s.now())
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			`UPDATE nodes SET is_deleted = 1, deleted_at = ?, updated_at = ? WHERE id = ? AND is_deleted = 0`,
			now, now, id,
		)
		if err != nil {
			return fmt.Errorf("delete node %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("delete node %s: %w", id, err)
		} else if n == 0 {
			return domain.NewNotFound(id)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// PurgeDeleted hard-removes nodes soft-deleted before the cutoff
func (s *Store) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM nodes WHERE is_deleted = 1 AND deleted_at IS NOT NULL AND deleted_at < ?`,
		toMillis(before),
	)
	if err != nil {
		return 0, fmt.Errorf("purge deleted nodes: %w", err)
	}
	return res.RowsAffected()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (models.Node, error) {
	var (
		n                    models.Node
		createdAt, updatedAt int64
		deletedAt            sql.NullInt64
	)
	if err := row.Scan(&n.ID, &n.Title, &n.IsFolder, &n.ParentID, &n.SortOrder, &n.Content,
		&n.Deleted, &createdAt, &updatedAt, &deletedAt); err != nil {
		return models.Node{}, err
	}
	n.CreatedAt = fromMillis(createdAt)
	n.UpdatedAt = fromMillis(updatedAt)
	if deletedAt.Valid {
		t := fromMillis(deletedAt.Int64)
		n.DeletedAt = &t
	}
	return n, nil
}

func getNode(ctx context.Context, q queryer, id string) (models.Node, error) {
	n, err := scanNode(q.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Node{}, domain.NewNotFound(id)
	}
	if err != nil {
		return models.Node{}, fmt.Errorf("get node %s: %w", id, err)
	}
	return n, nil
}

func checkParent(ctx context.Context, q queryer, parentID string) error {
	if parentID == models.RootID {
		return nil
	}
	parent, err := getNode(ctx, q, parentID)
	if err != nil {
		return err
	}
	if parent.Deleted {
		return domain.NewNotFound(parentID)
	}
	if !parent.IsFolder {
		return domain.NewValidation("parent_id", "parent %s is not a folder", parentID)
	}
	return nil
}

// chainContains reports whether id appears on the parent chain starting at start
// (start included). UNION stops on rows already seen, so corrupt cycles terminate.
func chainContains(ctx context.Context, q queryer, start, id string) (bool, error) {
	var found int
	err := q.QueryRowContext(ctx, `
		WITH RECURSIVE chain(id, parent_id) AS (
			SELECT id, parent_id FROM nodes WHERE id = ?
			UNION
			SELECT n.id, n.parent_id FROM nodes n JOIN chain c ON n.id = c.parent_id
		)
		SELECT 1 FROM chain WHERE id = ? LIMIT 1`, start, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
