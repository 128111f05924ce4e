package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notetree/internal/domain"
	"notetree/internal/domain/models"
	"notetree/internal/domain/repositories"
)

var (
	_ repositories.NodeRepository = (*PostgresNodeRepository)(nil)
	_ repositories.Purger         = (*PostgresNodeRepository)(nil)
)

const nodeColumns = `id, title, is_folder, parent_id, sort_order, content, is_deleted, created_at, updated_at, deleted_at`

// PostgresNodeRepository implements NodeRepository on a prefixed nodes table
type PostgresNodeRepository struct {
	pool      *pgxpool.Pool
	tables    *TableNames
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(config *RepositoryConfig) *PostgresNodeRepository {
	return &PostgresNodeRepository{
		pool:      config.Pool,
		tables:    config.Tables,
		txManager: NewTransactionManager(config.Pool, config.Logger),
		logger:    config.Logger,
	}
}

// ListNodes returns nodes ordered by sort key descending
func (r *PostgresNodeRepository) ListNodes(ctx context.Context, filter models.NodeFilter) ([]models.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE 1 = 1`, nodeColumns, r.tables.Nodes)
	var args []any
	if !filter.IncludeDeleted {
		query += ` AND is_deleted = FALSE`
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		query += fmt.Sprintf(` AND (title ILIKE $%d OR content ILIKE $%d)`, len(args), len(args))
	}
	query += ` ORDER BY sort_order DESC, id ASC`

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
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
func (r *PostgresNodeRepository) CreateNode(ctx context.Context, in models.CreateNodeInput) (*models.Node, error) {
	var node models.Node
	err := r.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := r.checkParent(ctx, in.ParentID); err != nil {
			return err
		}

		now := time.Now().UTC()
		order := float64(now.UnixMilli())
		if in.SortOrder != nil {
			order = *in.SortOrder
		}
		content := in.Content
		if in.IsFolder {
			content = ""
		}

		query := fmt.Sprintf(`
			INSERT INTO %s (id, title, is_folder, parent_id, sort_order, content, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			RETURNING %s
		`, r.tables.Nodes, nodeColumns)

		var err error
		node, err = scanNode(GetExecutor(ctx, r.pool).QueryRow(ctx, query,
			uuid.NewString(), in.Title, in.IsFolder, in.ParentID, order, content, now,
		))
		if err != nil {
			if isPgDuplicateError(err) {
				return fmt.Errorf("node '%s': %w", in.Title, domain.ErrConflict)
			}
			return fmt.Errorf("create node: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// UpdateNode applies a partial update under a row lock. Soft-deleted nodes only
// accept a restore.
func (r *PostgresNodeRepository) UpdateNode(ctx context.Context, id string, patch models.NodePatch) (*models.Node, error) {
	var node models.Node
	err := r.txManager.ExecTx(ctx, func(ctx context.Context) error {
		exec := GetExecutor(ctx, r.pool)

		var err error
		node, err = scanNode(exec.QueryRow(ctx,
			fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, nodeColumns, r.tables.Nodes), id))
		if err != nil {
			if isPgNoRowsError(err) {
				return domain.NewNotFound(id)
			}
			return fmt.Errorf("get node: %w", err)
		}
		if node.Deleted && !patch.IsRestore() {
			return domain.NewNotFound(id)
		}

		if patch.ParentID != nil && *patch.ParentID != node.ParentID {
			if err := r.checkParent(ctx, *patch.ParentID); err != nil {
				return err
			}
			cyclic, err := r.chainContains(ctx, *patch.ParentID, id)
			if err != nil {
				return fmt.Errorf("check ancestry: %w", err)
			}
			if cyclic {
				return &domain.CycleError{DraggedID: id, TargetID: *patch.ParentID}
			}
		}

		patch.Apply(&node, time.Now().UTC())

		query := fmt.Sprintf(`
			UPDATE %s
			SET title = $1, parent_id = $2, sort_order = $3, content = $4,
			    is_deleted = $5, updated_at = $6, deleted_at = $7
			WHERE id = $8
		`, r.tables.Nodes)
		if _, err := exec.Exec(ctx, query,
			node.Title, node.ParentID, node.SortOrder, node.Content,
			node.Deleted, node.UpdatedAt, node.DeletedAt, id,
		); err != nil {
			return fmt.Errorf("update node: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// DeleteNode soft-deletes a single node
func (r *PostgresNodeRepository) DeleteNode(ctx context.Context, id string) error {
	return r.BatchDeleteNodes(ctx, []string{id})
}

// BatchDeleteNodes soft-deletes every id atomically, or none if any is missing
func (r *PostgresNodeRepository) BatchDeleteNodes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.txManager.ExecTx(ctx, func(ctx context.Context) error {
		query := fmt.Sprintf(`
			UPDATE %s SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
			WHERE id = ANY($1) AND is_deleted = FALSE
			RETURNING id
		`, r.tables.Nodes)

		rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, ids)
		if err != nil {
			return fmt.Errorf("delete nodes: %w", err)
		}
		deleted, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("delete nodes: %w", err)
		}

		if len(deleted) != len(ids) {
			seen := make(map[string]bool, len(deleted))
			for _, id := range deleted {
				seen[id] = true
			}
			for _, id := range ids {
				if !seen[id] {
					return domain.NewNotFound(id)
				}
			}
		}
		r.logger.Debug("nodes soft-deleted", "count", len(deleted))
		return nil
	})
}

// PurgeDeleted hard-removes nodes soft-deleted before the cutoff
func (r *PostgresNodeRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE is_deleted = TRUE AND deleted_at < $1`, r.tables.Nodes)
	tag, err := GetExecutor(ctx, r.pool).Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("purge deleted nodes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresNodeRepository) checkParent(ctx context.Context, parentID string) error {
	if parentID == models.RootID {
		return nil
	}
	var isFolder, deleted bool
	err := GetExecutor(ctx, r.pool).QueryRow(ctx,
		fmt.Sprintf(`SELECT is_folder, is_deleted FROM %s WHERE id = $1`, r.tables.Nodes), parentID,
	).Scan(&isFolder, &deleted)
	if err != nil {
		if isPgNoRowsError(err) {
			return domain.NewNotFound(parentID)
		}
		return fmt.Errorf("get parent: %w", err)
	}
	if deleted {
		return domain.NewNotFound(parentID)
	}
	if !isFolder {
		return domain.NewValidation("parent_id", "parent %s is not a folder", parentID)
	}
	return nil
}

// chainContains reports whether id is on the parent chain starting at start
func (r *PostgresNodeRepository) chainContains(ctx context.Context, start, id string) (bool, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE chain AS (
			SELECT id, parent_id FROM %[1]s WHERE id = $1
			UNION
			SELECT n.id, n.parent_id FROM %[1]s n JOIN chain c ON n.id = c.parent_id
		)
		SELECT EXISTS (SELECT 1 FROM chain WHERE id = $2)
	`, r.tables.Nodes)

	var found bool
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, start, id).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func scanNode(row pgx.Row) (models.Node, error) {
	var n models.Node
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.IsFolder,
		&n.ParentID,
		&n.SortOrder,
		&n.Content,
		&n.Deleted,
		&n.CreatedAt,
		&n.UpdatedAt,
		&n.DeletedAt,
	)
	return n, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
