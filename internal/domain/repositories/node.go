package repositories

import (
	"context"
	"time"

	"notetree/internal/domain/models"
)

// NodeRepository is the external persistence collaborator. Every call may fail with a
// transport or validation error; callers must not assume atomicity across calls.
type NodeRepository interface {
	// ListNodes returns the flat node set (non-deleted unless the filter asks for all)
	ListNodes(ctx context.Context, filter models.NodeFilter) ([]models.Node, error)

	// CreateNode creates a folder or document and returns it with its assigned id
	CreateNode(ctx context.Context, in models.CreateNodeInput) (*models.Node, error)

	// UpdateNode applies a partial update. Soft-deleted nodes only accept a restore patch.
	UpdateNode(ctx context.Context, id string, patch models.NodePatch) (*models.Node, error)

	// DeleteNode soft-deletes a single node (children are not touched)
	DeleteNode(ctx context.Context, id string) error

	// BatchDeleteNodes soft-deletes every listed node in one call
	BatchDeleteNodes(ctx context.Context, ids []string) error
}

// Purger is implemented by stores that can permanently remove soft-deleted nodes
type Purger interface {
	// PurgeDeleted hard-removes nodes soft-deleted before the given time.
	// Returns the number of removed rows.
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}
