// Package seed loads outline fixtures into a store through the Mutation Coordinator.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"notetree/internal/domain/models"
	"notetree/internal/service/notetree"
)

// Seeder creates outline items through the Coordinator, so seeded data obeys the
// same validation as user edits
type Seeder struct {
	coordinator *notetree.Coordinator
	logger      *slog.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(coordinator *notetree.Coordinator, logger *slog.Logger) *Seeder {
	return &Seeder{
		coordinator: coordinator,
		logger:      logger,
	}
}

// Seed creates items under parentID and returns the number of nodes created.
// New nodes land on top of their parent, so siblings are created last-first to keep
// outline order. Seeding stops at the first failure.
func (s *Seeder) Seed(ctx context.Context, parentID string, items []Item) (int, error) {
	created := 0
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		node, err := s.coordinator.Create(ctx, notetree.CreateRequest{
			Title:    item.Title,
			IsFolder: item.IsFolder(),
			ParentID: parentID,
			Content:  item.Content,
		})
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", item.Title, err)
		}
		created++
		s.logger.Debug("seeded node", "id", node.ID, "title", node.Title, "is_folder", node.IsFolder)

		n, err := s.Seed(ctx, node.ID, item.Children)
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

// Clear soft-deletes every live top-level node, taking their subtrees with them
func (s *Seeder) Clear(ctx context.Context, nodes *notetree.NodeStore) (int, error) {
	roots := nodes.Children(models.RootID)
	if len(roots) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(roots))
	for _, n := range roots {
		ids = append(ids, n.ID)
	}
	result, err := s.coordinator.BatchDelete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("clear nodes: %w", err)
	}
	return len(result.DeletedIDs), nil
}
