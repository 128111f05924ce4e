// Package memory is a process-local NodeRepository, used for tests and for running
// the server without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"notetree/internal/domain"
	"notetree/internal/domain/models"
	"notetree/internal/domain/repositories"
)

var (
	_ repositories.NodeRepository = (*Store)(nil)
	_ repositories.Purger         = (*Store)(nil)
)

// Store keeps nodes in a map guarded by a RWMutex
type Store struct {
	mu    sync.RWMutex
	nodes map[string]models.Node
	now   func() time.Time
	newID func() string
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides uuid generation
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		nodes: make(map[string]models.Node),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed inserts nodes verbatim, bypassing validation
func (s *Store) Seed(nodes ...models.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.nodes[n.ID] = n
	}
}

// ListNodes returns nodes ordered by sort key descending
func (s *Store) ListNodes(ctx context.Context, filter models.NodeFilter) ([]models.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]models.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if n.Deleted && !filter.IncludeDeleted {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(n.Title), query) &&
			!strings.Contains(strings.ToLower(n.Content), query) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder > out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateNode inserts a node under a live folder (or the root)
func (s *Store) CreateNode(ctx context.Context, in models.CreateNodeInput) (*models.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkParent(in.ParentID); err != nil {
		return nil, err
	}

	now := s.now()
	order := float64(now.UnixMilli())
	if in.SortOrder != nil {
		order = *in.SortOrder
	}
	node := models.Node{
		ID:        s.newID(),
		Title:     in.Title,
		IsFolder:  in.IsFolder,
		ParentID:  in.ParentID,
		SortOrder: order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !in.IsFolder {
		node.Content = in.Content
	}
	s.nodes[node.ID] = node
	return &node, nil
}

// UpdateNode applies a patch. Soft-deleted nodes only accept a restore.
func (s *Store) UpdateNode(ctx context.Context, id string, patch models.NodePatch) (*models.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok || (node.Deleted && !patch.IsRestore()) {
		return nil, domain.NewNotFound(id)
	}
	if patch.ParentID != nil && *patch.ParentID != node.ParentID {
		if err := s.checkParent(*patch.ParentID); err != nil {
			return nil, err
		}
		if s.isAncestor(id, *patch.ParentID) || *patch.ParentID == id {
			return nil, &domain.CycleError{DraggedID: id, TargetID: *patch.ParentID}
		}
	}

	patch.Apply(&node, s.now())
	s.nodes[id] = node
	return &node, nil
}

// DeleteNode soft-deletes one node. Children are left as they are.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	return s.BatchDeleteNodes(ctx, []string{id})
}

// BatchDeleteNodes soft-deletes every id, or none if any is missing
func (s *Store) BatchDeleteNodes(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if n, ok := s.nodes[id]; !ok || n.Deleted {
			return domain.NewNotFound(id)
		}
	}
	now := s.now()
	for _, id := range ids {
		n := s.nodes[id]
		models.NodePatch{Deleted: models.Ptr(true)}.Apply(&n, now)
		s.nodes[id] = n
	}
	return nil
}

// PurgeDeleted hard-removes nodes deleted before the cutoff
func (s *Store) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, n := range s.nodes {
		if n.Deleted && n.DeletedAt != nil && n.DeletedAt.Before(before) {
			delete(s.nodes, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) checkParent(parentID string) error {
	if parentID == models.RootID {
		return nil
	}
	parent, ok := s.nodes[parentID]
	if !ok || parent.Deleted {
		return domain.NewNotFound(parentID)
	}
	if !parent.IsFolder {
		return domain.NewValidation("parent_id", "parent %s is not a folder", parentID)
	}
	return nil
}

// isAncestor walks id's parent chain looking for ancestorID
func (s *Store) isAncestor(ancestorID, id string) bool {
	seen := make(map[string]bool)
	for cur := id; cur != models.RootID && !seen[cur]; {
		seen[cur] = true
		n, ok := s.nodes[cur]
		if !ok {
			return false
		}
		if n.ParentID == ancestorID {
			return true
		}
		cur = n.ParentID
	}
	return false
}
