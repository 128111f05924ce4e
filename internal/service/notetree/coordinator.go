package notetree

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"notetree/internal/domain"
	"notetree/internal/domain/models"
	"notetree/internal/domain/repositories"
	"notetree/internal/repository/cache"
)

// CreateRequest is the input for Coordinator.Create
type CreateRequest struct {
	Title    string `json:"title"`
	IsFolder bool   `json:"is_folder"`
	ParentID string `json:"parent_id"`
	Content  string `json:"content,omitempty"`
}

// Coordinator is the single entry point for user mutations. Each operation validates
// locally, calls the external store, and only on confirmation updates the Node Store,
// pushes history and notifies listeners. A failed store call leaves local state as it
// was.
type Coordinator struct {
	repo       repositories.NodeRepository
	nodes      *NodeStore
	selection  *SelectionTracker
	relocation *RelocationEngine
	pending    *PendingOverlay
	cache      *cache.NodeCache
	events     *Notifier
	history    *History
	locks      *nodeLocks
	now        func() time.Time
	logger     *slog.Logger

	// loadMu orders loads against confirmed writes: Node Store writes and the
	// journal of the in-flight load change together under it.
	loadMu     sync.Mutex
	loadGen    uint64
	loadCancel context.CancelFunc
	journal    *writeJournal
}

// History returns the undo/redo log fed by this coordinator
func (c *Coordinator) History() *History {
	return c.history
}

// Create validates and creates a folder or document at the top of its parent
func (c *Coordinator) Create(ctx context.Context, req CreateRequest) (*models.Node, error) {
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return nil, err
	}

	release, err := c.locks.Structure(ctx)
	if err != nil {
		return nil, c.fail(MutationCreate, err)
	}
	defer release()

	if err := requireFolderParent(c.nodes, req.ParentID); err != nil {
		return nil, err
	}
	if req.IsFolder {
		if err := checkFolderName(c.nodes, req.ParentID, title, ""); err != nil {
			return nil, err
		}
	}

	content := req.Content
	if req.IsFolder {
		content = ""
	}
	order := c.relocation.TopOf(req.ParentID, "")

	node, err := c.repo.CreateNode(ctx, models.CreateNodeInput{
		Title:     title,
		IsFolder:  req.IsFolder,
		ParentID:  req.ParentID,
		Content:   content,
		SortOrder: &order,
	})
	if err != nil {
		return nil, c.fail(MutationCreate, err, "title", title, "parent_id", req.ParentID)
	}

	c.confirm(*node)
	c.history.Push(CreateEntry{Node: *node})

	c.logger.Info("node created",
		"id", node.ID,
		"title", node.Title,
		"is_folder", node.IsFolder,
		"parent_id", node.ParentID,
	)
	c.notifyTree()
	return node, nil
}

// Rename changes a node's title. Renaming to the current title is a no-op.
func (c *Coordinator) Rename(ctx context.Context, id, title string) (*models.Node, error) {
	return c.rename(ctx, id, title, true)
}

func (c *Coordinator) rename(ctx context.Context, id, rawTitle string, record bool) (*models.Node, error) {
	title, err := normalizeTitle(rawTitle)
	if err != nil {
		return nil, err
	}

	current, err := c.nodes.GetLive(id)
	if err != nil {
		return nil, err
	}
	// Folder titles are unique among siblings, so a folder rename holds the tree
	var release func()
	if current.IsFolder {
		release, err = c.locks.Structure(ctx)
	} else {
		release, err = c.locks.Acquire(ctx, id)
	}
	if err != nil {
		return nil, c.fail(MutationRename, err)
	}
	defer release()

	node, err := c.nodes.GetLive(id)
	if err != nil {
		return nil, err
	}
	if node.Title == title {
		return &node, nil
	}
	if node.IsFolder {
		if err := checkFolderName(c.nodes, node.ParentID, title, id); err != nil {
			return nil, err
		}
	}

	c.pending.set(PendingChange{NodeID: id, Kind: MutationRename, Title: &title})
	defer c.pending.clear(id)

	updated, err := c.repo.UpdateNode(ctx, id, models.NodePatch{Title: &title})
	if err != nil {
		return nil, c.fail(MutationRename, err, "id", id)
	}

	c.confirm(*updated)
	if record {
		c.history.Push(RenameEntry{ID: id, OldTitle: node.Title, NewTitle: updated.Title})
	}

	c.logger.Info("node renamed", "id", id, "old_title", node.Title, "new_title", updated.Title)
	c.notifyTree()
	return updated, nil
}

// Move places a node under parentID with the given sort key
func (c *Coordinator) Move(ctx context.Context, id string, dest models.Destination) (*models.Node, error) {
	return c.move(ctx, id, dest, true)
}

func (c *Coordinator) move(ctx context.Context, id string, dest models.Destination, record bool) (*models.Node, error) {
	if err := validateSortOrder(dest.SortOrder); err != nil {
		return nil, err
	}
	// Cheap rejection before waiting on locks
	if err := c.relocation.CheckMove(id, dest.ParentID); err != nil {
		return nil, err
	}

	// Parent links only change under the tree lock, so the check below sees every
	// move confirmed before this one and none can land until this one is done
	release, err := c.locks.Structure(ctx)
	if err != nil {
		return nil, c.fail(MutationMove, err)
	}
	defer release()

	node, err := c.nodes.GetLive(id)
	if err != nil {
		return nil, err
	}
	if err := c.relocation.CheckMove(id, dest.ParentID); err != nil {
		return nil, err
	}
	if err := requireFolderParent(c.nodes, dest.ParentID); err != nil {
		return nil, err
	}
	if node.ParentID == dest.ParentID && node.SortOrder == dest.SortOrder {
		return &node, nil
	}
	if node.IsFolder && node.ParentID != dest.ParentID {
		if err := checkFolderName(c.nodes, dest.ParentID, node.Title, id); err != nil {
			return nil, err
		}
	}

	c.pending.set(PendingChange{NodeID: id, Kind: MutationMove, ParentID: &dest.ParentID, SortOrder: &dest.SortOrder})
	defer c.pending.clear(id)

	updated, err := c.repo.UpdateNode(ctx, id, models.NodePatch{
		ParentID:  &dest.ParentID,
		SortOrder: &dest.SortOrder,
	})
	if err != nil {
		return nil, c.fail(MutationMove, err, "id", id, "parent_id", dest.ParentID)
	}

	c.confirm(*updated)
	if record {
		c.history.Push(MoveEntry{
			ID:   id,
			From: models.Destination{ParentID: node.ParentID, SortOrder: node.SortOrder},
			To:   models.Destination{ParentID: updated.ParentID, SortOrder: updated.SortOrder},
		})
	}

	c.logger.Info("node moved",
		"id", id,
		"from_parent", node.ParentID,
		"to_parent", updated.ParentID,
		"sort_order", updated.SortOrder,
	)
	c.notifyTree()
	return updated, nil
}

// Drop completes a drag: it computes the destination and moves the node there
func (c *Coordinator) Drop(ctx context.Context, draggedID, targetID string, pos models.Position) (*models.Node, error) {
	c.pending.ClearPreview()
	dest, err := c.relocation.ComputeRelocation(draggedID, targetID, pos)
	if err != nil {
		return nil, err
	}
	return c.Move(ctx, draggedID, dest)
}

// Preview shows where a drop would land without mutating anything
func (c *Coordinator) Preview(draggedID, targetID string, pos models.Position) (models.Destination, error) {
	dest, err := c.relocation.ComputeRelocation(draggedID, targetID, pos)
	if err != nil {
		c.pending.ClearPreview()
		return models.Destination{}, err
	}
	c.pending.setPreview(Preview{DraggedID: draggedID, TargetID: targetID, Position: pos, Destination: dest})
	return dest, nil
}

// CancelPreview drops the drag preview
func (c *Coordinator) CancelPreview() {
	c.pending.ClearPreview()
}

// SaveContent stores a document body. Content edits are not part of history.
func (c *Coordinator) SaveContent(ctx context.Context, id, content string) (*models.Node, error) {
	release, err := c.locks.Acquire(ctx, id)
	if err != nil {
		return nil, c.fail(MutationContent, err)
	}
	defer release()

	node, err := c.nodes.GetLive(id)
	if err != nil {
		return nil, err
	}
	if node.IsFolder {
		return nil, domain.NewValidation("id", "folder %s has no content", id)
	}
	if node.Content == content {
		return &node, nil
	}

	updated, err := c.repo.UpdateNode(ctx, id, models.NodePatch{Content: &content})
	if err != nil {
		return nil, c.fail(MutationContent, err, "id", id)
	}

	c.confirm(*updated)
	c.logger.Debug("content saved", "id", id, "bytes", len(content))
	return updated, nil
}

// Reload fetches the full node set. A newer Reload cancels and supersedes an older
// one, which then returns domain.ErrSuperseded without touching state. Writes
// confirmed while the listing was in flight are laid over it, so a load never rolls
// back a change. When the store is unreachable and nothing is loaded yet, the cache
// is used instead and fromCache is true.
func (c *Coordinator) Reload(ctx context.Context) (fromCache bool, err error) {
	c.loadMu.Lock()
	if c.loadCancel != nil {
		c.loadCancel()
	}
	c.loadGen++
	gen := c.loadGen
	ctx, cancel := context.WithCancel(ctx)
	c.loadCancel = cancel
	c.journal = newWriteJournal()
	c.loadMu.Unlock()
	defer cancel()

	nodes, listErr := c.repo.ListNodes(ctx, models.NodeFilter{IncludeDeleted: true})

	c.loadMu.Lock()
	if gen != c.loadGen {
		c.loadMu.Unlock()
		c.logger.Debug("discarding superseded load", "generation", gen)
		return false, domain.ErrSuperseded
	}
	c.loadCancel = nil
	journal := c.journal
	c.journal = nil

	var loadErr error
	if listErr != nil {
		loadErr = classifyStoreError(string(MutationLoad), listErr)
		cached := c.cache.Nodes()
		if c.nodes.Len() > 0 || len(cached) == 0 {
			c.loadMu.Unlock()
			c.logger.Warn("load failed", "error", loadErr)
			c.events.mutationFailed(MutationLoad, loadErr)
			return false, loadErr
		}
		nodes = journal.apply(cached)
		fromCache = true
	} else {
		if journal.len() > 0 {
			c.logger.Debug("applying writes confirmed during load", "count", journal.len())
		}
		nodes = journal.apply(nodes)
		c.cache.PutAll(nodes)
	}

	c.nodes.Replace(nodes)
	activeGone := c.selection.reconcile()
	c.loadMu.Unlock()

	if loadErr != nil {
		c.logger.Warn("store unavailable, serving cached nodes", "error", loadErr, "count", len(nodes))
		c.events.mutationFailed(MutationLoad, loadErr)
	}
	c.logger.Info("nodes loaded", "count", len(nodes), "from_cache", fromCache)
	c.notifyTree()
	if activeGone {
		c.selection.replaceActive(c.replacementFor(models.RootID))
	}
	return fromCache, nil
}

// restore clears the deleted flag on each id. Calls are issued concurrently; every
// confirmed restore is applied even when others fail.
func (c *Coordinator) restore(ctx context.Context, ids []string) error {
	release, err := c.locks.Structure(ctx)
	if err != nil {
		return c.fail(MutationRestore, err)
	}
	defer release()

	for _, id := range ids {
		if _, ok := c.nodes.Get(id); !ok {
			return domain.NewNotFound(id)
		}
	}

	restored := make([]*models.Node, len(ids))
	// Plain group: one failure must not cancel the other restores
	var g errgroup.Group
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			n, err := c.repo.UpdateNode(ctx, id, models.NodePatch{Deleted: models.Ptr(false)})
			if err != nil {
				return err
			}
			restored[i] = n
			return nil
		})
	}
	waitErr := g.Wait()

	applied := 0
	for _, n := range restored {
		if n != nil {
			c.confirm(*n)
			applied++
		}
	}
	if applied > 0 {
		c.logger.Info("nodes restored", "count", applied, "requested", len(ids))
		c.notifyTree()
	}
	if waitErr != nil {
		return c.fail(MutationRestore, waitErr, "restored", applied, "requested", len(ids))
	}
	return nil
}

func (c *Coordinator) renameTo(ctx context.Context, id, title string) error {
	_, err := c.rename(ctx, id, title, false)
	return err
}

func (c *Coordinator) moveTo(ctx context.Context, id string, dest models.Destination) error {
	_, err := c.move(ctx, id, dest, false)
	return err
}

// confirm writes store-confirmed nodes into the Node Store and the cache
func (c *Coordinator) confirm(nodes ...models.Node) {
	c.loadMu.Lock()
	c.nodes.Upsert(nodes...)
	c.journal.upsert(nodes...)
	c.loadMu.Unlock()

	for _, n := range nodes {
		c.cache.Put(n)
	}
}

// confirmDeleted flags ids as soft-deleted once the store agreed
func (c *Coordinator) confirmDeleted(ids []string, at time.Time) {
	c.loadMu.Lock()
	c.nodes.MarkDeleted(ids, at)
	marked := make([]models.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := c.nodes.Get(id); ok {
			marked = append(marked, n)
		}
	}
	c.journal.upsert(marked...)
	c.loadMu.Unlock()

	c.cache.PutAll(marked)
}

// EvictDeleted forgets nodes soft-deleted before the cutoff. The retention purger
// calls it after the store removed them for good.
func (c *Coordinator) EvictDeleted(before time.Time) int {
	c.loadMu.Lock()
	var ids []string
	for _, n := range c.nodes.All(true) {
		if n.Deleted && n.DeletedAt != nil && n.DeletedAt.Before(before) {
			ids = append(ids, n.ID)
		}
	}
	c.nodes.Remove(ids...)
	c.journal.remove(ids...)
	c.loadMu.Unlock()

	c.cache.Remove(ids...)
	if len(ids) > 0 {
		c.logger.Debug("evicted purged nodes", "count", len(ids))
	}
	return len(ids)
}

// fail classifies a store-side error, logs it and notifies listeners
func (c *Coordinator) fail(kind MutationKind, err error, attrs ...any) error {
	classified := classifyStoreError(string(kind), err)
	c.logger.Warn("mutation failed", append([]any{"kind", kind, "error", classified}, attrs...)...)
	c.events.mutationFailed(kind, classified)
	return classified
}

func (c *Coordinator) notifyTree() {
	c.events.treeChanged(c.nodes.All(false))
}
