package notetree

import (
	"context"

	"notetree/internal/config"
	"notetree/internal/domain"
	"notetree/internal/domain/models"
)

// DeletionImpact describes what deleting ids would remove: the reduced roots, every
// live descendant, and whether the active document is among them. Nothing changes.
func (c *Coordinator) DeletionImpact(ids ...string) (*models.DeletionImpact, error) {
	if len(ids) == 0 {
		return nil, domain.NewValidation("ids", "at least one id is required")
	}
	if len(ids) > config.MaxBatchDelete {
		return nil, domain.NewValidation("ids", "cannot delete more than %d nodes at once", config.MaxBatchDelete)
	}
	for _, id := range ids {
		if _, err := c.nodes.GetLive(id); err != nil {
			return nil, err
		}
	}

	roots := c.nodes.Roots(ids)
	active := c.selection.ActiveID()
	impact := &models.DeletionImpact{RootIDs: roots, NodeIDs: []string{}}
	for _, root := range roots {
		for _, id := range c.nodes.Subtree(root) {
			node, _ := c.nodes.Get(id)
			impact.NodeIDs = append(impact.NodeIDs, id)
			if node.IsFolder {
				impact.Folders++
			} else {
				impact.Documents++
			}
			if id == active {
				impact.ContainsActive = true
			}
		}
	}
	impact.DescendantCount = len(impact.NodeIDs) - len(roots)
	return impact, nil
}

// Delete soft-deletes a node together with its live descendants
func (c *Coordinator) Delete(ctx context.Context, id string) (*models.DeleteResult, error) {
	return c.BatchDelete(ctx, []string{id})
}

// BatchDelete soft-deletes several nodes. Ids already covered by an ancestor in the
// set are folded into that ancestor, so every affected node is sent exactly once.
func (c *Coordinator) BatchDelete(ctx context.Context, ids []string) (*models.DeleteResult, error) {
	// Cheap rejection before waiting on locks
	if _, err := c.DeletionImpact(ids...); err != nil {
		return nil, err
	}

	release, err := c.locks.Structure(ctx)
	if err != nil {
		return nil, c.fail(MutationDelete, err)
	}
	defer release()

	// The subtree is collected under the lock so children created meanwhile go too
	impact, err := c.DeletionImpact(ids...)
	if err != nil {
		return nil, err
	}
	return c.softDelete(ctx, impact.RootIDs, impact.NodeIDs, true)
}

// softDeleteIDs deletes exactly ids, used when replaying history
func (c *Coordinator) softDeleteIDs(ctx context.Context, ids []string) error {
	release, err := c.locks.Structure(ctx)
	if err != nil {
		return c.fail(MutationDelete, err)
	}
	defer release()

	_, err = c.softDelete(ctx, c.nodes.Roots(ids), ids, false)
	return err
}

// softDelete expects the caller to hold the tree lock
func (c *Coordinator) softDelete(ctx context.Context, rootIDs, ids []string, record bool) (*models.DeleteResult, error) {
	// Some ids may already be gone
	live := make([]string, 0, len(ids))
	for _, id := range ids {
		if c.nodes.IsLive(id) {
			live = append(live, id)
		}
	}
	if len(live) == 0 {
		return nil, domain.NewNotFound(ids[0])
	}

	formerParent := models.RootID
	if len(rootIDs) > 0 {
		if root, ok := c.nodes.Get(rootIDs[0]); ok {
			formerParent = root.ParentID
		}
	}
	active := c.selection.ActiveID()
	activeAffected := false
	for _, id := range live {
		if id == active {
			activeAffected = true
			break
		}
	}

	overlay := make([]PendingChange, len(live))
	for i, id := range live {
		overlay[i] = PendingChange{NodeID: id, Kind: MutationDelete, Deleted: true}
	}
	c.pending.set(overlay...)
	defer c.pending.clear(live...)

	var err error
	if len(live) == 1 {
		err = c.repo.DeleteNode(ctx, live[0])
	} else {
		err = c.repo.BatchDeleteNodes(ctx, live)
	}
	if err != nil {
		return nil, c.fail(MutationDelete, err, "ids", len(live))
	}

	c.confirmDeleted(live, c.now())
	c.selection.prune(live)

	// The replacement is chosen after local removal and before anyone is told
	result := &models.DeleteResult{DeletedIDs: live, ActiveChanged: activeAffected}
	if activeAffected {
		result.NewActive = c.replacementFor(formerParent)
	}

	if record {
		c.history.Push(DeleteEntry{RootIDs: rootIDs, IDs: live})
	}

	c.logger.Info("nodes deleted",
		"roots", len(rootIDs),
		"count", len(live),
		"active_changed", activeAffected,
	)
	c.notifyTree()
	if activeAffected {
		c.selection.replaceActive(result.NewActive)
	}
	return result, nil
}

// replacementFor picks the document to open after the active one was removed: the
// first remaining document in the former parent, else the first document anywhere,
// else none.
func (c *Coordinator) replacementFor(formerParent string) *models.Node {
	for _, sibling := range c.nodes.Children(formerParent) {
		if !sibling.IsFolder {
			n := sibling
			return &n
		}
	}
	if first := FirstDocument(BuildTree(c.nodes.All(false), BuildOptions{})); first != nil {
		n := first.Node
		return &n
	}
	return nil
}
