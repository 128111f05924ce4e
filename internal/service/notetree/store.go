package notetree

import (
	"sort"
	"sync"
	"time"

	"notetree/internal/domain"
	"notetree/internal/domain/models"
)

// NodeStore is the in-memory mirror of confirmed store state, keyed by id.
// Only the Coordinator writes to it, and only after the external store confirmed.
type NodeStore struct {
	mu    sync.RWMutex
	nodes map[string]models.Node
}

// NewNodeStore creates an empty store
func NewNodeStore() *NodeStore {
	return &NodeStore{nodes: make(map[string]models.Node)}
}

// Replace swaps the whole node set, e.g. after a load
func (s *NodeStore) Replace(nodes []models.Node) {
	next := make(map[string]models.Node, len(nodes))
	for _, n := range nodes {
		next[n.ID] = n
	}
	s.mu.Lock()
	s.nodes = next
	s.mu.Unlock()
}

// Upsert inserts or overwrites nodes by id
func (s *NodeStore) Upsert(nodes ...models.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.nodes[n.ID] = n
	}
}

// MarkDeleted flags the exact ids as soft-deleted. Descendants are not touched.
func (s *NodeStore) MarkDeleted(ids []string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		n, ok := s.nodes[id]
		if !ok {
			continue
		}
		deletedAt := at
		n.Deleted = true
		n.DeletedAt = &deletedAt
		n.UpdatedAt = at
		s.nodes[id] = n
	}
}

// Remove forgets nodes entirely, once the store purged them
func (s *NodeStore) Remove(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.nodes, id)
	}
}

// Get returns the node including soft-deleted ones
func (s *NodeStore) Get(id string) (models.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// GetLive returns the node, or a NotFoundError if it is unknown or soft-deleted
func (s *NodeStore) GetLive(id string) (models.Node, error) {
	n, ok := s.Get(id)
	if !ok || n.Deleted {
		return models.Node{}, domain.NewNotFound(id)
	}
	return n, nil
}

// IsLive reports whether id is a known, non-deleted node
func (s *NodeStore) IsLive(id string) bool {
	n, ok := s.Get(id)
	return ok && !n.Deleted
}

// All returns a copy of the node set ordered by id
func (s *NodeStore) All(includeDeleted bool) []models.Node {
	s.mu.RLock()
	out := make([]models.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if n.Deleted && !includeDeleted {
			continue
		}
		out = append(out, n)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of nodes including soft-deleted ones
func (s *NodeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Children returns the live direct children of parentID in sibling order
func (s *NodeStore) Children(parentID string) []models.Node {
	s.mu.RLock()
	var out []models.Node
	for _, n := range s.nodes {
		if !n.Deleted && n.ParentID == parentID {
			out = append(out, n)
		}
	}
	s.mu.RUnlock()

	sortSiblings(out)
	return out
}

// Subtree returns id followed by every live descendant in pre-order sibling order.
// Unknown or soft-deleted ids yield nil.
func (s *NodeStore) Subtree(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root, ok := s.nodes[id]
	if !ok || root.Deleted {
		return nil
	}

	children := make(map[string][]models.Node)
	for _, n := range s.nodes {
		if !n.Deleted {
			children[n.ParentID] = append(children[n.ParentID], n)
		}
	}

	var out []string
	seen := make(map[string]bool)
	var visit func(string)
	visit = func(nodeID string) {
		if seen[nodeID] {
			return
		}
		seen[nodeID] = true
		out = append(out, nodeID)
		kids := children[nodeID]
		sortSiblings(kids)
		for _, k := range kids {
			visit(k.ID)
		}
	}
	visit(id)
	return out
}

// IsAncestor reports whether ancestorID appears on id's live parent chain.
// The walk stops on a missing parent or a repeated id, so corrupt cyclic data
// never loops forever.
func (s *NodeStore) IsAncestor(ancestorID, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := make(map[string]bool)
	current, ok := s.nodes[id]
	for ok && current.ParentID != models.RootID {
		if current.ParentID == ancestorID {
			return true
		}
		if visited[current.ParentID] {
			return false
		}
		visited[current.ParentID] = true
		current, ok = s.nodes[current.ParentID]
		if ok && current.Deleted {
			return false
		}
	}
	return false
}

// Roots reduces ids to those with no ancestor in the set, keeping input order
// and dropping duplicates.
func (s *NodeStore) Roots(ids []string) []string {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	var roots []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		covered := false
		for other := range set {
			if other != id && s.IsAncestor(other, id) {
				covered = true
				break
			}
		}
		if !covered {
			roots = append(roots, id)
		}
	}
	return roots
}
