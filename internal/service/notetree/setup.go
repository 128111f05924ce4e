// Package notetree manages a hierarchical tree of folders and documents backed by an
// external store. The Coordinator is the only writer; everything else reads confirmed
// state from the NodeStore.
package notetree

import (
	"log/slog"
	"strings"
	"time"

	"notetree/internal/domain/models"
	"notetree/internal/domain/repositories"
	"notetree/internal/repository/cache"
)

// Options tune Setup
type Options struct {
	HistoryDepth  int              // Max undo entries; 0 = unbounded
	SortIncrement float64          // Default gap between sibling sort keys
	Now           func() time.Time // Clock; defaults to time.Now
}

// Services contains all tree manager components
type Services struct {
	Nodes       *NodeStore
	Selection   *SelectionTracker
	Relocation  *RelocationEngine
	Coordinator *Coordinator
	History     *History
	Pending     *PendingOverlay
	Events      *Notifier
}

// Setup wires the tree manager on top of repo. nodeCache may be nil.
func Setup(repo repositories.NodeRepository, nodeCache *cache.NodeCache, opts Options, logger *slog.Logger) *Services {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	nodes := NewNodeStore()
	events := NewNotifier(logger)
	selection := NewSelectionTracker(nodes, events, logger)
	relocation := NewRelocationEngine(nodes, opts.SortIncrement, now)
	pending := NewPendingOverlay()

	coordinator := &Coordinator{
		repo:       repo,
		nodes:      nodes,
		selection:  selection,
		relocation: relocation,
		pending:    pending,
		cache:      nodeCache,
		events:     events,
		locks:      newNodeLocks(),
		now:        now,
		logger:     logger,
	}
	coordinator.history = newHistory(coordinator, opts.HistoryDepth, logger)

	return &Services{
		Nodes:       nodes,
		Selection:   selection,
		Relocation:  relocation,
		Coordinator: coordinator,
		History:     coordinator.history,
		Pending:     pending,
		Events:      events,
	}
}

// Tree builds the live forest. With includePending, in-flight changes and the drag
// preview are layered on top and the affected nodes are flagged Pending.
func (s *Services) Tree(includePending bool) []*models.TreeNode {
	if !includePending {
		return BuildTree(s.Nodes.All(false), BuildOptions{})
	}

	nodes, touched := s.Pending.Apply(s.Nodes.All(true))
	forest := BuildTree(nodes, BuildOptions{})
	for _, root := range forest {
		root.Walk(func(tn *models.TreeNode) bool {
			tn.Pending = touched[tn.ID]
			return true
		})
	}
	return forest
}

// Snapshot is everything the editing surface needs to redraw
type Snapshot struct {
	Tree      []*models.TreeNode `json:"tree"`
	Selection models.Selection   `json:"selection"`
	History   HistoryState       `json:"history"`
	Preview   *Preview           `json:"preview,omitempty"`
}

// Snapshot captures the current tree (pending changes included), selection and history
func (s *Services) Snapshot() Snapshot {
	snap := Snapshot{
		Tree:      s.Tree(true),
		Selection: s.Selection.Snapshot(),
		History:   s.History.State(),
	}
	if preview, ok := s.Pending.CurrentPreview(); ok {
		snap.Preview = &preview
	}
	return snap
}

// Search returns live nodes whose title or content contains query, case-insensitively,
// in sibling order. An empty query matches everything.
func (s *Services) Search(query string) []models.Node {
	query = strings.ToLower(strings.TrimSpace(query))
	matches := []models.Node{}
	for _, n := range s.Nodes.All(false) {
		if query == "" ||
			strings.Contains(strings.ToLower(n.Title), query) ||
			strings.Contains(strings.ToLower(n.Content), query) {
			matches = append(matches, n)
		}
	}
	sortSiblings(matches)
	return matches
}
