package notetree

import (
	"log/slog"
	"sort"
	"sync"

	"notetree/internal/domain"
	"notetree/internal/domain/models"
)

// SelectionTracker owns the active document, the multi-select set and the expanded
// folders. Folder selection state is never stored; FolderState derives it.
type SelectionTracker struct {
	nodes  *NodeStore
	events *Notifier
	logger *slog.Logger

	mu       sync.RWMutex
	activeID string
	multi    map[string]struct{}
	expanded map[string]struct{}
}

// NewSelectionTracker creates a tracker with nothing selected
func NewSelectionTracker(nodes *NodeStore, events *Notifier, logger *slog.Logger) *SelectionTracker {
	return &SelectionTracker{
		nodes:    nodes,
		events:   events,
		logger:   logger,
		multi:    make(map[string]struct{}),
		expanded: make(map[string]struct{}),
	}
}

// SetActive opens a document, or toggles expansion when id is a folder
func (t *SelectionTracker) SetActive(id string) error {
	node, err := t.nodes.GetLive(id)
	if err != nil {
		return err
	}

	switch v := node.Variant().(type) {
	case models.Expandable:
		t.toggleExpanded(v.NodeID())
		return nil
	case models.Selectable:
		t.mu.Lock()
		changed := t.activeID != v.NodeID()
		t.activeID = v.NodeID()
		t.mu.Unlock()

		if changed {
			t.logger.Debug("active document changed", "id", id)
			t.events.activeChanged(&node, models.ActiveChange{})
		}
		return nil
	}
	return domain.NewValidation("id", "node %s cannot be activated", id)
}

// ActiveID returns the active document id, or "" when none is open
func (t *SelectionTracker) ActiveID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activeID
}

// Active returns the active document, or nil
func (t *SelectionTracker) Active() *models.Node {
	id := t.ActiveID()
	if id == "" {
		return nil
	}
	node, err := t.nodes.GetLive(id)
	if err != nil {
		return nil
	}
	return &node
}

// ToggleMultiSelect adds or removes a document from the multi-select set.
// Folders are rejected; their selection follows from their documents.
func (t *SelectionTracker) ToggleMultiSelect(id string) error {
	node, err := t.nodes.GetLive(id)
	if err != nil {
		return err
	}
	if _, ok := node.Variant().(models.Selectable); !ok {
		return domain.NewValidation("id", "folder %s cannot be multi-selected", id)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.multi[id]; ok {
		delete(t.multi, id)
	} else {
		t.multi[id] = struct{}{}
	}
	return nil
}

// SelectRange replaces the multi-select set with every document between fromID and
// toID (inclusive) in visible order. Folders inside the range contribute all their
// descendant documents.
func (t *SelectionTracker) SelectRange(fromID, toID string, visible []string) error {
	from, to := -1, -1
	for i, id := range visible {
		if id == fromID {
			from = i
		}
		if id == toID {
			to = i
		}
	}
	if from < 0 {
		return domain.NewValidation("from", "node %s is not visible", fromID)
	}
	if to < 0 {
		return domain.NewValidation("to", "node %s is not visible", toID)
	}
	if from > to {
		from, to = to, from
	}

	forest := BuildTree(t.nodes.All(false), BuildOptions{})
	index := make(map[string]*models.TreeNode)
	for _, root := range forest {
		root.Walk(func(tn *models.TreeNode) bool {
			index[tn.ID] = tn
			return true
		})
	}

	next := make(map[string]struct{})
	for _, id := range visible[from : to+1] {
		tn, ok := index[id]
		if !ok {
			continue
		}
		for _, docID := range tn.DocumentIDs() {
			next[docID] = struct{}{}
		}
	}

	t.mu.Lock()
	t.multi = next
	t.mu.Unlock()
	return nil
}

// ClearMultiSelect empties the multi-select set
func (t *SelectionTracker) ClearMultiSelect() {
	t.mu.Lock()
	t.multi = make(map[string]struct{})
	t.mu.Unlock()
}

// IsMultiSelected reports whether a document is in the multi-select set
func (t *SelectionTracker) IsMultiSelected(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.multi[id]
	return ok
}

// FolderState derives the tri-state of a folder from its descendant documents.
// A folder without documents is always none.
func (t *SelectionTracker) FolderState(folderID string) (models.FolderState, error) {
	docs, err := t.folderDocuments(folderID)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return models.FolderStateNone, nil
	}

	t.mu.RLock()
	selected := 0
	for _, id := range docs {
		if _, ok := t.multi[id]; ok {
			selected++
		}
	}
	t.mu.RUnlock()

	switch selected {
	case 0:
		return models.FolderStateNone, nil
	case len(docs):
		return models.FolderStateAll, nil
	default:
		return models.FolderStatePartial, nil
	}
}

// ToggleFolderSelection selects every descendant document of a folder, or clears
// them all when the folder is already fully selected.
func (t *SelectionTracker) ToggleFolderSelection(folderID string) (models.FolderState, error) {
	state, err := t.FolderState(folderID)
	if err != nil {
		return "", err
	}
	docs, err := t.folderDocuments(folderID)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	for _, id := range docs {
		if state == models.FolderStateAll {
			delete(t.multi, id)
		} else {
			t.multi[id] = struct{}{}
		}
	}
	t.mu.Unlock()

	return t.FolderState(folderID)
}

func (t *SelectionTracker) folderDocuments(folderID string) ([]string, error) {
	node, err := t.nodes.GetLive(folderID)
	if err != nil {
		return nil, err
	}
	if !node.IsFolder {
		return nil, domain.NewValidation("id", "node %s is not a folder", folderID)
	}
	tn := FindTreeNode(BuildTree(t.nodes.All(false), BuildOptions{}), folderID)
	if tn == nil {
		return nil, nil
	}
	return tn.DocumentIDs(), nil
}

// SetExpanded expands or collapses a folder
func (t *SelectionTracker) SetExpanded(folderID string, expanded bool) error {
	node, err := t.nodes.GetLive(folderID)
	if err != nil {
		return err
	}
	if _, ok := node.Variant().(models.Expandable); !ok {
		return domain.NewValidation("id", "document %s cannot be expanded", folderID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if expanded {
		t.expanded[folderID] = struct{}{}
	} else {
		delete(t.expanded, folderID)
	}
	return nil
}

func (t *SelectionTracker) toggleExpanded(folderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.expanded[folderID]; ok {
		delete(t.expanded, folderID)
	} else {
		t.expanded[folderID] = struct{}{}
	}
}

// IsExpanded reports whether a folder is expanded
func (t *SelectionTracker) IsExpanded(folderID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.expanded[folderID]
	return ok
}

// Visible returns the ids currently shown in the tree, top to bottom
func (t *SelectionTracker) Visible() []string {
	return Flatten(BuildTree(t.nodes.All(false), BuildOptions{}), t.IsExpanded)
}

// Click dispatches a tree click on the node variant: folders expand or collapse,
// documents open, toggle or extend a range depending on modifiers.
func (t *SelectionTracker) Click(id string, mods models.ClickModifiers) error {
	node, err := t.nodes.GetLive(id)
	if err != nil {
		return err
	}

	switch v := node.Variant().(type) {
	case models.Expandable:
		if !v.CanExpand() {
			return domain.NewNotFound(id)
		}
		t.toggleExpanded(id)
		return nil
	case models.Selectable:
		if !v.CanSelect() {
			return domain.NewNotFound(id)
		}
		if anchor := t.ActiveID(); mods.Range && anchor != "" {
			return t.SelectRange(anchor, id, t.Visible())
		}
		if mods.Toggle {
			return t.ToggleMultiSelect(id)
		}
		return t.SetActive(id)
	}
	return domain.NewValidation("id", "node %s cannot be clicked", id)
}

// Snapshot returns a sorted copy of the selection
func (t *SelectionTracker) Snapshot() models.Selection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return models.Selection{
		ActiveID:       t.activeID,
		MultiSelectIDs: sortedKeys(t.multi),
		ExpandedIDs:    sortedKeys(t.expanded),
	}
}

// prune drops ids from the multi-select and expanded sets. It reports whether the
// active document was among them; the caller picks the replacement.
func (t *SelectionTracker) prune(ids []string) (activeRemoved bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		delete(t.multi, id)
		delete(t.expanded, id)
		if id == t.activeID {
			activeRemoved = true
		}
	}
	return activeRemoved
}

// reconcile drops every id that is no longer live, e.g. after a reload
func (t *SelectionTracker) reconcile() (activeRemoved bool) {
	t.mu.Lock()
	var dead []string
	for id := range t.multi {
		if !t.nodes.IsLive(id) {
			dead = append(dead, id)
		}
	}
	for id := range t.expanded {
		if !t.nodes.IsLive(id) {
			dead = append(dead, id)
		}
	}
	if t.activeID != "" && !t.nodes.IsLive(t.activeID) {
		dead = append(dead, t.activeID)
	}
	t.mu.Unlock()

	return t.prune(dead)
}

// replaceActive sets the active document after its predecessor disappeared and
// notifies without an abandon prompt.
func (t *SelectionTracker) replaceActive(node *models.Node) {
	t.mu.Lock()
	if node == nil {
		t.activeID = ""
	} else {
		t.activeID = node.ID
	}
	t.mu.Unlock()

	t.events.activeChanged(node, models.ActiveChange{SkipAbandonPrompt: true})
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
