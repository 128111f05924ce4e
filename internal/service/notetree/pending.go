package notetree

import (
	"sync"

	"notetree/internal/domain/models"
)

// PendingChange is a requested but unconfirmed change, rendered optimistically
// without ever touching the Node Store.
type PendingChange struct {
	NodeID    string       `json:"node_id"`
	Kind      MutationKind `json:"kind"`
	Title     *string      `json:"title,omitempty"`
	ParentID  *string      `json:"parent_id,omitempty"`
	SortOrder *float64     `json:"sort_order,omitempty"`
	Deleted   bool         `json:"deleted,omitempty"`
}

// Preview is the destination currently shown for an in-progress drag
type Preview struct {
	DraggedID   string             `json:"dragged_id"`
	TargetID    string             `json:"target_id"`
	Position    models.Position    `json:"position"`
	Destination models.Destination `json:"destination"`
}

// PendingOverlay holds in-flight mutations and the drag preview
type PendingOverlay struct {
	mu      sync.RWMutex
	changes map[string]PendingChange
	preview *Preview
}

// NewPendingOverlay creates an empty overlay
func NewPendingOverlay() *PendingOverlay {
	return &PendingOverlay{changes: make(map[string]PendingChange)}
}

func (p *PendingOverlay) set(changes ...PendingChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range changes {
		p.changes[c.NodeID] = c
	}
}

func (p *PendingOverlay) clear(ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		delete(p.changes, id)
	}
}

func (p *PendingOverlay) setPreview(preview Preview) {
	p.mu.Lock()
	p.preview = &preview
	p.mu.Unlock()
}

// ClearPreview drops the drag preview, if any
func (p *PendingOverlay) ClearPreview() {
	p.mu.Lock()
	p.preview = nil
	p.mu.Unlock()
}

// CurrentPreview returns the active drag preview
func (p *PendingOverlay) CurrentPreview() (Preview, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.preview == nil {
		return Preview{}, false
	}
	return *p.preview, true
}

// Changes lists the in-flight changes
func (p *PendingOverlay) Changes() []PendingChange {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PendingChange, 0, len(p.changes))
	for _, c := range p.changes {
		out = append(out, c)
	}
	return out
}

// Apply returns copies of nodes with pending changes and the preview layered on top,
// plus the set of ids that differ from confirmed state.
func (p *PendingOverlay) Apply(nodes []models.Node) ([]models.Node, map[string]bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.Node, len(nodes))
	touched := make(map[string]bool)
	for i, n := range nodes {
		if c, ok := p.changes[n.ID]; ok {
			if c.Title != nil {
				n.Title = *c.Title
			}
			if c.ParentID != nil {
				n.ParentID = *c.ParentID
			}
			if c.SortOrder != nil {
				n.SortOrder = *c.SortOrder
			}
			if c.Deleted {
				n.Deleted = true
			}
			touched[n.ID] = true
		}
		if p.preview != nil && p.preview.DraggedID == n.ID {
			n.ParentID = p.preview.Destination.ParentID
			n.SortOrder = p.preview.Destination.SortOrder
			touched[n.ID] = true
		}
		out[i] = n
	}
	return out, touched
}
