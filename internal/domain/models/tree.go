package models

// TreeNode is a node in the built forest with its sorted children
type TreeNode struct {
	Node
	Children            []*TreeNode `json:"children"`
	DescendantDocuments int         `json:"descendant_document_count"` // Folders count descendants, not themselves
	Pending             bool        `json:"pending,omitempty"`         // Rendered from the pending overlay
}

// DocumentIDs returns the ids of all descendant documents in pre-order.
// A document returns its own id.
func (t *TreeNode) DocumentIDs() []string {
	if !t.IsFolder {
		return []string{t.ID}
	}
	var ids []string
	for _, child := range t.Children {
		ids = append(ids, child.DocumentIDs()...)
	}
	return ids
}

// Walk visits t and its descendants in pre-order until fn returns false
func (t *TreeNode) Walk(fn func(*TreeNode) bool) bool {
	if !fn(t) {
		return false
	}
	for _, child := range t.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// DeletionImpact is the safety disclosure shown before a delete is confirmed
type DeletionImpact struct {
	RootIDs         []string `json:"root_ids"`
	NodeIDs         []string `json:"node_ids"` // Roots and every live descendant, pre-order
	Folders         int      `json:"folders"`
	Documents       int      `json:"documents"`
	DescendantCount int      `json:"descendant_count"` // NodeIDs minus the roots
	ContainsActive  bool     `json:"contains_active"`
}

// DeleteResult reports what a confirmed delete changed
type DeleteResult struct {
	DeletedIDs []string `json:"deleted_ids"`
	// ActiveChanged is true when the active document was removed; NewActive is the
	// replacement (nil when no document remains).
	ActiveChanged bool  `json:"active_changed"`
	NewActive     *Node `json:"new_active,omitempty"`
}
