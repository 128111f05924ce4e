package models

import (
	"time"
)

// RootID is the parent id of top-level nodes
const RootID = ""

// Node is a folder or a document. IsFolder never changes after creation.
type Node struct {
	ID        string     `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	IsFolder  bool       `json:"is_folder" db:"is_folder"`
	ParentID  string     `json:"parent_id" db:"parent_id"` // "" = root level
	SortOrder float64    `json:"sort_order" db:"sort_order"`
	Content   string     `json:"content,omitempty" db:"content"` // Documents only
	Deleted   bool       `json:"is_deleted" db:"is_deleted"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsRoot reports whether the node sits at the top level
func (n Node) IsRoot() bool {
	return n.ParentID == RootID
}

// Variant returns the tagged-union view of the node
func (n Node) Variant() Variant {
	if n.IsFolder {
		return Folder{Node: n}
	}
	return Document{Node: n}
}

// CreateNodeInput is the payload for the store's createNode call.
// SortOrder is optional; stores assign a top-of-parent key when nil.
type CreateNodeInput struct {
	Title     string   `json:"title"`
	IsFolder  bool     `json:"is_folder"`
	ParentID  string   `json:"parent_id"`
	Content   string   `json:"content,omitempty"`
	SortOrder *float64 `json:"sort_order,omitempty"`
}

// NodePatch is a partial update. Nil fields are left unchanged.
type NodePatch struct {
	Title     *string  `json:"title,omitempty"`
	ParentID  *string  `json:"parent_id,omitempty"`
	SortOrder *float64 `json:"sort_order,omitempty"`
	Deleted   *bool    `json:"is_deleted,omitempty"`
	Content   *string  `json:"content,omitempty"`
}

// IsRestore reports whether the patch clears the soft-delete flag
func (p NodePatch) IsRestore() bool {
	return p.Deleted != nil && !*p.Deleted
}

// Apply copies the present fields onto n
func (p NodePatch) Apply(n *Node, now time.Time) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.ParentID != nil {
		n.ParentID = *p.ParentID
	}
	if p.SortOrder != nil {
		n.SortOrder = *p.SortOrder
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Deleted != nil {
		n.Deleted = *p.Deleted
		if n.Deleted {
			n.DeletedAt = &now
		} else {
			n.DeletedAt = nil
		}
	}
	n.UpdatedAt = now
}

// NodeFilter narrows a listNodes call
type NodeFilter struct {
	IncludeDeleted bool   // Return soft-deleted nodes too
	Query          string // Case-insensitive title/content match; empty = all
}

// Destination is where a relocation puts a node
type Destination struct {
	ParentID  string  `json:"parent_id"`
	SortOrder float64 `json:"sort_order"`
}

// Position is the drop position relative to a target node
type Position string

const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
	PositionInside Position = "inside"
)

// Valid reports whether p is a known drop position
func (p Position) Valid() bool {
	switch p {
	case PositionBefore, PositionAfter, PositionInside:
		return true
	}
	return false
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
