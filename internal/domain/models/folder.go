package models

// Variant is the tagged union over {Folder, Document}. Click handling dispatches on it
// instead of inspecting IsFolder at every call site.
type Variant interface {
	NodeID() string
	variant()
}

// Expandable is implemented by variants that can be expanded or collapsed
type Expandable interface {
	Variant
	CanExpand() bool
}

// Selectable is implemented by variants that can be opened and multi-selected
type Selectable interface {
	Variant
	CanSelect() bool
}

// Folder is the folder variant of a Node
type Folder struct {
	Node
}

func (f Folder) NodeID() string  { return f.ID }
func (f Folder) CanExpand() bool { return !f.Deleted }
func (Folder) variant()          {}
