package models

// Document is the leaf variant of a Node
type Document struct {
	Node
}

func (d Document) NodeID() string  { return d.ID }
func (d Document) CanSelect() bool { return !d.Deleted }
func (Document) variant()          {}
