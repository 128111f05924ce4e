package notetree

import (
	"time"

	"notetree/internal/domain"
	"notetree/internal/domain/models"
)

// RelocationEngine validates moves and computes drop destinations. It never
// mutates anything.
type RelocationEngine struct {
	nodes     *NodeStore
	increment float64
	now       func() time.Time
}

// NewRelocationEngine creates an engine. increment is the default sort key gap.
func NewRelocationEngine(nodes *NodeStore, increment float64, now func() time.Time) *RelocationEngine {
	if increment <= 0 {
		increment = 1
	}
	if now == nil {
		now = time.Now
	}
	return &RelocationEngine{nodes: nodes, increment: increment, now: now}
}

// CanMove reports whether dragged may be placed under or beside target
func (e *RelocationEngine) CanMove(draggedID, targetID string) bool {
	return e.CheckMove(draggedID, targetID) == nil
}

// CheckMove explains why a move is rejected: a CycleError when target is dragged or
// inside dragged's subtree, a NotFoundError when either node is not live.
// The root target is always accepted.
func (e *RelocationEngine) CheckMove(draggedID, targetID string) error {
	if draggedID == targetID {
		return &domain.CycleError{DraggedID: draggedID, TargetID: targetID}
	}
	if _, err := e.nodes.GetLive(draggedID); err != nil {
		return err
	}
	if targetID == models.RootID {
		return nil
	}
	if _, err := e.nodes.GetLive(targetID); err != nil {
		return err
	}
	if e.nodes.IsAncestor(draggedID, targetID) {
		return &domain.CycleError{DraggedID: draggedID, TargetID: targetID}
	}
	return nil
}

// ComputeRelocation returns where dropping dragged on target at pos puts it.
// Dropping on the root places the node at the top of the root level.
func (e *RelocationEngine) ComputeRelocation(draggedID, targetID string, pos models.Position) (models.Destination, error) {
	if err := e.CheckMove(draggedID, targetID); err != nil {
		return models.Destination{}, err
	}
	if targetID == models.RootID {
		return models.Destination{ParentID: models.RootID, SortOrder: e.TopOf(models.RootID, draggedID)}, nil
	}
	if !pos.Valid() {
		return models.Destination{}, domain.NewValidation("position", "unknown drop position %q", pos)
	}

	target, err := e.nodes.GetLive(targetID)
	if err != nil {
		return models.Destination{}, err
	}

	switch pos {
	case models.PositionInside:
		if !target.IsFolder {
			return models.Destination{}, domain.NewValidation("position", "cannot drop inside document %s", targetID)
		}
		return models.Destination{ParentID: target.ID, SortOrder: e.TopOf(target.ID, draggedID)}, nil
	case models.PositionBefore:
		return models.Destination{ParentID: target.ParentID, SortOrder: e.beside(target, draggedID, true)}, nil
	default:
		return models.Destination{ParentID: target.ParentID, SortOrder: e.beside(target, draggedID, false)}, nil
	}
}

// TopOf returns a sort key that places a node above every live child of parentID,
// ignoring excludeID. New nodes get a clock-derived key so later creations sort on top.
func (e *RelocationEngine) TopOf(parentID, excludeID string) float64 {
	top := float64(e.now().UnixMilli())
	for _, child := range e.nodes.Children(parentID) {
		if child.ID == excludeID {
			continue
		}
		if candidate := child.SortOrder + e.increment; candidate > top {
			top = candidate
		}
	}
	return top
}

// beside returns a key directly above (before) or below (after) target among its
// siblings. Siblings are ordered by descending key, so "before" means larger.
// When the default increment would reach the neighbour the midpoint is used.
func (e *RelocationEngine) beside(target models.Node, draggedID string, before bool) float64 {
	var siblings []models.Node
	for _, s := range e.nodes.Children(target.ParentID) {
		if s.ID != draggedID {
			siblings = append(siblings, s)
		}
	}

	idx := -1
	for i, s := range siblings {
		if s.ID == target.ID {
			idx = i
			break
		}
	}

	if before {
		key := target.SortOrder + e.increment
		if idx > 0 {
			if upper := siblings[idx-1].SortOrder; key >= upper {
				key = target.SortOrder + (upper-target.SortOrder)/2
			}
		}
		return key
	}

	key := target.SortOrder - e.increment
	if idx >= 0 && idx < len(siblings)-1 {
		if lower := siblings[idx+1].SortOrder; key <= lower {
			key = lower + (target.SortOrder-lower)/2
		}
	}
	return key
}
