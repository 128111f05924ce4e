package handler

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"notetree/internal/config"
	"notetree/internal/domain/models"
	"notetree/internal/httputil"
)

var positionRule = validation.In(models.PositionBefore, models.PositionAfter, models.PositionInside)

// CreateNodeRequest is the body of POST /api/nodes
type CreateNodeRequest struct {
	Title    string `json:"title"`
	IsFolder bool   `json:"is_folder"`
	ParentID string `json:"parent_id"`
	Content  string `json:"content"`
}

func (r *CreateNodeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required),
	)
}

// UpdateNodeRequest is the body of PATCH /api/nodes/{id}.
// parent_id null moves the node to the root level. A title cannot be combined
// with parent_id or sort_order.
type UpdateNodeRequest struct {
	Title     *string                 `json:"title"`
	ParentID  httputil.OptionalString `json:"parent_id"`
	SortOrder *float64                `json:"sort_order"`
}

func (r *UpdateNodeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.By(func(any) error {
			if r.Title != nil && (r.ParentID.Present || r.SortOrder != nil) {
				return validation.NewError("validation_rename_and_move", "rename and move must be separate requests")
			}
			return nil
		})),
		validation.Field(&r.ParentID, validation.By(func(any) error {
			if r.Title == nil && !r.ParentID.Present && r.SortOrder == nil {
				return validation.NewError("validation_empty_patch", "nothing to update")
			}
			return nil
		})),
	)
}

// ContentRequest is the body of PUT /api/nodes/{id}/content
type ContentRequest struct {
	Content string `json:"content"`
}

func (r *ContentRequest) Validate() error { return nil }

// IDsRequest carries a set of node ids for batch operations
type IDsRequest struct {
	IDs []string `json:"ids"`
}

func (r *IDsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.IDs,
			validation.Required,
			validation.Length(1, config.MaxBatchDelete),
			validation.Each(validation.Required),
		),
	)
}

// DropRequest is the body of POST /api/nodes/{id}/drop. target_id "" is the root.
type DropRequest struct {
	TargetID string          `json:"target_id"`
	Position models.Position `json:"position"`
}

func (r *DropRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Position, validation.Required, positionRule),
	)
}

// PreviewRequest is the body of POST /api/drag-preview
type PreviewRequest struct {
	DraggedID string          `json:"dragged_id"`
	TargetID  string          `json:"target_id"`
	Position  models.Position `json:"position"`
}

func (r *PreviewRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DraggedID, validation.Required),
		validation.Field(&r.Position, validation.Required, positionRule),
	)
}

// NodeIDRequest names a single node
type NodeIDRequest struct {
	ID string `json:"id"`
}

func (r *NodeIDRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required),
	)
}

// RangeRequest is the body of POST /api/selection/range
type RangeRequest struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

func (r *RangeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FromID, validation.Required),
		validation.Field(&r.ToID, validation.Required),
	)
}

// ClickRequest is the body of POST /api/selection/click
type ClickRequest struct {
	ID string `json:"id"`
	models.ClickModifiers
}

func (r *ClickRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required),
	)
}

// ExpandedRequest is the body of PUT /api/folders/{id}/expanded
type ExpandedRequest struct {
	Expanded bool `json:"expanded"`
}

func (r *ExpandedRequest) Validate() error { return nil }
