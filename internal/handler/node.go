package handler

import (
	"log/slog"
	"net/http"

	"notetree/internal/domain/models"
	"notetree/internal/httputil"
	"notetree/internal/service/notetree"
)

// NodeHandler handles node HTTP requests. Every mutation goes through the Coordinator.
type NodeHandler struct {
	services *notetree.Services
	logger   *slog.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(services *notetree.Services, logger *slog.Logger) *NodeHandler {
	return &NodeHandler{
		services: services,
		logger:   logger,
	}
}

// ListNodes returns live nodes matching q in sibling order
// GET /api/nodes?q=
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.services.Search(r.URL.Query().Get("q")))
}

// GetNode returns a single live node
// GET /api/nodes/{id}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.services.Nodes.GetLive(r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, node)
}

// CreateNode creates a folder or document on top of its parent
// POST /api/nodes
// Returns 201 if created, 409 with the existing folder if the name is taken
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if !parseBody(w, r, &req) {
		return
	}

	node, err := h.services.Coordinator.Create(r.Context(), notetree.CreateRequest{
		Title:    req.Title,
		IsFolder: req.IsFolder,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		HandleCreateConflict(w, err, func(id string) (*models.Node, error) {
			existing, err := h.services.Nodes.GetLive(id)
			return &existing, err
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, node)
}

// UpdateNode renames or moves a node, one per request since each is its own undo step
// PATCH /api/nodes/{id}
// A parent_id without sort_order puts the node on top of the new parent.
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateNodeRequest
	if !parseBody(w, r, &req) {
		return
	}

	if req.Title != nil {
		node, err := h.services.Coordinator.Rename(r.Context(), id, *req.Title)
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, node)
		return
	}

	current, err := h.services.Nodes.GetLive(id)
	if err != nil {
		handleError(w, err)
		return
	}

	dest := models.Destination{ParentID: current.ParentID}
	if req.ParentID.Present {
		dest.ParentID = req.ParentID.Or(models.RootID)
	}
	if req.SortOrder != nil {
		dest.SortOrder = *req.SortOrder
	} else {
		if err := h.services.Relocation.CheckMove(id, dest.ParentID); err != nil {
			handleError(w, err)
			return
		}
		dest.SortOrder = h.services.Relocation.TopOf(dest.ParentID, id)
	}

	node, err := h.services.Coordinator.Move(r.Context(), id, dest)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, node)
}

// SaveContent replaces a document's body
// PUT /api/nodes/{id}/content
func (h *NodeHandler) SaveContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !parseBody(w, r, &req) {
		return
	}

	node, err := h.services.Coordinator.SaveContent(r.Context(), r.PathValue("id"), req.Content)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, node)
}

// GetDeleteImpact describes what deleting a node would remove
// GET /api/nodes/{id}/delete-impact
func (h *NodeHandler) GetDeleteImpact(w http.ResponseWriter, r *http.Request) {
	impact, err := h.services.Coordinator.DeletionImpact(r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, impact)
}

// DeleteNode soft-deletes a node and its subtree
// DELETE /api/nodes/{id}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Coordinator.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// GetBatchDeleteImpact describes what deleting a set of nodes would remove
// POST /api/nodes/batch-delete/impact
func (h *NodeHandler) GetBatchDeleteImpact(w http.ResponseWriter, r *http.Request) {
	var req IDsRequest
	if !parseBody(w, r, &req) {
		return
	}

	impact, err := h.services.Coordinator.DeletionImpact(req.IDs...)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, impact)
}

// BatchDelete soft-deletes a set of nodes, typically the multi-selection
// POST /api/nodes/batch-delete
func (h *NodeHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req IDsRequest
	if !parseBody(w, r, &req) {
		return
	}

	result, err := h.services.Coordinator.BatchDelete(r.Context(), req.IDs)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// CanMove answers whether the node may be dropped on target, without side effects
// GET /api/nodes/{id}/can-move?target=
func (h *NodeHandler) CanMove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	target := r.URL.Query().Get("target")

	resp := map[string]any{"can_move": true}
	if err := h.services.Relocation.CheckMove(id, target); err != nil {
		resp["can_move"] = false
		resp["reason"] = err.Error()
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// Drop completes a drag onto target
// POST /api/nodes/{id}/drop
func (h *NodeHandler) Drop(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if !parseBody(w, r, &req) {
		return
	}

	node, err := h.services.Coordinator.Drop(r.Context(), r.PathValue("id"), req.TargetID, req.Position)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, node)
}

// SetPreview records where an in-progress drag would land
// POST /api/drag-preview
func (h *NodeHandler) SetPreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !parseBody(w, r, &req) {
		return
	}

	dest, err := h.services.Coordinator.Preview(req.DraggedID, req.TargetID, req.Position)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, dest)
}

// ClearPreview ends the drag preview
// DELETE /api/drag-preview
func (h *NodeHandler) ClearPreview(w http.ResponseWriter, r *http.Request) {
	h.services.Coordinator.CancelPreview()
	w.WriteHeader(http.StatusNoContent)
}
