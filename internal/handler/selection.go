package handler

import (
	"log/slog"
	"net/http"

	"notetree/internal/httputil"
	"notetree/internal/service/notetree"
)

// SelectionHandler exposes the Selection Tracker
type SelectionHandler struct {
	selection *notetree.SelectionTracker
	logger    *slog.Logger
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(selection *notetree.SelectionTracker, logger *slog.Logger) *SelectionHandler {
	return &SelectionHandler{
		selection: selection,
		logger:    logger,
	}
}

// GetSelection returns the active document, multi-selection and expanded folders
// GET /api/selection
func (h *SelectionHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.selection.Snapshot())
}

// Click dispatches a tree click according to its modifier keys
// POST /api/selection/click
func (h *SelectionHandler) Click(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if !parseBody(w, r, &req) {
		return
	}
	h.respond(w, h.selection.Click(req.ID, req.ClickModifiers))
}

// SetActive opens a document, or toggles a folder's expansion
// POST /api/selection/active
func (h *SelectionHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req NodeIDRequest
	if !parseBody(w, r, &req) {
		return
	}
	h.respond(w, h.selection.SetActive(req.ID))
}

// ToggleMultiSelect adds or removes a document from the multi-selection
// POST /api/selection/toggle
func (h *SelectionHandler) ToggleMultiSelect(w http.ResponseWriter, r *http.Request) {
	var req NodeIDRequest
	if !parseBody(w, r, &req) {
		return
	}
	h.respond(w, h.selection.ToggleMultiSelect(req.ID))
}

// SelectRange replaces the multi-selection with the visible documents between two nodes
// POST /api/selection/range
func (h *SelectionHandler) SelectRange(w http.ResponseWriter, r *http.Request) {
	var req RangeRequest
	if !parseBody(w, r, &req) {
		return
	}
	h.respond(w, h.selection.SelectRange(req.FromID, req.ToID, h.selection.Visible()))
}

// ClearMultiSelect empties the multi-selection
// DELETE /api/selection/multi
func (h *SelectionHandler) ClearMultiSelect(w http.ResponseWriter, r *http.Request) {
	h.selection.ClearMultiSelect()
	h.respond(w, nil)
}

// GetFolderState returns a folder's derived tri-state
// GET /api/folders/{id}/state
func (h *SelectionHandler) GetFolderState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state, err := h.selection.FolderState(id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"id": id, "state": state})
}

// ToggleFolderSelection selects or deselects every document under a folder
// POST /api/folders/{id}/toggle-selection
func (h *SelectionHandler) ToggleFolderSelection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state, err := h.selection.ToggleFolderSelection(id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"id": id, "state": state})
}

// SetExpanded opens or collapses a folder
// PUT /api/folders/{id}/expanded
func (h *SelectionHandler) SetExpanded(w http.ResponseWriter, r *http.Request) {
	var req ExpandedRequest
	if !parseBody(w, r, &req) {
		return
	}
	h.respond(w, h.selection.SetExpanded(r.PathValue("id"), req.Expanded))
}

// respond writes the selection snapshot, or the error
func (h *SelectionHandler) respond(w http.ResponseWriter, err error) {
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.selection.Snapshot())
}
