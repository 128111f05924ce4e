package handler

import (
	"log/slog"
	"net/http"

	"notetree/internal/httputil"
	"notetree/internal/service/notetree"
)

// HistoryHandler exposes undo and redo
type HistoryHandler struct {
	history *notetree.History
	logger  *slog.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history *notetree.History, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// historyResponse reports the replayed entry and the stacks afterwards
type historyResponse struct {
	Kind  notetree.EntryKind    `json:"kind"`
	Entry notetree.Entry        `json:"entry"`
	State notetree.HistoryState `json:"state"`
}

// GetState returns both stack depths and the next entry kinds
// GET /api/history
func (h *HistoryHandler) GetState(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.history.State())
}

// Undo reverts the most recent action
// POST /api/history/undo
// Returns 409 when there is nothing to undo
func (h *HistoryHandler) Undo(w http.ResponseWriter, r *http.Request) {
	entry, err := h.history.Undo(r.Context())
	h.respond(w, entry, err)
}

// Redo reapplies the most recently undone action
// POST /api/history/redo
func (h *HistoryHandler) Redo(w http.ResponseWriter, r *http.Request) {
	entry, err := h.history.Redo(r.Context())
	h.respond(w, entry, err)
}

func (h *HistoryHandler) respond(w http.ResponseWriter, entry notetree.Entry, err error) {
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, historyResponse{
		Kind:  entry.Kind(),
		Entry: entry,
		State: h.history.State(),
	})
}
