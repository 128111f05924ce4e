package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"notetree/internal/domain"
	"notetree/internal/httputil"
	"notetree/internal/service/notetree"
)

// TreeHandler serves the built tree and whole-state operations
type TreeHandler struct {
	services *notetree.Services
	logger   *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(services *notetree.Services, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		services: services,
		logger:   logger,
	}
}

// HealthCheck is a simple health check endpoint
// GET /health
func (h *TreeHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"nodes":  h.services.Nodes.Len(),
		"time":   time.Now(),
	})
}

// GetTree returns the nested folder/document forest
// GET /api/tree?pending=true
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	tree := h.services.Tree(httputil.QueryBool(r, "pending"))
	httputil.RespondJSON(w, http.StatusOK, tree)
}

// GetSnapshot returns tree, selection, history and drag preview in one response
// GET /api/snapshot
func (h *TreeHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.services.Snapshot())
}

// Reload refetches every node from the store
// POST /api/reload
// Returns 200 with from_cache=true when the store was down and the cache served instead
func (h *TreeHandler) Reload(w http.ResponseWriter, r *http.Request) {
	fromCache, err := h.services.Coordinator.Reload(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrSuperseded) {
			h.logger.Debug("reload superseded by a newer request")
		}
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"from_cache": fromCache,
		"nodes":      h.services.Nodes.Len(),
	})
}
