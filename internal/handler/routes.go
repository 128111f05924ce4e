package handler

import (
	"log/slog"
	"net/http"

	"notetree/internal/handler/sse"
	"notetree/internal/service/notetree"
)

// NewRouter registers every route on a fresh ServeMux
func NewRouter(services *notetree.Services, sseConfig *sse.Config, logger *slog.Logger) *http.ServeMux {
	treeHandler := NewTreeHandler(services, logger)
	nodeHandler := NewNodeHandler(services, logger)
	selectionHandler := NewSelectionHandler(services.Selection, logger)
	historyHandler := NewHistoryHandler(services.History, logger)
	eventsHandler := NewEventsHandler(services, sseConfig, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", treeHandler.HealthCheck)

	// Tree
	mux.HandleFunc("GET /api/tree", treeHandler.GetTree)
	mux.HandleFunc("GET /api/snapshot", treeHandler.GetSnapshot)
	mux.HandleFunc("POST /api/reload", treeHandler.Reload)

	// Nodes
	mux.HandleFunc("GET /api/nodes", nodeHandler.ListNodes)
	mux.HandleFunc("POST /api/nodes", nodeHandler.CreateNode)
	mux.HandleFunc("POST /api/nodes/batch-delete", nodeHandler.BatchDelete)
	mux.HandleFunc("POST /api/nodes/batch-delete/impact", nodeHandler.GetBatchDeleteImpact)
	mux.HandleFunc("GET /api/nodes/{id}", nodeHandler.GetNode)
	mux.HandleFunc("PATCH /api/nodes/{id}", nodeHandler.UpdateNode)
	mux.HandleFunc("DELETE /api/nodes/{id}", nodeHandler.DeleteNode)
	mux.HandleFunc("PUT /api/nodes/{id}/content", nodeHandler.SaveContent)
	mux.HandleFunc("GET /api/nodes/{id}/delete-impact", nodeHandler.GetDeleteImpact)
	mux.HandleFunc("GET /api/nodes/{id}/can-move", nodeHandler.CanMove)
	mux.HandleFunc("POST /api/nodes/{id}/drop", nodeHandler.Drop)

	// Drag preview
	mux.HandleFunc("POST /api/drag-preview", nodeHandler.SetPreview)
	mux.HandleFunc("DELETE /api/drag-preview", nodeHandler.ClearPreview)

	// Selection
	mux.HandleFunc("GET /api/selection", selectionHandler.GetSelection)
	mux.HandleFunc("POST /api/selection/click", selectionHandler.Click)
	mux.HandleFunc("POST /api/selection/active", selectionHandler.SetActive)
	mux.HandleFunc("POST /api/selection/toggle", selectionHandler.ToggleMultiSelect)
	mux.HandleFunc("POST /api/selection/range", selectionHandler.SelectRange)
	mux.HandleFunc("DELETE /api/selection/multi", selectionHandler.ClearMultiSelect)
	mux.HandleFunc("GET /api/folders/{id}/state", selectionHandler.GetFolderState)
	mux.HandleFunc("POST /api/folders/{id}/toggle-selection", selectionHandler.ToggleFolderSelection)
	mux.HandleFunc("PUT /api/folders/{id}/expanded", selectionHandler.SetExpanded)

	// History
	mux.HandleFunc("GET /api/history", historyHandler.GetState)
	mux.HandleFunc("POST /api/history/undo", historyHandler.Undo)
	mux.HandleFunc("POST /api/history/redo", historyHandler.Redo)

	// Events (SSE)
	mux.HandleFunc("GET /api/events", eventsHandler.Stream)

	return mux
}
