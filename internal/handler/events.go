package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"notetree/internal/domain/models"
	"notetree/internal/handler/sse"
	"notetree/internal/httputil"
	"notetree/internal/service/notetree"
)

// SSE event names
const (
	EventSnapshot       = "snapshot"
	EventTreeChanged    = "tree_changed"
	EventActiveChanged  = "active_changed"
	EventMutationFailed = "mutation_failed"
)

type streamEvent struct {
	name string
	data any
}

type activeChangedEvent struct {
	Node *models.Node `json:"node"`
	models.ActiveChange
}

type mutationFailedEvent struct {
	Kind  notetree.MutationKind `json:"kind"`
	Error string                `json:"error"`
}

// EventsHandler streams tree manager notifications to the editing surface over SSE
type EventsHandler struct {
	services *notetree.Services
	config   *sse.Config
	logger   *slog.Logger
}

// NewEventsHandler creates a new events handler. A nil config uses sse.DefaultConfig.
func NewEventsHandler(services *notetree.Services, config *sse.Config, logger *slog.Logger) *EventsHandler {
	if config == nil {
		config = sse.DefaultConfig()
	}
	return &EventsHandler{
		services: services,
		config:   config,
		logger:   logger,
	}
}

// Stream opens an event stream. The first event is a full snapshot; after that every
// notification is forwarded until the client disconnects.
// GET /api/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	clientID := uuid.NewString()
	writer, err := sse.NewWriter(w, clientID)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger := h.logger.With("client_id", clientID)

	events := make(chan streamEvent, h.config.BufferSize)
	push := func(e streamEvent) {
		select {
		case events <- e:
		default:
			logger.Warn("event stream client too slow, dropping event", "event", e.name)
		}
	}

	unsubscribe := h.services.Events.Subscribe(notetree.ListenerFuncs{
		ActiveChanged: func(node *models.Node, change models.ActiveChange) {
			push(streamEvent{EventActiveChanged, activeChangedEvent{Node: node, ActiveChange: change}})
		},
		TreeChanged: func([]models.Node) {
			push(streamEvent{EventTreeChanged, h.services.Snapshot()})
		},
		MutationFailed: func(kind notetree.MutationKind, err error) {
			push(streamEvent{EventMutationFailed, mutationFailedEvent{Kind: kind, Error: err.Error()}})
		},
	})
	defer unsubscribe()

	keepAlive := sse.NewTickerKeepAlive(h.config.KeepAliveInterval)
	stopped := keepAlive.Start(writer, logger)
	defer keepAlive.Stop()

	logger.Debug("event stream opened")
	defer logger.Debug("event stream closed")

	if err := writer.WriteEvent(EventSnapshot, h.services.Snapshot()); err != nil {
		logger.Warn("initial snapshot write failed", "error", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-stopped:
			return
		case e := <-events:
			if err := writer.WriteEvent(e.name, e.data); err != nil {
				logger.Warn("event write failed", "event", e.name, "error", err)
				return
			}
		}
	}
}
