package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notetree/internal/domain/models"
	"notetree/internal/handler/sse"
	"notetree/internal/repository/cache"
	"notetree/internal/repository/memory"
	"notetree/internal/service/notetree"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer seeds:
//
//	f1 (folder)
//	  d1
//	  f2 (folder, empty)
//	d2
func newTestServer(t *testing.T) (http.Handler, *notetree.Services) {
	t.Helper()
	store := memory.New()
	store.Seed(
		models.Node{ID: "f1", Title: "Projects", IsFolder: true, SortOrder: 3},
		models.Node{ID: "d1", Title: "Plan", ParentID: "f1", SortOrder: 2, Content: "ship the tree"},
		models.Node{ID: "f2", Title: "Archive", IsFolder: true, ParentID: "f1", SortOrder: 1},
		models.Node{ID: "d2", Title: "Inbox", SortOrder: 1},
	)

	services := notetree.Setup(store, cache.New(cache.DefaultMaxEntries), notetree.Options{
		SortIncrement: 1,
		Now:           func() time.Time { return time.UnixMilli(0) },
	}, testLogger())
	_, err := services.Coordinator.Reload(context.Background())
	require.NoError(t, err)

	return NewRouter(services, &sse.Config{KeepAliveInterval: time.Hour, BufferSize: 16}, testLogger()), services
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}

func TestGetTree(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/tree", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tree := decode[[]*models.TreeNode](t, rec)
	require.Len(t, tree, 2)
	assert.Equal(t, "f1", tree[0].ID)
	assert.Equal(t, 1, tree[0].DescendantDocuments)
	require.Len(t, tree[0].Children, 2)
	assert.Equal(t, "d1", tree[0].Children[0].ID)
	assert.Equal(t, "d2", tree[1].ID)
}

func TestListNodesFiltersByQuery(t *testing.T) {
	h, _ := newTestServer(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"f1", "d1", "d2", "f2"}},
		{"SHIP", []string{"d1"}},
		{"arch", []string{"f2"}},
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/nodes?q="+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			ids := []string{}
			for _, n := range decode[[]models.Node](t, rec) {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCreateNode(t *testing.T) {
	h, services := newTestServer(t)

	t.Run("created on top of parent", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/nodes", map[string]any{"title": "  Notes ", "parent_id": "f1"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		node := decode[models.Node](t, rec)
		assert.Equal(t, "Notes", node.Title)
		assert.Equal(t, "f1", node.ParentID)
		assert.Equal(t, node.ID, services.Nodes.Children("f1")[0].ID)
	})

	t.Run("missing title", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/nodes", map[string]any{"parent_id": "f1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})

	t.Run("illegal characters", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/nodes", map[string]any{"title": "a/b"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "title", decode[map[string]any](t, rec)["field"])
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/nodes", map[string]any{"title": "x", "owner": "me"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("parent is a document", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/nodes", map[string]any{"title": "x", "parent_id": "d2"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate folder returns existing", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/nodes", map[string]any{"title": "Projects", "is_folder": true})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "f1", decode[models.Node](t, rec).ID)
	})
}

func TestUpdateNode(t *testing.T) {
	t.Run("rename", func(t *testing.T) {
		h, services := newTestServer(t)
		rec := do(t, h, http.MethodPatch, "/api/nodes/d1", map[string]any{"title": "Roadmap"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.Equal(t, "Roadmap", decode[models.Node](t, rec).Title)
		assert.Equal(t, 1, services.History.State().UndoDepth)
	})

	t.Run("move to root", func(t *testing.T) {
		h, services := newTestServer(t)
		rec := do(t, h, http.MethodPatch, "/api/nodes/d1", map[string]any{"parent_id": nil})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		node := decode[models.Node](t, rec)
		assert.Equal(t, models.RootID, node.ParentID)
		assert.Equal(t, "d1", services.Nodes.Children(models.RootID)[0].ID, "moved nodes land on top")
		assert.Equal(t, 1, services.History.State().UndoDepth)
	})

	t.Run("rename combined with move", func(t *testing.T) {
		h, services := newTestServer(t)
		rec := do(t, h, http.MethodPatch, "/api/nodes/d1", map[string]any{"title": "Roadmap", "parent_id": nil})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		node, err := services.Nodes.GetLive("d1")
		require.NoError(t, err)
		assert.Equal(t, "Plan", node.Title, "nothing is applied")
		assert.Equal(t, "f1", node.ParentID)
		assert.Zero(t, services.History.State().UndoDepth)
	})

	t.Run("explicit sort order keeps parent", func(t *testing.T) {
		h, services := newTestServer(t)
		rec := do(t, h, http.MethodPatch, "/api/nodes/d1", map[string]any{"sort_order": 0.5})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		node, err := services.Nodes.GetLive("d1")
		require.NoError(t, err)
		assert.Equal(t, "f1", node.ParentID)
		assert.Equal(t, 0.5, node.SortOrder)
	})

	t.Run("into own descendant", func(t *testing.T) {
		h, _ := newTestServer(t)
		rec := do(t, h, http.MethodPatch, "/api/nodes/f1", map[string]any{"parent_id": "f2"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "f2", decode[map[string]any](t, rec)["target_id"])
	})

	t.Run("empty patch", func(t *testing.T) {
		h, _ := newTestServer(t)
		rec := do(t, h, http.MethodPatch, "/api/nodes/d1", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown node", func(t *testing.T) {
		h, _ := newTestServer(t)
		rec := do(t, h, http.MethodPatch, "/api/nodes/nope", map[string]any{"title": "x"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "nope", decode[map[string]any](t, rec)["resource_id"])
	})
}

func TestSaveContent(t *testing.T) {
	h, services := newTestServer(t)

	rec := do(t, h, http.MethodPut, "/api/nodes/d2/content", map[string]any{"content": "hello"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	node, _ := services.Nodes.Get("d2")
	assert.Equal(t, "hello", node.Content)

	rec = do(t, h, http.MethodPut, "/api/nodes/f1/content", map[string]any{"content": "hello"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "folders have no content")
}

func TestDeleteFlow(t *testing.T) {
	h, services := newTestServer(t)
	require.NoError(t, services.Selection.SetActive("d1"))

	rec := do(t, h, http.MethodGet, "/api/nodes/f1/delete-impact", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	impact := decode[models.DeletionImpact](t, rec)
	assert.Equal(t, []string{"f1", "d1", "f2"}, impact.NodeIDs)
	assert.Equal(t, 2, impact.Folders)
	assert.Equal(t, 1, impact.Documents)
	assert.True(t, impact.ContainsActive)

	rec = do(t, h, http.MethodDelete, "/api/nodes/f1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[models.DeleteResult](t, rec)
	assert.True(t, result.ActiveChanged)
	require.NotNil(t, result.NewActive)
	assert.Equal(t, "d2", result.NewActive.ID)

	rec = do(t, h, http.MethodDelete, "/api/nodes/f1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/history/undo", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "delete", decode[map[string]any](t, rec)["kind"])
	assert.True(t, services.Nodes.IsLive("d1"))

	rec = do(t, h, http.MethodPost, "/api/history/redo", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, services.Nodes.IsLive("f1"))

	rec = do(t, h, http.MethodPost, "/api/history/redo", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBatchDelete(t *testing.T) {
	h, services := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/nodes/batch-delete/impact", map[string]any{"ids": []string{"d1", "f1"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"f1"}, decode[models.DeletionImpact](t, rec).RootIDs)

	rec = do(t, h, http.MethodPost, "/api/nodes/batch-delete", map[string]any{"ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/nodes/batch-delete", map[string]any{"ids": []string{"d1", "d2"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.ElementsMatch(t, []string{"d1", "d2"}, decode[models.DeleteResult](t, rec).DeletedIDs)
	assert.False(t, services.Nodes.IsLive("d2"))
}

func TestDragAndDrop(t *testing.T) {
	h, services := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/nodes/f1/can-move?target=f2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["can_move"])

	rec = do(t, h, http.MethodGet, "/api/nodes/d2/can-move?target=f2", nil)
	assert.Equal(t, true, decode[map[string]any](t, rec)["can_move"])

	rec = do(t, h, http.MethodPost, "/api/drag-preview", map[string]any{
		"dragged_id": "d2", "target_id": "d1", "position": "before",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dest := decode[models.Destination](t, rec)
	assert.Equal(t, "f1", dest.ParentID)
	assert.Equal(t, 3.0, dest.SortOrder)

	snap := decode[notetree.Snapshot](t, do(t, h, http.MethodGet, "/api/snapshot", nil))
	require.NotNil(t, snap.Preview)
	assert.Equal(t, "d2", snap.Preview.DraggedID)

	rec = do(t, h, http.MethodPost, "/api/nodes/d2/drop", map[string]any{"target_id": "d1", "position": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/nodes/d2/drop", map[string]any{"target_id": "d1", "position": "before"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"d2", "d1", "f2"}, childIDs(services, "f1"))
	_, previewing := services.Pending.CurrentPreview()
	assert.False(t, previewing)

	rec = do(t, h, http.MethodDelete, "/api/drag-preview", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSelection(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/selection/click", map[string]any{"id": "d2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "d2", decode[models.Selection](t, rec).ActiveID)

	rec = do(t, h, http.MethodPost, "/api/selection/toggle", map[string]any{"id": "f1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "folders cannot be multi-selected")

	rec = do(t, h, http.MethodPost, "/api/folders/f1/toggle-selection", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, string(models.FolderStateAll), decode[map[string]any](t, rec)["state"])

	rec = do(t, h, http.MethodGet, "/api/folders/f2/state", nil)
	assert.Equal(t, string(models.FolderStateNone), decode[map[string]any](t, rec)["state"])

	rec = do(t, h, http.MethodPut, "/api/folders/f1/expanded", map[string]any{"expanded": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode[models.Selection](t, rec).ExpandedIDs, "f1")

	rec = do(t, h, http.MethodDelete, "/api/selection/multi", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.Selection](t, rec).MultiSelectIDs)

	rec = do(t, h, http.MethodGet, "/api/folders/d2/state", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEmpty(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/history/undo", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notetree.HistoryState{}, decode[notetree.HistoryState](t, rec))
}

func TestReload(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, false, body["from_cache"])
	assert.Equal(t, 4.0, body["nodes"])
}

func TestEventStream(t *testing.T) {
	h, services := newTestServer(t)
	server := httptest.NewServer(h)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	nextEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if name, ok := strings.CutPrefix(strings.TrimSpace(line), "event: "); ok {
				return name
			}
		}
	}

	assert.Equal(t, EventSnapshot, nextEvent())

	_, err = services.Coordinator.Rename(ctx, "d2", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, EventTreeChanged, nextEvent())

	require.NoError(t, services.Selection.SetActive("d1"))
	assert.Equal(t, EventActiveChanged, nextEvent())
}

func childIDs(services *notetree.Services, parentID string) []string {
	ids := []string{}
	for _, n := range services.Nodes.Children(parentID) {
		ids = append(ids, n.ID)
	}
	return ids
}
