package notetree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"notetree/internal/domain/models"
	"notetree/internal/repository/cache"
	"notetree/internal/repository/memory"
)

var errUnreachable = errors.New("connection refused")

var testClock = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// epoch keeps clock-derived sort keys at zero so child keys decide placement
var epoch = time.UnixMilli(0)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// faultyRepo wraps the memory store with call counting and injectable failures
type faultyRepo struct {
	*memory.Store

	mu       sync.Mutex
	failures map[string]error
	calls    map[string]int
	batches  [][]string

	// Hooks run inside the store call; a non-nil error fails it. listHook runs
	// after the rows were read.
	listHook   func(ctx context.Context) error
	createHook func(ctx context.Context) error
	updateHook func(ctx context.Context) error
}

func newFaultyRepo() *faultyRepo {
	n := 0
	return &faultyRepo{
		Store: memory.New(
			memory.WithClock(func() time.Time { return testClock }),
			memory.WithIDs(func() string { n++; return fmt.Sprintf("new%d", n) }),
		),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (r *faultyRepo) failOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, op)
		return
	}
	r.failures[op] = err
}

func (r *faultyRepo) callCount(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *faultyRepo) enter(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	return r.failures[op]
}

func (r *faultyRepo) runHook(ctx context.Context, hook *func(context.Context) error) error {
	r.mu.Lock()
	fn := *hook
	r.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (r *faultyRepo) ListNodes(ctx context.Context, filter models.NodeFilter) ([]models.Node, error) {
	if err := r.enter("list"); err != nil {
		return nil, err
	}
	nodes, err := r.Store.ListNodes(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := r.runHook(ctx, &r.listHook); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *faultyRepo) CreateNode(ctx context.Context, in models.CreateNodeInput) (*models.Node, error) {
	if err := r.enter("create"); err != nil {
		return nil, err
	}
	if err := r.runHook(ctx, &r.createHook); err != nil {
		return nil, err
	}
	return r.Store.CreateNode(ctx, in)
}

func (r *faultyRepo) UpdateNode(ctx context.Context, id string, patch models.NodePatch) (*models.Node, error) {
	if err := r.enter("update"); err != nil {
		return nil, err
	}
	if err := r.runHook(ctx, &r.updateHook); err != nil {
		return nil, err
	}
	return r.Store.UpdateNode(ctx, id, patch)
}

func (r *faultyRepo) DeleteNode(ctx context.Context, id string) error {
	if err := r.enter("delete"); err != nil {
		return err
	}
	return r.Store.DeleteNode(ctx, id)
}

func (r *faultyRepo) BatchDeleteNodes(ctx context.Context, ids []string) error {
	if err := r.enter("batch"); err != nil {
		return err
	}
	r.mu.Lock()
	r.batches = append(r.batches, append([]string(nil), ids...))
	r.mu.Unlock()
	return r.Store.BatchDeleteNodes(ctx, ids)
}

// recorder collects notifications in arrival order
type recorder struct {
	mu       sync.Mutex
	events   []string
	active   []*models.Node
	changes  []models.ActiveChange
	failures []MutationKind
	trees    int
}

func (r *recorder) OnActiveChanged(node *models.Node, change models.ActiveChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "active")
	r.active = append(r.active, node)
	r.changes = append(r.changes, change)
}

func (r *recorder) OnTreeChanged([]models.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "tree")
	r.trees++
}

func (r *recorder) OnMutationFailed(kind MutationKind, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "failed")
	r.failures = append(r.failures, kind)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events, r.active, r.changes, r.failures, r.trees = nil, nil, nil, nil, 0
}

func (r *recorder) snapshot() ([]string, []*models.Node, []models.ActiveChange, []MutationKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...),
		append([]*models.Node(nil), r.active...),
		append([]models.ActiveChange(nil), r.changes...),
		append([]MutationKind(nil), r.failures...)
}

func folder(id, parent string, order float64) models.Node {
	return models.Node{ID: id, Title: id, IsFolder: true, ParentID: parent, SortOrder: order}
}

func doc(id, parent string, order float64) models.Node {
	return models.Node{ID: id, Title: id, ParentID: parent, SortOrder: order}
}

type harness struct {
	*Services
	repo  *faultyRepo
	cache *cache.NodeCache
	rec   *recorder
}

// newHarness seeds the store, wires the services and performs the initial load
func newHarness(t *testing.T, seed ...models.Node) *harness {
	t.Helper()
	repo := newFaultyRepo()
	repo.Seed(seed...)
	nodeCache := cache.New(64)

	svc := Setup(repo, nodeCache, Options{
		SortIncrement: 1,
		Now:           func() time.Time { return epoch },
	}, testLogger())

	_, err := svc.Coordinator.Reload(context.Background())
	require.NoError(t, err)

	rec := &recorder{}
	t.Cleanup(svc.Events.Subscribe(rec))
	return &harness{Services: svc, repo: repo, cache: nodeCache, rec: rec}
}

func childIDs(tn *models.TreeNode) []string {
	ids := make([]string, 0, len(tn.Children))
	for _, c := range tn.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

func rootIDs(forest []*models.TreeNode) []string {
	ids := make([]string, 0, len(forest))
	for _, r := range forest {
		ids = append(ids, r.ID)
	}
	return ids
}

// requireAcyclic fails when any live node sits on its own parent chain
func requireAcyclic(t *testing.T, nodes *NodeStore) {
	t.Helper()
	for _, n := range nodes.All(false) {
		require.Falsef(t, nodes.IsAncestor(n.ID, n.ID), "%s is its own ancestor", n.ID)
	}
}
