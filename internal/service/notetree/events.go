package notetree

import (
	"log/slog"
	"sync"

	"notetree/internal/domain/models"
)

// MutationKind names the operation a failure notification refers to
type MutationKind string

const (
	MutationCreate  MutationKind = "create"
	MutationRename  MutationKind = "rename"
	MutationMove    MutationKind = "move"
	MutationDelete  MutationKind = "delete"
	MutationRestore MutationKind = "restore"
	MutationContent MutationKind = "content"
	MutationLoad    MutationKind = "load"
)

// Listener receives tree manager notifications. Calls happen synchronously on the
// goroutine that finished the mutation, so implementations must not block.
type Listener interface {
	// OnActiveChanged fires when the active document changes. node is nil when no
	// document is active anymore.
	OnActiveChanged(node *models.Node, change models.ActiveChange)

	// OnTreeChanged fires after confirmed state changed, with the live node set
	OnTreeChanged(nodes []models.Node)

	// OnMutationFailed fires when the external store rejected or failed a mutation
	OnMutationFailed(kind MutationKind, err error)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	ActiveChanged  func(node *models.Node, change models.ActiveChange)
	TreeChanged    func(nodes []models.Node)
	MutationFailed func(kind MutationKind, err error)
}

func (f ListenerFuncs) OnActiveChanged(node *models.Node, change models.ActiveChange) {
	if f.ActiveChanged != nil {
		f.ActiveChanged(node, change)
	}
}

func (f ListenerFuncs) OnTreeChanged(nodes []models.Node) {
	if f.TreeChanged != nil {
		f.TreeChanged(nodes)
	}
}

func (f ListenerFuncs) OnMutationFailed(kind MutationKind, err error) {
	if f.MutationFailed != nil {
		f.MutationFailed(kind, err)
	}
}

// Notifier fans notifications out to subscribed listeners
type Notifier struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
	logger    *slog.Logger
}

// NewNotifier creates a notifier with no listeners
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{listeners: make(map[int]Listener), logger: logger}
}

// Subscribe registers l and returns the function that removes it
func (n *Notifier) Subscribe(l Listener) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = l
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

// snapshot copies listeners in subscription order so callbacks run without the lock
func (n *Notifier) snapshot() []Listener {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]Listener, 0, len(n.listeners))
	for id := 0; id < n.nextID; id++ {
		if l, ok := n.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (n *Notifier) activeChanged(node *models.Node, change models.ActiveChange) {
	for _, l := range n.snapshot() {
		l.OnActiveChanged(node, change)
	}
}

func (n *Notifier) treeChanged(nodes []models.Node) {
	for _, l := range n.snapshot() {
		l.OnTreeChanged(nodes)
	}
}

func (n *Notifier) mutationFailed(kind MutationKind, err error) {
	n.logger.Debug("notifying mutation failure", "kind", kind)
	for _, l := range n.snapshot() {
		l.OnMutationFailed(kind, err)
	}
}
