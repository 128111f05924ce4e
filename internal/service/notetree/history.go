package notetree

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"notetree/internal/domain"
	"notetree/internal/domain/models"
)

// EntryKind identifies a history entry
type EntryKind string

const (
	EntryCreate EntryKind = "create"
	EntryDelete EntryKind = "delete"
	EntryRename EntryKind = "rename"
	EntryMove   EntryKind = "move"
)

// Entry is a reversible user action. The set of entries is closed to this package.
type Entry interface {
	Kind() EntryKind
	undo(ctx context.Context, a applier) error
	redo(ctx context.Context, a applier) error
}

// applier performs confirmed mutations without recording history
type applier interface {
	restore(ctx context.Context, ids []string) error
	softDeleteIDs(ctx context.Context, ids []string) error
	renameTo(ctx context.Context, id, title string) error
	moveTo(ctx context.Context, id string, dest models.Destination) error
}

// CreateEntry records a node creation. Undo soft-deletes it; redo restores the same
// node so its id and sort key survive the round trip.
type CreateEntry struct {
	Node models.Node `json:"node"`
}

func (CreateEntry) Kind() EntryKind { return EntryCreate }
func (e CreateEntry) undo(ctx context.Context, a applier) error {
	return a.softDeleteIDs(ctx, []string{e.Node.ID})
}
func (e CreateEntry) redo(ctx context.Context, a applier) error {
	return a.restore(ctx, []string{e.Node.ID})
}

// DeleteEntry records a soft delete of RootIDs and every descendant that went with them
type DeleteEntry struct {
	RootIDs []string `json:"root_ids"`
	IDs     []string `json:"ids"`
}

func (DeleteEntry) Kind() EntryKind { return EntryDelete }
func (e DeleteEntry) undo(ctx context.Context, a applier) error {
	return a.restore(ctx, e.IDs)
}
func (e DeleteEntry) redo(ctx context.Context, a applier) error {
	return a.softDeleteIDs(ctx, e.IDs)
}

// RenameEntry records a title change
type RenameEntry struct {
	ID       string `json:"id"`
	OldTitle string `json:"old_title"`
	NewTitle string `json:"new_title"`
}

func (RenameEntry) Kind() EntryKind { return EntryRename }
func (e RenameEntry) undo(ctx context.Context, a applier) error {
	return a.renameTo(ctx, e.ID, e.OldTitle)
}
func (e RenameEntry) redo(ctx context.Context, a applier) error {
	return a.renameTo(ctx, e.ID, e.NewTitle)
}

// MoveEntry records a relocation
type MoveEntry struct {
	ID   string             `json:"id"`
	From models.Destination `json:"from"`
	To   models.Destination `json:"to"`
}

func (MoveEntry) Kind() EntryKind { return EntryMove }
func (e MoveEntry) undo(ctx context.Context, a applier) error {
	return a.moveTo(ctx, e.ID, e.From)
}
func (e MoveEntry) redo(ctx context.Context, a applier) error {
	return a.moveTo(ctx, e.ID, e.To)
}

// HistoryState summarises both stacks
type HistoryState struct {
	UndoDepth int       `json:"undo_depth"`
	RedoDepth int       `json:"redo_depth"`
	NextUndo  EntryKind `json:"next_undo,omitempty"`
	NextRedo  EntryKind `json:"next_redo,omitempty"`
}

// History keeps the undo and redo stacks. Replays are serialized; a failed replay
// puts the entry back where it came from.
type History struct {
	applier applier
	limit   int // 0 = unbounded
	logger  *slog.Logger

	replay sync.Mutex // serializes Undo and Redo

	mu     sync.Mutex
	undos  []Entry
	redos  []Entry
	pushes uint64 // bumps on every Push, so replays can tell a new action happened
}

func newHistory(a applier, limit int, logger *slog.Logger) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{applier: a, limit: limit, logger: logger}
}

// Push records a new user action and clears the redo stack
func (h *History) Push(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undos = append(h.undos, e)
	if h.limit > 0 && len(h.undos) > h.limit {
		h.undos = append([]Entry(nil), h.undos[len(h.undos)-h.limit:]...)
	}
	h.redos = nil
	h.pushes++
}

// Undo reverses the most recent action
func (h *History) Undo(ctx context.Context) (Entry, error) {
	h.replay.Lock()
	defer h.replay.Unlock()

	e, mark, ok := h.pop(&h.undos)
	if !ok {
		return nil, domain.ErrNothingToUndo
	}

	if err := e.undo(ctx, h.applier); err != nil {
		h.restoreEntry(&h.undos, e, mark)
		h.logger.Warn("undo failed", "kind", e.Kind(), "error", err)
		return e, fmt.Errorf("undo %s: %w", e.Kind(), err)
	}

	h.settle(&h.redos, e, mark)
	h.logger.Debug("undo applied", "kind", e.Kind())
	return e, nil
}

// Redo re-applies the most recently undone action
func (h *History) Redo(ctx context.Context) (Entry, error) {
	h.replay.Lock()
	defer h.replay.Unlock()

	e, mark, ok := h.pop(&h.redos)
	if !ok {
		return nil, domain.ErrNothingToRedo
	}

	if err := e.redo(ctx, h.applier); err != nil {
		h.restoreEntry(&h.redos, e, mark)
		h.logger.Warn("redo failed", "kind", e.Kind(), "error", err)
		return e, fmt.Errorf("redo %s: %w", e.Kind(), err)
	}

	h.settle(&h.undos, e, mark)
	h.logger.Debug("redo applied", "kind", e.Kind())
	return e, nil
}

func (h *History) pop(stack *[]Entry) (Entry, uint64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := *stack
	if len(s) == 0 {
		return nil, 0, false
	}
	e := s[len(s)-1]
	*stack = s[:len(s)-1]
	return e, h.pushes, true
}

// restoreEntry puts a failed entry back on its stack. Entries pushed while the replay
// was in flight are newer and stay above it.
func (h *History) restoreEntry(stack *[]Entry, e Entry, mark uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if stack == &h.redos && h.pushes != mark {
		// A new action cleared the redo stack meanwhile
		return
	}
	newer := int(h.pushes - mark)
	s := *stack
	at := len(s) - newer
	if at < 0 {
		at = 0
	}
	s = append(s, nil)
	copy(s[at+1:], s[at:])
	s[at] = e
	if h.limit > 0 && len(s) > h.limit {
		s = s[len(s)-h.limit:]
	}
	*stack = s
}

// settle moves a replayed entry onto the opposite stack
func (h *History) settle(stack *[]Entry, e Entry, mark uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if stack == &h.redos && h.pushes != mark {
		// A new action happened during the undo, so there is nothing left to redo
		return
	}
	*stack = append(*stack, e)
	if stack == &h.undos && h.limit > 0 && len(h.undos) > h.limit {
		h.undos = h.undos[len(h.undos)-h.limit:]
	}
}

// State returns the stack depths and the kinds that would be replayed next
func (h *History) State() HistoryState {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := HistoryState{UndoDepth: len(h.undos), RedoDepth: len(h.redos)}
	if n := len(h.undos); n > 0 {
		st.NextUndo = h.undos[n-1].Kind()
	}
	if n := len(h.redos); n > 0 {
		st.NextRedo = h.redos[n-1].Kind()
	}
	return st
}

