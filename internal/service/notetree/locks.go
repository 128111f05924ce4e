package notetree

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// structureWeight is the full weight of the tree lock. Per-node work takes 1.
const structureWeight = 1 << 30

// nodeLocks serializes mutations. Anything that changes parent links or the set of
// live nodes holds the whole tree exclusively; edits confined to one node share the
// tree and then lock their own ids. Waiters honour ctx, and the tree semaphore is
// FIFO so a waiting structural change is not starved by a stream of edits.
type nodeLocks struct {
	tree *semaphore.Weighted

	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newNodeLocks() *nodeLocks {
	return &nodeLocks{
		tree:    semaphore.NewWeighted(structureWeight),
		entries: make(map[string]*lockEntry),
	}
}

// Structure holds the whole tree. No other mutation runs until release.
func (l *nodeLocks) Structure(ctx context.Context) (release func(), err error) {
	if err := l.tree.Acquire(ctx, structureWeight); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { l.tree.Release(structureWeight) }) }, nil
}

// Acquire shares the tree and locks every id. Ids are taken in sorted order so
// overlapping multi-node operations cannot deadlock. On error nothing stays held.
func (l *nodeLocks) Acquire(ctx context.Context, ids ...string) (release func(), err error) {
	if err := l.tree.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	keys := dedupeSorted(ids)
	held := make([]string, 0, len(keys))

	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
		l.tree.Release(1)
	}

	for _, key := range keys {
		entry := l.ref(key)
		if err := entry.sem.Acquire(ctx, 1); err != nil {
			l.unref(key)
			releaseHeld()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}

func (l *nodeLocks) ref(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (l *nodeLocks) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *nodeLocks) unlock(key string) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	entry.sem.Release(1)
	l.unref(key)
}

// held reports how many ids currently have a holder or waiter
func (l *nodeLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func dedupeSorted(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
