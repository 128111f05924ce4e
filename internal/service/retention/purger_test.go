package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notetree/internal/domain/models"
	"notetree/internal/repository/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPurgeOnce(t *testing.T) {
	deletedAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := memory.New(memory.WithClock(func() time.Time { return deletedAt }))
	ctx := context.Background()

	old, err := store.CreateNode(ctx, models.CreateNodeInput{Title: "old"})
	require.NoError(t, err)
	_, err = store.CreateNode(ctx, models.CreateNodeInput{Title: "live"})
	require.NoError(t, err)
	require.NoError(t, store.DeleteNode(ctx, old.ID))

	evictor := &recordingEvictor{}
	p := NewPurger(store, evictor, 30*24*time.Hour, time.Hour, testLogger())

	p.now = func() time.Time { return deletedAt.Add(29 * 24 * time.Hour) }
	removed, err := p.PurgeOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed, "still inside the retention window")
	assert.Empty(t, evictor.cutoffs, "nothing purged, nothing to evict")

	p.now = func() time.Time { return deletedAt.Add(31 * 24 * time.Hour) }
	removed, err = p.PurgeOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, []time.Time{deletedAt.Add(24 * time.Hour)}, evictor.cutoffs)

	all, err := store.ListNodes(ctx, models.NodeFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "live", all[0].Title)
}

type recordingEvictor struct {
	cutoffs []time.Time
}

func (e *recordingEvictor) EvictDeleted(before time.Time) int {
	e.cutoffs = append(e.cutoffs, before)
	return 1
}

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (c *countingPurger) PurgeDeleted(context.Context, time.Time) (int64, error) {
	c.calls.Add(1)
	return 0, c.err
}

func TestRunStopsOnCancel(t *testing.T) {
	store := &countingPurger{err: errors.New("store offline")}
	p := NewPurger(store, nil, time.Hour, time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.calls.Load() >= 3 }, time.Second, time.Millisecond,
		"failures are retried on the next tick")
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
