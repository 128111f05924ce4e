// Package retention permanently removes soft-deleted nodes once they age out.
package retention

import (
	"context"
	"log/slog"
	"time"

	"notetree/internal/domain/repositories"
)

// Evictor drops purged nodes from in-memory state. The cutoff is the one handed
// to the store, so anything soft-deleted before it is gone.
type Evictor interface {
	EvictDeleted(before time.Time) int
}

// Purger periodically hard-deletes nodes that have been soft-deleted for longer
// than the retention window
type Purger struct {
	store    repositories.Purger
	evictor  Evictor
	after    time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewPurger creates a purger. after is the retention window; interval is how often
// Run checks. evictor may be nil.
func NewPurger(store repositories.Purger, evictor Evictor, after, interval time.Duration, logger *slog.Logger) *Purger {
	return &Purger{
		store:    store,
		evictor:  evictor,
		after:    after,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// PurgeOnce removes everything deleted before now minus the retention window
func (p *Purger) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.after)
	removed, err := p.store.PurgeDeleted(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}

	evicted := 0
	if p.evictor != nil {
		evicted = p.evictor.EvictDeleted(cutoff)
	}
	p.logger.Info("purged soft-deleted nodes", "count", removed, "evicted", evicted, "cutoff", cutoff)
	return removed, nil
}

// Run purges once immediately and then on every tick until ctx is cancelled.
// Failures are logged and retried on the next tick.
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PurgeOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("purge failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
