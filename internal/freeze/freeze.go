// Package freeze guards a quoting session against edits while a snapshot of
// it is frozen.
package freeze

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/charterquote/internal/logging"
	"github.com/Simplici0/charterquote/internal/quote"
	"github.com/Simplici0/charterquote/internal/store"
)

// FrozenStateError is returned when a mutation is attempted on a frozen session.
type FrozenStateError struct {
	SnapshotID string
	FrozenAt   time.Time
}

func (e *FrozenStateError) Error() string {
	return fmt.Sprintf("quote %s is frozen since %s; unfreeze it before editing",
		e.SnapshotID, e.FrozenAt.Format(time.RFC3339))
}

// Guard holds at most one frozen snapshot.
type Guard struct {
	mu      sync.RWMutex
	current *quote.Snapshot

	store store.Persistence
	key   string
	log   *zap.SugaredLogger
	now   func() time.Time
}

// NewGuard returns a guard mirroring its snapshot to p under key. p may be nil.
func NewGuard(p store.Persistence, key string, log *zap.SugaredLogger) *Guard {
	return &Guard{
		store: p,
		key:   key,
		log:   logging.OrNop(log),
		now:   time.Now,
	}
}

// Freeze stores a copy of snap tagged with the current snapshot version and
// time. Persisting is best effort: a failure is logged and the in-memory
// freeze still holds. Freezing an already frozen guard fails.
func (g *Guard) Freeze(ctx context.Context, snap quote.Snapshot) (quote.Snapshot, error) {
	g.mu.Lock()
	if g.current != nil {
		err := g.frozenError()
		g.mu.Unlock()
		return quote.Snapshot{}, err
	}
	frozen := snap.Clone()
	frozen.Version = quote.SnapshotVersion
	frozen.FrozenAt = g.now().UTC()
	g.current = &frozen
	g.mu.Unlock()

	if g.store != nil {
		if err := store.SaveVersioned(ctx, g.store, g.key, quote.SnapshotVersion, frozen); err != nil {
			g.log.Warnw("persist frozen snapshot", "key", g.key, "error", err)
		}
	}
	return frozen.Clone(), nil
}

// Unfreeze clears the frozen snapshot. It is a no-op when nothing is frozen.
func (g *Guard) Unfreeze(ctx context.Context) {
	g.mu.Lock()
	g.current = nil
	g.mu.Unlock()

	if g.store != nil {
		if err := g.store.Remove(ctx, g.key); err != nil {
			g.log.Warnw("remove frozen snapshot", "key", g.key, "error", err)
		}
	}
}

// IsFrozen reports whether a snapshot is frozen.
func (g *Guard) IsFrozen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current != nil
}

// Current returns a copy of the frozen snapshot.
func (g *Guard) Current() (quote.Snapshot, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil {
		return quote.Snapshot{}, false
	}
	return g.current.Clone(), true
}

// AssertMutable returns a *FrozenStateError while a snapshot is frozen.
// Every recomputation entry point calls it before touching state.
func (g *Guard) AssertMutable() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current != nil {
		return g.frozenError()
	}
	return nil
}

func (g *Guard) frozenError() error {
	return &FrozenStateError{SnapshotID: g.current.ID, FrozenAt: g.current.FrozenAt}
}

// Restore loads a persisted snapshot into the guard. Missing, unreadable or
// other-version payloads count as absent; stale ones are removed.
func (g *Guard) Restore(ctx context.Context) bool {
	if g.store == nil {
		return false
	}

	var snap quote.Snapshot
	ok, err := store.LoadVersioned(ctx, g.store, g.key, quote.SnapshotVersion, &snap)
	if err != nil {
		g.log.Infow("discard persisted snapshot", "key", g.key, "error", err)
		_ = g.store.Remove(ctx, g.key)
		return false
	}
	if !ok {
		return false
	}

	g.mu.Lock()
	g.current = &snap
	g.mu.Unlock()
	return true
}
