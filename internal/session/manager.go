package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/Simplici0/charterquote/internal/catalog"
	"github.com/Simplici0/charterquote/internal/logging"
)

// DefaultTTL is how long an idle session stays in memory.
const DefaultTTL = 12 * time.Hour

// Manager owns the live sessions. Idle sessions expire from memory but can
// be reopened from persistence.
type Manager struct {
	deps     *Deps
	sessions *cache.Cache
}

// NewManager returns a manager whose sessions expire after ttl of inactivity.
func NewManager(deps Deps, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	deps.Log = logging.OrNop(deps.Log)
	if deps.Catalog == nil {
		deps.Catalog = catalog.New(nil, nil, deps.Log)
	}

	m := &Manager{deps: &deps, sessions: cache.New(ttl, ttl/4)}
	m.sessions.OnEvicted(func(_ string, v any) {
		v.(*Session).Close()
		if deps.Metrics != nil {
			deps.Metrics.SessionsActive.Dec()
		}
	})
	return m
}

// Create starts an empty session.
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.deps)
	m.add(s)
	m.deps.Log.Infow("session created", "session_id", s.ID)
	return s
}

// Get returns a live session or reopens it from persistence. Reopening
// restores the draft and any frozen snapshot of the current version.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if v, ok := m.sessions.Get(id); ok {
		s := v.(*Session)
		m.sessions.SetDefault(id, s)
		return s, nil
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get session %q: %w", id, ErrSessionNotFound)
	}

	s := newSession(id, m.deps)
	hasDraft := s.restoreDraft(ctx)
	hasFrozen := s.guard.Restore(ctx)
	if !hasDraft && !hasFrozen {
		return nil, fmt.Errorf("get session %q: %w", id, ErrSessionNotFound)
	}

	if err := m.sessions.Add(id, s, cache.DefaultExpiration); err != nil {
		// reopened concurrently by another request
		if v, ok := m.sessions.Get(id); ok {
			return v.(*Session), nil
		}
		m.sessions.SetDefault(id, s)
	}
	if m.deps.Metrics != nil {
		m.deps.Metrics.SessionsActive.Inc()
	}
	m.deps.Log.Infow("session reopened", "session_id", id, "frozen", hasFrozen)
	return s, nil
}

// Delete flushes pending work and drops the session from memory. Persisted
// drafts and snapshots are kept.
func (m *Manager) Delete(id string) {
	m.sessions.Delete(id)
}

// Len reports how many sessions are in memory.
func (m *Manager) Len() int {
	return m.sessions.ItemCount()
}

// Close flushes every live session.
func (m *Manager) Close() {
	for id := range m.sessions.Items() {
		m.sessions.Delete(id)
	}
}

func (m *Manager) add(s *Session) {
	m.sessions.SetDefault(s.ID, s)
	if m.deps.Metrics != nil {
		m.deps.Metrics.SessionsActive.Inc()
	}
}
