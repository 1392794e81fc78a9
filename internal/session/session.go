// Package session keeps in-memory quoting sessions: the form state, its
// computed prices and the frozen snapshot guard.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brunoga/deep"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simplici0/charterquote/internal/airport"
	"github.com/Simplici0/charterquote/internal/catalog"
	"github.com/Simplici0/charterquote/internal/docdef"
	"github.com/Simplici0/charterquote/internal/freeze"
	"github.com/Simplici0/charterquote/internal/maprender"
	"github.com/Simplici0/charterquote/internal/metrics"
	"github.com/Simplici0/charterquote/internal/pricing"
	"github.com/Simplici0/charterquote/internal/quote"
	"github.com/Simplici0/charterquote/internal/scheduler"
	"github.com/Simplici0/charterquote/internal/store"
)

// DraftVersion tags persisted draft states.
const DraftVersion = 1

const (
	taskCompute = "compute"
	taskDraft   = "draft"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// QuoteSaver records frozen snapshots. *store.Quotes implements it.
type QuoteSaver interface {
	Insert(ctx context.Context, q store.SavedQuote) error
}

// Deps are the collaborators shared by every session. Only Catalog is
// required.
type Deps struct {
	Catalog  *catalog.Catalog
	Resolver airport.Resolver
	Maps     maprender.Renderer
	Store    store.Persistence
	Quotes   QuoteSaver
	Metrics  *metrics.Registry
	Log      *zap.SugaredLogger

	// Commission prices commissions; nil means pricing.StandardCommission.
	Commission pricing.CommissionFunc
	// Delay is the recomputation debounce window.
	Delay time.Duration
	Now   func() time.Time
}

// Session is one user's quote in progress.
type Session struct {
	ID string

	// editMu serializes Update, Freeze and Unfreeze so an edit can't land
	// between the guard check and the snapshot.
	editMu sync.Mutex

	mu      sync.Mutex
	state   quote.State
	results quote.Results
	// stale is set when a recomputation was skipped while frozen.
	stale bool

	guard *freeze.Guard
	sched *scheduler.Scheduler
	deps  *Deps
	log   *zap.SugaredLogger
}

func draftKey(id string) string  { return "draft:" + id }
func frozenKey(id string) string { return "frozen:" + id }

func newSession(id string, deps *Deps) *Session {
	log := deps.Log.With("session_id", id)
	s := &Session{
		ID:    id,
		guard: freeze.NewGuard(deps.Store, frozenKey(id), log),
		sched: scheduler.New(deps.Delay),
		deps:  deps,
		log:   log,
	}
	s.results = s.compute(s.state)
	return s
}

// State returns a copy of the current form state.
func (s *Session) State() quote.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// Update replaces the form state and schedules recomputation. It fails with
// *freeze.FrozenStateError while frozen and with catalog.ErrAircraftNotFound
// for an unknown aircraft; in both cases the state is left unchanged.
func (s *Session) Update(state quote.State) error {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	if err := s.guard.AssertMutable(); err != nil {
		return err
	}
	if state.AircraftID != "" {
		if _, err := s.deps.Catalog.Effective(state.AircraftID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.state = cloneState(state)
	s.mu.Unlock()

	s.sched.Schedule(taskCompute, s.recompute)
	s.sched.Schedule(taskDraft, s.saveDraft)
	return nil
}

// Results runs any pending recomputation and returns the latest prices.
func (s *Session) Results() quote.Results {
	s.sched.Flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// IsFrozen reports whether the session holds a frozen snapshot.
func (s *Session) IsFrozen() bool {
	return s.guard.IsFrozen()
}

// Snapshot returns the frozen snapshot, if any.
func (s *Session) Snapshot() (quote.Snapshot, bool) {
	return s.guard.Current()
}

// Freeze captures the current quote. Airports are resolved one at a time
// and the route map is rendered when the map section is enabled; failures
// there only cost the map. The snapshot is recorded as a saved quote.
func (s *Session) Freeze(ctx context.Context) (quote.Snapshot, error) {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	if err := s.guard.AssertMutable(); err != nil {
		return quote.Snapshot{}, err
	}
	s.sched.Flush()

	s.mu.Lock()
	state := cloneState(s.state)
	results := s.results
	s.mu.Unlock()

	var mapImage string
	if state.Flags.Map == nil || *state.Flags.Map {
		mapImage = s.renderMap(ctx, state)
	}

	snap, err := quote.NewSnapshot(uuid.NewString(), state, results, s.aircraftName(state.AircraftID), mapImage, s.now())
	if err != nil {
		return quote.Snapshot{}, err
	}
	frozen, err := s.guard.Freeze(ctx, snap)
	if err != nil {
		return quote.Snapshot{}, err
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.QuotesFrozenTotal.Inc()
	}
	s.log.Infow("quote frozen", "snapshot_id", frozen.ID, "total", frozen.PrimaryTotal())

	if s.deps.Quotes != nil {
		if err := s.saveQuote(ctx, frozen); err != nil {
			s.log.Warnw("save frozen quote", "snapshot_id", frozen.ID, "error", err)
		}
	}
	return frozen, nil
}

// Unfreeze releases the frozen snapshot so the form can be edited again.
func (s *Session) Unfreeze(ctx context.Context) {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	s.guard.Unfreeze(ctx)
	s.log.Infow("quote unfrozen")

	s.mu.Lock()
	stale := s.stale
	s.mu.Unlock()
	if stale {
		s.recompute()
	}
}

// Document builds the proposal from the frozen snapshot or, when nothing is
// frozen, from a preview of the current state.
func (s *Session) Document(sel docdef.Selection, opts docdef.Options) (docdef.Definition, error) {
	snap, ok := s.guard.Current()
	if !ok {
		results := s.Results()
		s.mu.Lock()
		state := cloneState(s.state)
		s.mu.Unlock()

		var err error
		snap, err = quote.NewSnapshot("", state, results, s.aircraftName(state.AircraftID), "", time.Time{})
		if err != nil {
			return docdef.Definition{}, err
		}
	}
	return docdef.Build(snap, sel, opts, s.deps.Catalog), nil
}

// Close runs pending work and stops the scheduler.
func (s *Session) Close() {
	s.sched.Flush()
}

func (s *Session) recompute() {
	if s.guard.IsFrozen() {
		s.mu.Lock()
		s.stale = true
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	results := s.compute(state)

	s.mu.Lock()
	s.results = results
	s.stale = false
	s.mu.Unlock()
}

func (s *Session) compute(state quote.State) quote.Results {
	var ac quote.Aircraft
	if state.AircraftID != "" {
		eff, err := s.deps.Catalog.Effective(state.AircraftID)
		if err != nil {
			// Update rejects unknown ids; this only happens if the fleet changed since
			s.log.Warnw("compute without aircraft defaults", "aircraft_id", state.AircraftID, "error", err)
		} else {
			ac = eff.Aircraft()
		}
	}

	results := quote.Compute(state, ac, s.deps.Commission)
	if m := s.deps.Metrics; m != nil {
		if results.Distance != nil {
			m.QuotesComputedTotal.WithLabelValues(string(pricing.MethodDistance)).Inc()
		}
		if results.Time != nil {
			m.QuotesComputedTotal.WithLabelValues(string(pricing.MethodTime)).Inc()
		}
	}
	return results
}

func (s *Session) saveDraft() {
	if s.deps.Store == nil {
		return
	}
	state := s.State()
	if err := store.SaveVersioned(context.Background(), s.deps.Store, draftKey(s.ID), DraftVersion, state); err != nil {
		s.log.Warnw("persist draft", "error", err)
	}
}

func (s *Session) restoreDraft(ctx context.Context) bool {
	if s.deps.Store == nil {
		return false
	}
	var state quote.State
	ok, err := store.LoadVersioned(ctx, s.deps.Store, draftKey(s.ID), DraftVersion, &state)
	if err != nil {
		s.log.Infow("discard persisted draft", "error", err)
	}
	if !ok {
		return false
	}
	results := s.compute(state)
	s.mu.Lock()
	s.state = state
	s.results = results
	s.mu.Unlock()
	return true
}

func (s *Session) renderMap(ctx context.Context, state quote.State) string {
	if s.deps.Resolver == nil || s.deps.Maps == nil {
		return ""
	}
	route := airport.ResolveRoute(ctx, s.deps.Resolver, state.RouteCodes(), s.log)
	if len(route) < 2 {
		return ""
	}
	img, err := s.deps.Maps.Render(ctx, airport.Points(route))
	if err != nil {
		s.log.Warnw("render route map", "error", err)
		return ""
	}
	return img
}

func (s *Session) saveQuote(ctx context.Context, snap quote.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.deps.Quotes.Insert(ctx, store.SavedQuote{
		ID:         snap.ID,
		SessionID:  s.ID,
		CreatedAt:  snap.FrozenAt,
		Title:      snap.Title(),
		Notes:      snap.State.Observations,
		AircraftID: snap.State.AircraftID,
		Total:      snap.PrimaryTotal(),
		Snapshot:   raw,
	})
}

func (s *Session) aircraftName(id string) string {
	if id == "" {
		return ""
	}
	if e, ok := s.deps.Catalog.Lookup(id); ok {
		return e.Name
	}
	return ""
}

func (s *Session) now() time.Time {
	if s.deps.Now != nil {
		return s.deps.Now()
	}
	return time.Now()
}

func cloneState(st quote.State) quote.State {
	return deep.MustCopy(st)
}
