// Package catalog holds the charter fleet and per-aircraft user overrides.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Simplici0/charterquote/internal/logging"
	"github.com/Simplici0/charterquote/internal/quote"
	"github.com/Simplici0/charterquote/internal/store"
)

// ErrAircraftNotFound is returned for ids missing from the catalog.
var ErrAircraftNotFound = errors.New("aircraft not found")

const (
	// OverridesKey is the persistence key of the override map.
	OverridesKey = "aircraft:overrides"
	// OverridesVersion tags the persisted override map.
	OverridesVersion = 1
)

// Entry is one aircraft with its catalog defaults.
type Entry struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Category           string  `json:"category"`
	CruiseSpeedDefault float64 `json:"cruiseSpeedDefault"`
	HourlyRateDefault  float64 `json:"hourlyRateDefault"`
}

// Override replaces catalog defaults for one aircraft. Nil fields keep the default.
type Override struct {
	CruiseSpeed *float64 `json:"cruiseSpeed,omitempty"`
	HourlyRate  *float64 `json:"hourlyRate,omitempty"`
}

// Effective is an entry with overrides applied.
type Effective struct {
	Entry
	CruiseSpeed float64   `json:"cruiseSpeed"`
	HourlyRate  float64   `json:"hourlyRate"`
	Override    *Override `json:"override,omitempty"`
}

// Aircraft converts e for the pricing engines.
func (e Effective) Aircraft() quote.Aircraft {
	return quote.Aircraft{
		ID:            e.ID,
		Name:          e.Name,
		CruiseSpeedKt: e.CruiseSpeed,
		HourlyRate:    e.HourlyRate,
	}
}

// Catalog is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	entries   []Entry
	byID      map[string]int
	overrides map[string]Override

	store store.Persistence
	log   *zap.SugaredLogger
}

// New builds a catalog over entries. p may be nil, in which case overrides
// live only in memory.
func New(entries []Entry, p store.Persistence, log *zap.SugaredLogger) *Catalog {
	c := &Catalog{
		entries:   append([]Entry(nil), entries...),
		byID:      make(map[string]int, len(entries)),
		overrides: make(map[string]Override),
		store:     p,
		log:       logging.OrNop(log),
	}
	for i, e := range c.entries {
		c.byID[e.ID] = i
	}
	return c
}

// Load reads the active aircraft from the database ordered by name.
func Load(ctx context.Context, db *sql.DB) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, category, cruise_speed_default, hourly_rate_default
		FROM aircraft
		WHERE active = 1
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query aircraft: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.CruiseSpeedDefault, &e.HourlyRateDefault); err != nil {
			return nil, fmt.Errorf("scan aircraft: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aircraft: %w", err)
	}
	return entries, nil
}

// Entries returns the catalog in its original order.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Entry(nil), c.entries...)
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Effective applies any override to the entry for id.
func (c *Catalog) Effective(id string) (Effective, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return Effective{}, fmt.Errorf("effective pricing for %q: %w", id, ErrAircraftNotFound)
	}
	e := c.entries[i]
	eff := Effective{Entry: e, CruiseSpeed: e.CruiseSpeedDefault, HourlyRate: e.HourlyRateDefault}

	if o, ok := c.overrides[id]; ok {
		if v, ok := numeric(o.CruiseSpeed); ok {
			eff.CruiseSpeed = v
		}
		if v, ok := numeric(o.HourlyRate); ok {
			eff.HourlyRate = v
		}
		eff.Override = &o
	}
	return eff, nil
}

// EffectiveAll returns every entry with overrides applied.
func (c *Catalog) EffectiveAll() []Effective {
	entries := c.Entries()
	out := make([]Effective, 0, len(entries))
	for _, e := range entries {
		eff, err := c.Effective(e.ID)
		if err != nil {
			continue
		}
		out = append(out, eff)
	}
	return out
}

// SetOverride stores o for id and persists the override map.
func (c *Catalog) SetOverride(ctx context.Context, id string, o Override) error {
	c.mu.Lock()
	if _, ok := c.byID[id]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("set override for %q: %w", id, ErrAircraftNotFound)
	}
	if o.CruiseSpeed == nil && o.HourlyRate == nil {
		delete(c.overrides, id)
	} else {
		c.overrides[id] = o
	}
	snapshot := c.copyOverrides()
	c.mu.Unlock()

	return c.persist(ctx, snapshot)
}

// ClearOverride removes the override for id.
func (c *Catalog) ClearOverride(ctx context.Context, id string) error {
	return c.SetOverride(ctx, id, Override{})
}

// LoadOverrides replaces in-memory overrides with the persisted map. Read
// failures leave the catalog without overrides; ids no longer in the catalog
// are dropped.
func (c *Catalog) LoadOverrides(ctx context.Context) {
	if c.store == nil {
		return
	}
	var persisted map[string]Override
	ok, err := store.LoadVersioned(ctx, c.store, OverridesKey, OverridesVersion, &persisted)
	if err != nil {
		c.log.Infow("ignore persisted aircraft overrides", "error", err)
	}
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides = make(map[string]Override, len(persisted))
	for id, o := range persisted {
		if _, known := c.byID[id]; known {
			c.overrides[id] = o
		}
	}
}

// OverrideIDs lists the ids that currently carry an override.
func (c *Catalog) OverrideIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.overrides))
	for id := range c.overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Catalog) copyOverrides() map[string]Override {
	m := make(map[string]Override, len(c.overrides))
	for k, v := range c.overrides {
		m[k] = v
	}
	return m
}

func (c *Catalog) persist(ctx context.Context, overrides map[string]Override) error {
	if c.store == nil {
		return nil
	}
	if err := store.SaveVersioned(ctx, c.store, OverridesKey, OverridesVersion, overrides); err != nil {
		return fmt.Errorf("persist aircraft overrides: %w", err)
	}
	return nil
}

func numeric(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}
