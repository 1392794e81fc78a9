// Package store provides the string-keyed persistence used for drafts,
// frozen snapshots and catalog overrides.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when a key has no value.
var ErrNotFound = errors.New("store: key not found")

// Persistence is a string-keyed value store.
type Persistence interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// SaveVersioned stores v wrapped as {"version": version, "data": v}.
func SaveVersioned(ctx context.Context, p Persistence, key string, version int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	raw, err := json.Marshal(envelope{Version: version, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", key, err)
	}
	if err := p.Save(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// LoadVersioned decodes the payload stored under key into out. It reports
// false when the key is missing, unreadable or carries another version; such
// payloads are never migrated. The error explains why nothing was loaded and
// callers that treat failures as "no data" may ignore it.
func LoadVersioned(ctx context.Context, p Persistence, key string, version int, out any) (bool, error) {
	raw, err := p.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("decode %s envelope: %w", key, err)
	}
	if env.Version != version {
		return false, &VersionError{Key: key, Got: env.Version, Want: version}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// VersionError reports a persisted payload written by another version.
type VersionError struct {
	Key       string
	Got, Want int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("store: %s has version %d, want %d", e.Key, e.Got, e.Want)
}
