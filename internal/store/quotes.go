package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SavedQuote is one frozen quote kept for later reference.
type SavedQuote struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"sessionId"`
	CreatedAt  time.Time       `json:"createdAt"`
	Title      string          `json:"title"`
	Notes      string          `json:"notes,omitempty"`
	AircraftID string          `json:"aircraftId,omitempty"`
	Total      float64         `json:"total"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
}

// Quotes stores saved quotes in the quotes table.
type Quotes struct {
	db *sql.DB
}

// NewQuotes returns a repository over db.
func NewQuotes(db *sql.DB) *Quotes {
	return &Quotes{db: db}
}

// Insert stores q, replacing any quote with the same id.
func (r *Quotes) Insert(ctx context.Context, q SavedQuote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO quotes (id, session_id, created_at, title, notes, aircraft_id, total, snapshot_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			notes = excluded.notes,
			total = excluded.total,
			snapshot_json = excluded.snapshot_json
	`, q.ID, q.SessionID, q.CreatedAt.UTC().Format(time.RFC3339), q.Title, q.Notes, q.AircraftID, q.Total, string(q.Snapshot))
	if err != nil {
		return fmt.Errorf("insert quote %s: %w", q.ID, err)
	}
	return nil
}

// List returns saved quotes newest first. A non-empty query filters on
// title and notes. Snapshots are not loaded.
func (r *Quotes) List(ctx context.Context, query string, limit int) ([]SavedQuote, error) {
	if limit <= 0 {
		limit = 100
	}
	search := "%" + query + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id,
			session_id,
			created_at,
			COALESCE(title, ''),
			COALESCE(notes, ''),
			COALESCE(aircraft_id, ''),
			total
		FROM quotes
		WHERE (? = '' OR COALESCE(title, '') LIKE ? OR COALESCE(notes, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
		LIMIT ?
	`, query, search, search, limit)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]SavedQuote, 0)
	for rows.Next() {
		var q SavedQuote
		var created string
		if err := rows.Scan(&q.ID, &q.SessionID, &created, &q.Title, &q.Notes, &q.AircraftID, &q.Total); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		q.CreatedAt = parseTime(created)
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return quotes, nil
}

// Get returns one saved quote including its snapshot.
func (r *Quotes) Get(ctx context.Context, id string) (SavedQuote, error) {
	var q SavedQuote
	var created, snapshot string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, created_at, COALESCE(title, ''), COALESCE(notes, ''), COALESCE(aircraft_id, ''), total, snapshot_json
		FROM quotes
		WHERE id = ?
	`, id).Scan(&q.ID, &q.SessionID, &created, &q.Title, &q.Notes, &q.AircraftID, &q.Total, &snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedQuote{}, ErrNotFound
	}
	if err != nil {
		return SavedQuote{}, fmt.Errorf("get quote %s: %w", id, err)
	}
	q.CreatedAt = parseTime(created)
	q.Snapshot = json.RawMessage(snapshot)
	return q, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
