package seed

import (
	"database/sql"
	"fmt"

	"github.com/Simplici0/charterquote/internal/catalog"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way. Aircraft already
// present, active or not, are left untouched so edits made in the database
// survive restarts.
func Run(db *sql.DB, fleet []catalog.Entry) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	for _, e := range fleet {
		if err := ensureAircraft(tx, e, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureAircraft(tx *sql.Tx, e catalog.Entry, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM aircraft WHERE id = ? LIMIT 1)`, e.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check aircraft %s existence: %w", e.ID, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO aircraft (id, name, category, cruise_speed_default, hourly_rate_default, active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Name, e.Category, e.CruiseSpeedDefault, e.HourlyRateDefault, true); err != nil {
		return fmt.Errorf("insert aircraft %s: %w", e.ID, err)
	}
	stats.Inserts++
	return nil
}
