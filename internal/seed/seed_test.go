package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Simplici0/charterquote/internal/catalog"
	"github.com/Simplici0/charterquote/internal/db"
	"github.com/Simplici0/charterquote/internal/migrations"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	fleet := catalog.Defaults()
	for i := 0; i < 10; i++ {
		stats, err := Run(database, fleet)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != len(fleet) {
				t.Fatalf("expected %d inserts in first run, got %d", len(fleet), stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM aircraft`, nil, len(fleet))
	assertCount(t, database, `SELECT COUNT(*) FROM aircraft WHERE id = ?`, "pc12", 1)

	entries, err := catalog.Load(context.Background(), database)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(entries) != len(fleet) {
		t.Fatalf("expected %d catalog entries, got %d", len(fleet), len(entries))
	}
}

func TestRunKeepsEditedAircraft(t *testing.T) {
	t.Parallel()

	database, err := db.Open(filepath.Join(t.TempDir(), "seed-edit.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()
	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	if _, err := Run(database, catalog.Defaults()); err != nil {
		t.Fatalf("run seed: %v", err)
	}
	if _, err := database.Exec(`UPDATE aircraft SET hourly_rate_default = 9999, active = 0 WHERE id = 'c90'`); err != nil {
		t.Fatalf("edit aircraft: %v", err)
	}
	if _, err := Run(database, catalog.Defaults()); err != nil {
		t.Fatalf("rerun seed: %v", err)
	}

	assertCount(t, database, `SELECT COUNT(*) FROM aircraft WHERE id = ? AND hourly_rate_default = 9999 AND active = 0`, "c90", 1)
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
