// Package sqlite provides a SQLite-backed conflict store. WAL mode and
// a busy timeout allow concurrent detection passes from multiple
// processes; a partial unique index on the open pair keeps the
// "one open conflict per pair" invariant even under a race.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hearthkit/calengine/conflict"
)

// Store implements conflict.Store over SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conflicts (
		id               TEXT PRIMARY KEY,
		household_id     TEXT NOT NULL,
		event_id1        TEXT NOT NULL,
		event_id2        TEXT NOT NULL,
		conflict_type    TEXT NOT NULL,
		severity         TEXT NOT NULL,
		description      TEXT NOT NULL,
		detected_at      TEXT NOT NULL,
		resolved_at      TEXT,
		resolution_notes TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_conflicts_household ON conflicts(household_id, detected_at);
	CREATE INDEX IF NOT EXISTS idx_conflicts_events ON conflicts(household_id, event_id1, event_id2);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_conflicts_open_pair
		ON conflicts(household_id, event_id1, event_id2) WHERE resolved_at IS NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

const conflictColumns = `id, household_id, event_id1, event_id2, conflict_type,
	severity, description, detected_at, resolved_at, resolution_notes`

func (s *Store) FindOpenByEvent(householdID, eventID string) ([]conflict.Conflict, error) {
	rows, err := s.db.Query(`
		SELECT `+conflictColumns+`
		FROM conflicts
		WHERE household_id = ? AND resolved_at IS NULL
		  AND (event_id1 = ? OR event_id2 = ?)
		ORDER BY id`,
		householdID, eventID, eventID)
	if err != nil {
		return nil, fmt.Errorf("query open conflicts: %w", err)
	}
	defer rows.Close()
	return scanConflicts(rows)
}

func (s *Store) ListByHousehold(householdID string) ([]conflict.Conflict, error) {
	rows, err := s.db.Query(`
		SELECT `+conflictColumns+`
		FROM conflicts
		WHERE household_id = ?
		ORDER BY detected_at DESC, id`,
		householdID)
	if err != nil {
		return nil, fmt.Errorf("query household conflicts: %w", err)
	}
	defer rows.Close()
	return scanConflicts(rows)
}

func (s *Store) Insert(c *conflict.Conflict) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(`
			INSERT INTO conflicts (`+conflictColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, '')`,
			c.ID, c.HouseholdID, c.EventID1, c.EventID2, string(c.Type),
			string(c.Severity), c.Description, c.DetectedAt.UTC().Format(time.RFC3339Nano))
		if err != nil && isUniqueViolation(err) {
			return conflict.ErrDuplicatePair
		}
		if err != nil {
			return fmt.Errorf("insert conflict: %w", err)
		}
		return nil
	})
}

func (s *Store) MarkResolved(id string, at time.Time, notes string) error {
	return retryOnContention(func() error {
		res, err := s.db.Exec(`
			UPDATE conflicts
			SET resolved_at = ?, resolution_notes = ?
			WHERE id = ? AND resolved_at IS NULL`,
			at.UTC().Format(time.RFC3339Nano), notes, id)
		if err != nil {
			return fmt.Errorf("resolve conflict: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("resolve conflict: %w", err)
		}
		if n == 0 {
			// Already resolved or missing; distinguish the two.
			var exists int
			if err := s.db.QueryRow(`SELECT COUNT(*) FROM conflicts WHERE id = ?`, id).Scan(&exists); err != nil {
				return fmt.Errorf("resolve conflict: %w", err)
			}
			if exists == 0 {
				return conflict.ErrNotFound
			}
		}
		return nil
	})
}

func scanConflicts(rows *sql.Rows) ([]conflict.Conflict, error) {
	var out []conflict.Conflict
	for rows.Next() {
		var c conflict.Conflict
		var typ, sev, detected string
		var resolved sql.NullString
		if err := rows.Scan(&c.ID, &c.HouseholdID, &c.EventID1, &c.EventID2,
			&typ, &sev, &c.Description, &detected, &resolved, &c.ResolutionNotes); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		c.Type = conflict.Type(typ)
		c.Severity = conflict.Severity(sev)
		t, err := time.Parse(time.RFC3339Nano, detected)
		if err != nil {
			return nil, fmt.Errorf("parse detected_at %q: %w", detected, err)
		}
		c.DetectedAt = t
		if resolved.Valid {
			rt, err := time.Parse(time.RFC3339Nano, resolved.String)
			if err != nil {
				return nil, fmt.Errorf("parse resolved_at %q: %w", resolved.String, err)
			}
			c.ResolvedAt = &rt
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
