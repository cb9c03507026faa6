// Package ledger provides an append-only history of room status
// transitions. It backs the audit endpoint and records each reversion
// occurrence exactly once.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/room"
)

// EventType represents the kind of a ledger entry.
type EventType string

const (
	// EventTransition records a committed status change, manual or timed.
	EventTransition EventType = "transition_committed"
	// EventReversionFired records a timer-fired reversion that committed.
	EventReversionFired EventType = "reversion_fired"
	// EventReversionFailed records a timer-fired reversion whose
	// persistence call failed.
	EventReversionFailed EventType = "reversion_failed"
)

// Entry is a single row of the transition history.
type Entry struct {
	ID             int64
	EventType      EventType
	Timestamp      time.Time
	RoomID         string
	From           room.Status
	To             room.Status
	FiresAt        *time.Time
	Source         string
	IdempotencyKey string
}

// Ledger provides append-only transition logging.
type Ledger struct {
	db *sql.DB
}

// New creates a Ledger using the provided database connection.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append adds an entry. For reversion_fired entries with an idempotency
// key, INSERT OR IGNORE plus the unique partial index makes the first
// writer win; replays are silently absorbed.
func (l *Ledger) Append(e Entry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var firesAt *int64
	if e.FiresAt != nil {
		v := e.FiresAt.UTC().Unix()
		firesAt = &v
	}

	insertSQL := `INSERT INTO transition_ledger (event_type, timestamp, room_id, from_status, to_status, fires_at, source, idempotency_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if e.EventType == EventReversionFired && e.IdempotencyKey != "" {
		insertSQL = `INSERT OR IGNORE INTO transition_ledger (event_type, timestamp, room_id, from_status, to_status, fires_at, source, idempotency_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	}

	_, err := l.db.Exec(insertSQL,
		string(e.EventType), ts.UTC().Unix(), e.RoomID,
		string(e.From), string(e.To), firesAt, e.Source, e.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// HasFired checks whether a reversion occurrence was already recorded.
func (l *Ledger) HasFired(idempotencyKey string) bool {
	if idempotencyKey == "" {
		return false
	}

	var exists int
	err := l.db.QueryRow(`
		SELECT 1 FROM transition_ledger
		WHERE idempotency_key = ? AND event_type = ?
		LIMIT 1
	`, idempotencyKey, string(EventReversionFired)).Scan(&exists)

	return err == nil && exists == 1
}

// ByRoom returns the most recent entries for a room, newest first.
func (l *Ledger) ByRoom(roomID string, limit int) ([]Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, room_id, from_status, to_status, fires_at, source, idempotency_key
		FROM transition_ledger
		WHERE room_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries past the retention window.
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Unix()
	result, err := l.db.Exec(`DELETE FROM transition_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		var from, to, source, key sql.NullString
		var firesAt sql.NullInt64

		if err := rows.Scan(&e.ID, &e.EventType, &ts, &e.RoomID, &from, &to, &firesAt, &source, &key); err != nil {
			return nil, err
		}

		e.Timestamp = time.Unix(ts, 0).UTC()
		e.From = room.Status(from.String)
		e.To = room.Status(to.String)
		e.Source = source.String
		e.IdempotencyKey = key.String
		if firesAt.Valid {
			t := time.Unix(firesAt.Int64, 0).UTC()
			e.FiresAt = &t
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}
