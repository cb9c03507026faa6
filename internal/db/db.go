// Package db provides the SQLite connection and schema for roomstated.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection.
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema.
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

func initSchema(db *sql.DB) error {
	// Transition ledger - append-only history of committed status changes
	// and fired reversions. Multiple rows per room; the Room Service, not
	// this table, stays the authority for current status.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transition_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			room_id TEXT NOT NULL,
			from_status TEXT,
			to_status TEXT,
			fires_at INTEGER,
			source TEXT,
			idempotency_key TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_room_ts ON transition_ledger(room_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_ledger_type_ts ON transition_ledger(event_type, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create transition_ledger table: %w", err)
	}

	// Unique partial index: only one reversion_fired row per occurrence,
	// so a raced or replayed fire cannot be recorded twice.
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_reversion_once
		ON transition_ledger(idempotency_key)
		WHERE idempotency_key IS NOT NULL AND idempotency_key != '' AND event_type = 'reversion_fired';
	`)
	if err != nil {
		return fmt.Errorf("failed to create idx_ledger_reversion_once index: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
