package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Users table
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT UNIQUE NOT NULL,
				password_hash TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'operator',
				active INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME
			);

			-- Buses table
			CREATE TABLE IF NOT EXISTS buses (
				id TEXT PRIMARY KEY,
				plate TEXT UNIQUE NOT NULL,
				alias TEXT,
				active INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				updated_at DATETIME
			);

			-- Inspection events: append-only, never updated or deleted.
			CREATE TABLE IF NOT EXISTS inspection_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				bus_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				state TEXT NOT NULL,
				confidence REAL,
				observations TEXT,
				issues_json TEXT,
				thumb_url TEXT,
				origin TEXT NOT NULL DEFAULT 'edge',
				created_at DATETIME NOT NULL,
				FOREIGN KEY (bus_id) REFERENCES buses(id),
				FOREIGN KEY (user_id) REFERENCES users(id)
			);

			-- Alerts table
			CREATE TABLE IF NOT EXISTS alerts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				bus_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				severity TEXT NOT NULL,
				detail TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				resolved_by TEXT,
				resolved_at DATETIME,
				FOREIGN KEY (bus_id) REFERENCES buses(id),
				FOREIGN KEY (resolved_by) REFERENCES users(id)
			);

			-- Refresh tokens table
			CREATE TABLE IF NOT EXISTS refresh_tokens (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				token_hash TEXT UNIQUE NOT NULL,
				expires_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				revoked INTEGER NOT NULL DEFAULT 0,
				revoked_at DATETIME,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- At most one unresolved alert per (bus, kind). Inserts racing
			-- for the same pair collapse into a single row; resolved alerts
			-- fall out of the index and stop suppressing new ones.
			CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_unresolved
				ON alerts(bus_id, kind) WHERE resolved_at IS NULL;

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
			CREATE INDEX IF NOT EXISTS idx_buses_plate ON buses(plate);
			CREATE INDEX IF NOT EXISTS idx_events_bus_created ON inspection_events(bus_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_events_state ON inspection_events(state);
			CREATE INDEX IF NOT EXISTS idx_events_user ON inspection_events(user_id);
			CREATE INDEX IF NOT EXISTS idx_alerts_bus ON alerts(bus_id);
			CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
			CREATE INDEX IF NOT EXISTS idx_tokens_hash ON refresh_tokens(token_hash);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	// Create migrations table if not exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	// Apply pending migrations
	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
