package db

import (
	"database/sql"
	"fmt"
)

// SchemaSQL is the complete schema for local SQLite stores.
// It reflects the state after all migrations.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the SQLite schema. Adapter tests load
// it through GetSchemaSQL() instead of declaring their own tables, so a
// repository query that references a missing column fails at test time.
//
// The Postgres adapter runs against an existing application database whose
// tables follow the same column names.
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- City chats (read-only directory for reconciliation)
CREATE TABLE IF NOT EXISTS city_chats (
	id INTEGER PRIMARY KEY,
	platform_id INTEGER NOT NULL,
	city TEXT NOT NULL,
	chat_name TEXT,
	country TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_city_chats_city ON city_chats(city);

-- Users (subscribers whose home city is reconciled)
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY,
	telegram_id INTEGER NOT NULL UNIQUE,
	first_name TEXT,
	city TEXT,
	city_chat_id INTEGER,
	subscription_expires DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (city_chat_id) REFERENCES city_chats(id)
);

CREATE INDEX IF NOT EXISTS idx_users_pending ON users(telegram_id) WHERE city_chat_id IS NULL;
`

// InitSchema prepares a database for use.
// Fresh databases get SchemaSQL directly; existing ones run pending migrations.
func InitSchema(database *sql.DB) error {
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}
	if tableCount > 0 {
		return RunMigrations(database)
	}

	var userTables int
	err = database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='users'").Scan(&userTables)
	if err != nil {
		return err
	}
	if userTables > 0 {
		// Unversioned store created before migrations existed.
		return RunMigrations(database)
	}

	if _, err := database.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := ensureVersionTable(database); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return err
		}
	}
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
