// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
package sqlite_test

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/citysync/internal/db"
)

// testNow is the fixed "now" used by every repository test.
var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository tests.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Every connection to ":memory:" is a separate database.
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedChat inserts a directory entry and returns its ID.
func seedChat(t *testing.T, db *sql.DB, id, platformID int64, city string) int64 {
	t.Helper()
	_, err := db.Exec("INSERT INTO city_chats (id, platform_id, city, chat_name) VALUES (?, ?, ?, ?)", id, platformID, city, city+" chat")
	if err != nil {
		t.Fatalf("failed to seed chat: %v", err)
	}
	return id
}

// seedUser inserts a user with an entitlement expiring `expiresIn` after testNow.
// city and chatID are stored as NULL when empty/zero.
func seedUser(t *testing.T, db *sql.DB, id, telegramID int64, city string, chatID int64, expiresIn time.Duration) int64 {
	t.Helper()
	var (
		cityVal any
		chatVal any
	)
	if city != "" {
		cityVal = city
	}
	if chatID != 0 {
		chatVal = chatID
	}
	_, err := db.Exec(
		"INSERT INTO users (id, telegram_id, first_name, city, city_chat_id, subscription_expires) VALUES (?, ?, ?, ?, ?, ?)",
		id, telegramID, "user", cityVal, chatVal, testNow.Add(expiresIn),
	)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return id
}

// readUser returns the stored city and chat reference for a user.
func readUser(t *testing.T, db *sql.DB, id int64) (sql.NullString, sql.NullInt64) {
	t.Helper()
	var (
		city sql.NullString
		ref  sql.NullInt64
	)
	if err := db.QueryRow("SELECT city, city_chat_id FROM users WHERE id = ?", id).Scan(&city, &ref); err != nil {
		t.Fatalf("failed to read user %d: %v", id, err)
	}
	return city, ref
}
