package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SeedFixtures populates a local store with a small directory and a handful of
// subscribers, enough to exercise a dry run against a fake platform.
func SeedFixtures(database *sql.DB, now time.Time) error {
	chats := []struct {
		id, platformID int64
		city, name     string
	}{
		{1, -1001000000001, "Oslo", "Oslo club"},
		{2, -1001000000002, "Riga", "Riga club"},
		{3, -1001000000003, "Tallinn", "Tallinn club"},
	}
	for _, c := range chats {
		if _, err := database.Exec(
			"INSERT INTO city_chats (id, platform_id, city, chat_name) VALUES (?, ?, ?, ?)",
			c.id, c.platformID, c.city, c.name,
		); err != nil {
			return fmt.Errorf("seed city_chats: %w", err)
		}
	}

	active := now.Add(30 * 24 * time.Hour).UTC()
	expired := now.Add(-24 * time.Hour).UTC()
	users := []struct {
		id, telegramID int64
		name           string
		city           any
		expires        time.Time
	}{
		{1, 1001, "Anna", nil, active},
		{2, 1002, "Boris", "Riga", active},
		{3, 1003, "Clara", "Oslo", active},
		{4, 1004, "Dmitri", nil, expired},
	}
	for _, u := range users {
		if _, err := database.Exec(
			"INSERT INTO users (id, telegram_id, first_name, city, subscription_expires) VALUES (?, ?, ?, ?, ?)",
			u.id, u.telegramID, u.name, u.city, u.expires,
		); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
	}

	return nil
}
