// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/citysync/internal/ports/secondary"
)

// ReconcileStore implements secondary.ReconcileStore with SQLite.
type ReconcileStore struct {
	db *sql.DB
}

// NewReconcileStore creates a new SQLite reconcile store.
func NewReconcileStore(db *sql.DB) *ReconcileStore {
	return &ReconcileStore{db: db}
}

// LoadChats returns the whole chat directory ordered by city label.
func (r *ReconcileStore) LoadChats(ctx context.Context) ([]secondary.ChatRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, platform_id, city, chat_name, country FROM city_chats ORDER BY city, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list city chats: %w", err)
	}
	defer rows.Close()

	var chats []secondary.ChatRecord
	for rows.Next() {
		var (
			chat    secondary.ChatRecord
			name    sql.NullString
			country sql.NullString
		)
		if err := rows.Scan(&chat.ID, &chat.PlatformID, &chat.City, &name, &country); err != nil {
			return nil, fmt.Errorf("failed to scan city chat: %w", err)
		}
		chat.Name = name.String
		chat.Country = country.String
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list city chats: %w", err)
	}

	return chats, nil
}

// FetchPending returns active users without a chat reference, ordered by telegram id.
func (r *ReconcileStore) FetchPending(ctx context.Context, q secondary.PendingQuery) ([]secondary.UserRecord, error) {
	query := `SELECT id, telegram_id, first_name, city, city_chat_id, subscription_expires
		FROM users
		WHERE subscription_expires > ? AND city_chat_id IS NULL AND telegram_id > ?
		ORDER BY telegram_id`
	args := []any{q.Now.UTC(), q.AfterTelegramID}

	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending users: %w", err)
	}
	defer rows.Close()

	users := []secondary.UserRecord{}
	for rows.Next() {
		var (
			user      secondary.UserRecord
			firstName sql.NullString
			city      sql.NullString
			chatID    sql.NullInt64
			expires   sql.NullTime
		)
		if err := rows.Scan(&user.ID, &user.TelegramID, &firstName, &city, &chatID, &expires); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.FirstName = firstName.String
		user.City = city.String
		user.CityChatID = chatID.Int64
		user.SubscriptionExpires = expires.Time
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pending users: %w", err)
	}

	return users, nil
}

// ApplyUpdates writes a batch of city updates in one transaction.
func (r *ReconcileStore) ApplyUpdates(ctx context.Context, updates []secondary.CityUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"UPDATE users SET city = ?, city_chat_id = ?, updated_at = ? WHERE id = ?",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare update: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, u := range updates {
		res, err := stmt.ExecContext(ctx, u.City, u.ChatRecordID, now, u.UserID)
		if err != nil {
			return fmt.Errorf("failed to update user %d: %w", u.UserID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows for user %d: %w", u.UserID, err)
		}
		if n == 0 {
			return fmt.Errorf("user %d not found", u.UserID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit updates: %w", err)
	}
	return nil
}

// CountReconciled counts active users that already carry a chat reference.
func (r *ReconcileStore) CountReconciled(ctx context.Context, now time.Time) (int, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM users WHERE subscription_expires > ? AND city_chat_id IS NOT NULL", now)
}

// CountPending counts active users still waiting for a chat reference.
func (r *ReconcileStore) CountPending(ctx context.Context, now time.Time) (int, error) {
	return r.count(ctx, "SELECT COUNT(*) FROM users WHERE subscription_expires > ? AND city_chat_id IS NULL", now)
}

func (r *ReconcileStore) count(ctx context.Context, query string, now time.Time) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, now.UTC()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

var _ secondary.ReconcileStore = (*ReconcileStore)(nil)
