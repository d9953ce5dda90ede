package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/citysync/internal/ports/secondary"
)

// Tables names the application tables the store reads and writes.
type Tables struct {
	Chats string
	Users string
}

// dbPool is the part of *pgxpool.Pool the store uses.
type dbPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ReconcileStore implements secondary.ReconcileStore against the application
// Postgres database. Identifiers are user-configurable, so they are quoted
// through pgx.Identifier before being spliced into queries.
type ReconcileStore struct {
	pool  dbPool
	chats string
	users string
}

// NewReconcileStore creates a new Postgres reconcile store.
func NewReconcileStore(pool *pgxpool.Pool, tables Tables) *ReconcileStore {
	return newReconcileStore(pool, tables)
}

func newReconcileStore(pool dbPool, tables Tables) *ReconcileStore {
	return &ReconcileStore{
		pool:  pool,
		chats: quoteTable(tables.Chats),
		users: quoteTable(tables.Users),
	}
}

// quoteTable accepts "table" or "schema.table".
func quoteTable(name string) string {
	if schema, table, ok := strings.Cut(name, "."); ok {
		return pgx.Identifier{schema, table}.Sanitize()
	}
	return pgx.Identifier{name}.Sanitize()
}

// LoadChatsQuery returns the directory query; exported for tests.
func (r *ReconcileStore) LoadChatsQuery() string {
	return fmt.Sprintf(
		`SELECT id, platform_id::bigint, city, COALESCE(chat_name, ''), COALESCE(country, '')
		FROM %s
		WHERE platform_id IS NOT NULL
		ORDER BY city, id`, r.chats)
}

// LoadChats returns the whole chat directory ordered by city label.
func (r *ReconcileStore) LoadChats(ctx context.Context) ([]secondary.ChatRecord, error) {
	rows, err := r.pool.Query(ctx, r.LoadChatsQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to list city chats: %w", err)
	}

	chats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (secondary.ChatRecord, error) {
		var c secondary.ChatRecord
		err := row.Scan(&c.ID, &c.PlatformID, &c.City, &c.Name, &c.Country)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan city chats: %w", err)
	}
	return chats, nil
}

// FetchPendingQuery returns the candidate query; exported for tests.
// telegram_id is cast because older rows store it as text.
func (r *ReconcileStore) FetchPendingQuery(limited bool) string {
	q := fmt.Sprintf(
		`SELECT id, telegram_id::bigint, COALESCE(first_name, ''), COALESCE(city, ''), subscription_expires
		FROM %s
		WHERE subscription_expires > $1
		  AND city_chat_id IS NULL
		  AND telegram_id::bigint > $2
		ORDER BY telegram_id::bigint`, r.users)
	if limited {
		q += " LIMIT $3"
	}
	return q
}

// FetchPending returns active users without a chat reference, ordered by telegram id.
func (r *ReconcileStore) FetchPending(ctx context.Context, q secondary.PendingQuery) ([]secondary.UserRecord, error) {
	args := []any{q.Now, q.AfterTelegramID}
	if q.Limit > 0 {
		args = append(args, q.Limit)
	}

	rows, err := r.pool.Query(ctx, r.FetchPendingQuery(q.Limit > 0), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (secondary.UserRecord, error) {
		var u secondary.UserRecord
		err := row.Scan(&u.ID, &u.TelegramID, &u.FirstName, &u.City, &u.SubscriptionExpires)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending users: %w", err)
	}
	if users == nil {
		users = []secondary.UserRecord{}
	}
	return users, nil
}

// UpdateQuery returns the per-user update statement; exported for tests.
func (r *ReconcileStore) UpdateQuery() string {
	return fmt.Sprintf(`UPDATE %s SET city = $1, city_chat_id = $2, updated_at = NOW() WHERE id = $3`, r.users)
}

// ApplyUpdates writes a batch of city updates in one transaction.
// The statements are pipelined with pgx.Batch; any failure rolls back all of them.
func (r *ReconcileStore) ApplyUpdates(ctx context.Context, updates []secondary.CityUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	query := r.UpdateQuery()
	for _, u := range updates {
		batch.Queue(query, u.City, u.ChatRecordID, u.UserID)
	}

	results := tx.SendBatch(ctx, batch)
	for _, u := range updates {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to update user %d: %w", u.UserID, err)
		}
		if tag.RowsAffected() == 0 {
			_ = results.Close()
			return fmt.Errorf("user %d not found", u.UserID)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to finish update batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit updates: %w", err)
	}
	return nil
}

// CountReconciled counts active users that already carry a chat reference.
func (r *ReconcileStore) CountReconciled(ctx context.Context, now time.Time) (int, error) {
	return r.count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE subscription_expires > $1 AND city_chat_id IS NOT NULL", r.users), now)
}

// CountPending counts active users still waiting for a chat reference.
func (r *ReconcileStore) CountPending(ctx context.Context, now time.Time) (int, error) {
	return r.count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE subscription_expires > $1 AND city_chat_id IS NULL", r.users), now)
}

func (r *ReconcileStore) count(ctx context.Context, query string, now time.Time) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, query, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

var _ secondary.ReconcileStore = (*ReconcileStore)(nil)
