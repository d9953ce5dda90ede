package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/citysync/internal/config"
	"github.com/example/citysync/internal/ports/secondary"
)

// testContext returns a context cancelled when the test finishes
// (equivalent of testing.T.Context, which requires Go 1.24).
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// setupTestPool connects to CITYSYNC_TEST_DATABASE_URL and creates
// session-local tables. A single connection keeps the temp tables visible.
func setupTestPool(t *testing.T) *ReconcileStore {
	t.Helper()
	dsn := os.Getenv("CITYSYNC_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CITYSYNC_TEST_DATABASE_URL not set")
	}

	pool, err := NewPool(testContext(t), config.DatabaseConfig{DSN: dsn, MaxConns: 1, ConnectTimeout: 10 * time.Second})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(testContext(t), `
		CREATE TEMP TABLE it_city_chats (
			id BIGINT PRIMARY KEY,
			platform_id BIGINT NOT NULL,
			city TEXT NOT NULL,
			chat_name TEXT,
			country TEXT
		);
		CREATE TEMP TABLE it_users (
			id BIGINT PRIMARY KEY,
			telegram_id BIGINT NOT NULL UNIQUE,
			first_name TEXT,
			city TEXT,
			city_chat_id BIGINT REFERENCES it_city_chats(id),
			subscription_expires TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ
		);
		INSERT INTO it_city_chats (id, platform_id, city) VALUES (1, -1001, 'Oslo'), (2, -1002, 'Riga');
		INSERT INTO it_users (id, telegram_id, first_name, subscription_expires) VALUES
			(1, 501, 'Ada', NOW() + INTERVAL '30 days'),
			(2, 502, 'Bo', NOW() + INTERVAL '30 days'),
			(3, 503, 'Cy', NOW() - INTERVAL '1 day');
	`)
	require.NoError(t, err)

	return NewReconcileStore(pool, Tables{Chats: "it_city_chats", Users: "it_users"})
}

func TestIntegration_ReconcileStore(t *testing.T) {
	store := setupTestPool(t)
	ctx := context.Background()
	now := time.Now()

	chats, err := store.LoadChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "Oslo", chats[0].City)

	pending, err := store.FetchPending(ctx, secondary.PendingQuery{Now: now})
	require.NoError(t, err)
	require.Len(t, pending, 2, "expired users are not candidates")
	assert.Equal(t, int64(501), pending[0].TelegramID)

	// An unknown user in the batch leaves every row untouched.
	err = store.ApplyUpdates(ctx, []secondary.CityUpdate{
		{UserID: 1, City: "Riga", ChatRecordID: 2},
		{UserID: 99, City: "Oslo", ChatRecordID: 1},
	})
	require.Error(t, err)
	pendingCount, err := store.CountPending(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, pendingCount)

	require.NoError(t, store.ApplyUpdates(ctx, []secondary.CityUpdate{
		{UserID: 1, City: "Riga", ChatRecordID: 2},
		{UserID: 2, City: "Oslo", ChatRecordID: 1},
	}))
	reconciled, err := store.CountReconciled(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, reconciled)

	pending, err = store.FetchPending(ctx, secondary.PendingQuery{Now: now})
	require.NoError(t, err)
	assert.Empty(t, pending)
}
