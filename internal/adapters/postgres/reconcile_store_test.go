package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/citysync/internal/config"
)

func TestConnString(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5423,
		Name:     "club",
		User:     "sync",
		Password: "secret",
		SSLMode:  "disable",
		MaxConns: 4,
	}

	got := ConnString(cfg)
	assert.Contains(t, got, "host=db.internal")
	assert.Contains(t, got, "port=5423")
	assert.Contains(t, got, "dbname=club")
	assert.Contains(t, got, "pool_max_conns=4")

	cfg.DSN = "postgres://u:p@localhost/x"
	assert.Equal(t, "postgres://u:p@localhost/x", ConnString(cfg))
}

func TestQueriesQuoteConfiguredTables(t *testing.T) {
	store := NewReconcileStore(nil, Tables{Chats: "city_chats_ik", Users: "public.users"})

	assert.Contains(t, store.LoadChatsQuery(), `FROM "city_chats_ik"`)
	assert.Contains(t, store.LoadChatsQuery(), "ORDER BY city, id")
	assert.Contains(t, store.UpdateQuery(), `UPDATE "public"."users"`)

	unlimited := store.FetchPendingQuery(false)
	assert.Contains(t, unlimited, "city_chat_id IS NULL")
	assert.Contains(t, unlimited, "ORDER BY telegram_id::bigint")
	assert.NotContains(t, unlimited, "LIMIT")
	assert.True(t, strings.HasSuffix(store.FetchPendingQuery(true), "LIMIT $3"))
}

func TestQuoteTable_EscapesQuotes(t *testing.T) {
	assert.Equal(t, `"we""ird"`, quoteTable(`we"ird`))
}

func TestNewPool_RejectsBadConnString(t *testing.T) {
	_, err := NewPool(testContext(t), config.DatabaseConfig{DSN: "postgres://%zz", ConnectTimeout: time.Second})
	assert.Error(t, err)
}
