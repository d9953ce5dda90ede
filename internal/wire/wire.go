// Package wire provides dependency injection for citysync.
// It creates singleton stores and services with lazy initialization.
package wire

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cliadapter "github.com/example/citysync/internal/adapters/cli"
	"github.com/example/citysync/internal/adapters/httpstatus"
	"github.com/example/citysync/internal/adapters/postgres"
	"github.com/example/citysync/internal/adapters/sqlite"
	"github.com/example/citysync/internal/adapters/telegram"
	"github.com/example/citysync/internal/app"
	"github.com/example/citysync/internal/config"
	"github.com/example/citysync/internal/db"
	"github.com/example/citysync/internal/ports/secondary"
)

var (
	cfg    = config.Default()
	logger = zap.NewNop()

	storeOnce sync.Once
	store     secondary.ReconcileStore
	storeErr  error
	pgPool    *pgxpool.Pool
	sqliteDB  *sql.DB

	clientOnce sync.Once
	client     secondary.MembershipClient
	clientErr  error

	serviceOnce      sync.Once
	reconcileService *app.ReconcileServiceImpl
	serviceErr       error
)

// Configure sets the configuration and logger used by every lazily built
// component. It must be called before any other function in this package.
func Configure(c *config.Config, l *zap.Logger) {
	cfg = c
	logger = l
}

// Config returns the active configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the active logger.
func Logger() *zap.Logger {
	return logger
}

// Store returns the singleton store selected by database.driver.
func Store(ctx context.Context) (secondary.ReconcileStore, error) {
	storeOnce.Do(func() { initStore(ctx) })
	return store, storeErr
}

func initStore(ctx context.Context) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			storeErr = err
			return
		}
		pgPool = pool
		store = postgres.NewReconcileStore(pool, postgres.Tables{
			Chats: cfg.Database.ChatsTable,
			Users: cfg.Database.UsersTable,
		})
	case config.DriverSQLite:
		database, err := OpenSQLite()
		if err != nil {
			storeErr = err
			return
		}
		sqliteDB = database
		store = sqlite.NewReconcileStore(database)
	default:
		storeErr = fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// OpenSQLite opens the configured local store, creating its schema.
func OpenSQLite() (*sql.DB, error) {
	path := cfg.Database.Path
	if path == "" {
		p, err := db.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	logger.Debug("opening sqlite store", zap.String("path", path))
	return db.Open(path)
}

// MembershipClient returns the singleton Telegram client.
func MembershipClient() (secondary.MembershipClient, error) {
	clientOnce.Do(func() {
		httpClient := &http.Client{Timeout: cfg.Telegram.RequestTimeout}
		c, err := telegram.NewMembershipClient(cfg.Telegram.BotToken, cfg.Telegram.APIEndpoint, httpClient)
		if err != nil {
			clientErr = err
			return
		}
		client = c
	})
	return client, clientErr
}

// ReconcileService returns the singleton reconciliation service.
func ReconcileService(ctx context.Context) (*app.ReconcileServiceImpl, error) {
	serviceOnce.Do(func() {
		s, err := Store(ctx)
		if err != nil {
			serviceErr = err
			return
		}
		c, err := MembershipClient()
		if err != nil {
			serviceErr = err
			return
		}
		reconcileService = app.NewReconcileService(s, c, logger, nil)
	})
	return reconcileService, serviceErr
}

// ReconcileAdapter returns a new ReconcileAdapter writing to stdout.
func ReconcileAdapter(ctx context.Context) (*cliadapter.ReconcileAdapter, error) {
	return ReconcileAdapterWithOutput(ctx, os.Stdout)
}

// ReconcileAdapterWithOutput returns a new ReconcileAdapter writing to the given output.
func ReconcileAdapterWithOutput(ctx context.Context, out io.Writer) (*cliadapter.ReconcileAdapter, error) {
	svc, err := ReconcileService(ctx)
	if err != nil {
		return nil, err
	}
	return cliadapter.NewReconcileAdapter(svc, out), nil
}

// ProbeAdapter returns an adapter for single membership checks.
// Probing only talks to the platform, so no store is opened.
func ProbeAdapter(out io.Writer) (*cliadapter.ReconcileAdapter, error) {
	c, err := MembershipClient()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewReconcileAdapter(app.NewReconcileService(nil, c, logger, nil), out), nil
}

// DirectoryAdapter returns a new DirectoryAdapter writing to the given output.
func DirectoryAdapter(ctx context.Context, out io.Writer) (*cliadapter.DirectoryAdapter, error) {
	s, err := Store(ctx)
	if err != nil {
		return nil, err
	}
	return cliadapter.NewDirectoryAdapter(app.NewDirectoryService(s, nil), out), nil
}

// StatusServer returns a progress server for the reconciliation service.
func StatusServer(ctx context.Context, addr string) (*httpstatus.Server, error) {
	svc, err := ReconcileService(ctx)
	if err != nil {
		return nil, err
	}
	return httpstatus.NewServer(addr, svc, logger), nil
}

// Close releases the store connection, if one was opened.
func Close() error {
	var errs []error
	if pgPool != nil {
		pgPool.Close()
	}
	if sqliteDB != nil {
		if err := sqliteDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sqlite store: %w", err))
		}
	}
	_ = logger.Sync()
	return errors.Join(errs...)
}
