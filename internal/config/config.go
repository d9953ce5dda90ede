package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the full citysync configuration.
// Precedence, lowest first: defaults, .citysync/config.yaml, environment, CLI flags.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	Driver         string        `yaml:"driver"` // "postgres" or "sqlite"
	DSN            string        `yaml:"dsn"`    // postgres URL/DSN, overrides the fields below
	Path           string        `yaml:"path"`   // sqlite file
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Name           string        `yaml:"name"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	SSLMode        string        `yaml:"sslmode"`
	MaxConns       int32         `yaml:"max_conns"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ChatsTable     string        `yaml:"chats_table"`
	UsersTable     string        `yaml:"users_table"`
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	BotToken       string        `yaml:"bot_token"`
	APIEndpoint    string        `yaml:"api_endpoint"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ReconcileConfig holds the run tuning knobs.
type ReconcileConfig struct {
	Strategy      string        `yaml:"strategy"`
	Concurrency   int           `yaml:"concurrency"`
	CallDelay     time.Duration `yaml:"call_delay"`
	UserDelay     time.Duration `yaml:"user_delay"`
	BatchSize     int           `yaml:"batch_size"`
	PageSize      int           `yaml:"page_size"`
	ProgressEvery int           `yaml:"progress_every"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:         DriverPostgres,
			Host:           "localhost",
			Port:           5432,
			Name:           "postgres",
			User:           "postgres",
			SSLMode:        "prefer",
			MaxConns:       4,
			ConnectTimeout: 30 * time.Second,
			ChatsTable:     "city_chats",
			UsersTable:     "users",
		},
		Telegram: TelegramConfig{
			RequestTimeout: 30 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Strategy:      "sequential",
			Concurrency:   5,
			CallDelay:     50 * time.Millisecond,
			BatchSize:     50,
			PageSize:      1000,
			ProgressEvery: 50,
			ProbeTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// FilePath returns where the config file lives for a directory.
func FilePath(dir string) string {
	return filepath.Join(dir, ".citysync", "config.yaml")
}

// LoadConfig builds the configuration for the given directory.
// Resolution order: defaults, then .citysync/config.yaml in dir (optional),
// then environment variables.
func LoadConfig(dir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(FilePath(dir))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the config file for a directory.
func SaveConfig(dir string, cfg *Config) error {
	path := FilePath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may carry a bot token and a database password.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("CITYSYNC_DB_DRIVER", &cfg.Database.Driver)
	str("DATABASE_URL", &cfg.Database.DSN)
	str("CITYSYNC_DB_PATH", &cfg.Database.Path)
	str("DB_HOST", &cfg.Database.Host)
	num("DB_PORT", &cfg.Database.Port)
	str("DB_NAME", &cfg.Database.Name)
	str("DB_USER", &cfg.Database.User)
	str("DB_PASSWORD", &cfg.Database.Password)
	str("DB_SSLMODE", &cfg.Database.SSLMode)
	dur("DB_CONNECT_TIMEOUT", &cfg.Database.ConnectTimeout)
	str("CITYSYNC_CHATS_TABLE", &cfg.Database.ChatsTable)
	str("CITYSYNC_USERS_TABLE", &cfg.Database.UsersTable)

	str("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	str("TELEGRAM_API_ENDPOINT", &cfg.Telegram.APIEndpoint)
	dur("TELEGRAM_REQUEST_TIMEOUT", &cfg.Telegram.RequestTimeout)

	str("CITYSYNC_STRATEGY", &cfg.Reconcile.Strategy)
	num("CITYSYNC_CONCURRENCY", &cfg.Reconcile.Concurrency)
	dur("CITYSYNC_CALL_DELAY", &cfg.Reconcile.CallDelay)
	dur("CITYSYNC_USER_DELAY", &cfg.Reconcile.UserDelay)
	num("CITYSYNC_BATCH_SIZE", &cfg.Reconcile.BatchSize)
	num("CITYSYNC_PAGE_SIZE", &cfg.Reconcile.PageSize)
	num("CITYSYNC_PROGRESS_EVERY", &cfg.Reconcile.ProgressEvery)
	dur("CITYSYNC_PROBE_TIMEOUT", &cfg.Reconcile.ProbeTimeout)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)

	return errors.Join(errs...)
}
