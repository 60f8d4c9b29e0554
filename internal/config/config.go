package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	Postgres     PostgresConfig
	SQLite       SQLiteConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Events       EventsConfig
	Fallback     FallbackConfig
	Search       SearchConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// SQLiteConfig points at the embedded database file.
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Output      string
	Development bool
}

// AuthConfig defines authentication parameters for the desk operator.
type AuthConfig struct {
	Enabled               bool
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	OperatorName          string
	OperatorPasswordHash  string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// EventsConfig configures publication of ticket events to RabbitMQ.
type EventsConfig struct {
	AMQPURL string
	Queue   string
}

// FallbackConfig configures the local fallback store.
type FallbackConfig struct {
	Enabled   bool
	UseRedis  bool
	Dir       string
	ExportDir string
}

// SearchConfig tunes interactive search.
type SearchConfig struct {
	DebounceMillis int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "service-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		SQLite: SQLiteConfig{
			Path: os.Getenv("SQLITE_PATH"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Output:      getEnv("LOG_OUTPUT", "stdout"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Auth: AuthConfig{
			Enabled:               getEnvAsBool("AUTH_ENABLED", false),
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			OperatorName:          getEnv("AUTH_OPERATOR_NAME", "desk"),
			OperatorPasswordHash:  os.Getenv("AUTH_OPERATOR_PASSWORD_HASH"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Events: EventsConfig{
			AMQPURL: firstEnv("RABBITMQ_URL", "AMQP_URL"),
			Queue:   getEnv("EVENTS_QUEUE", "service_tickets.events"),
		},
		Fallback: FallbackConfig{
			Enabled:   getEnvAsBool("FALLBACK_ENABLED", true),
			UseRedis:  getEnvAsBool("FALLBACK_USE_REDIS", true),
			Dir:       getEnv("FALLBACK_DIR", "data/fallback"),
			ExportDir: getEnv("FALLBACK_EXPORT_DIR", "."),
		},
		Search: SearchConfig{
			DebounceMillis: getEnvAsInt("SEARCH_DEBOUNCE_MS", 300),
		},
	}

	cfg.Store.Driver = resolveStoreDriver(os.Getenv("STORE_DRIVER"), cfg.Postgres.DSN, cfg.SQLite.Path)
	switch cfg.Store.Driver {
	case StoreDriverPostgres:
		if cfg.Postgres.DSN == "" {
			return nil, fmt.Errorf("STORE_DRIVER=postgres requires POSTGRES_DSN")
		}
	case StoreDriverSQLite:
		if cfg.SQLite.Path == "" {
			cfg.SQLite.Path = "service-desk.db"
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.Store.Driver)
	}

	return cfg, nil
}

// LoadForCLI is Load for ticketctl. When no store is configured at all, tickets are kept in a
// SQLite file under the user's data directory so they outlive a single command.
func LoadForCLI() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg.Store.Driver != StoreDriverMemory || strings.TrimSpace(os.Getenv("STORE_DRIVER")) != "" {
		return cfg, nil
	}
	path, err := DefaultSQLitePath()
	if err != nil {
		return nil, err
	}
	cfg.Store.Driver = StoreDriverSQLite
	cfg.SQLite.Path = path
	return cfg, nil
}

// DefaultSQLitePath is $XDG_DATA_HOME/service-desk/tickets.db, or ~/.local/share when
// XDG_DATA_HOME is unset.
func DefaultSQLitePath() (string, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate data dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "service-desk", "tickets.db"), nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Debounce returns the search debounce delay.
func (s SearchConfig) Debounce() time.Duration {
	if s.DebounceMillis <= 0 {
		return 0
	}
	return time.Duration(s.DebounceMillis) * time.Millisecond
}

func resolveStoreDriver(explicit, dsn, sqlitePath string) string {
	if driver := strings.ToLower(strings.TrimSpace(explicit)); driver != "" {
		return driver
	}
	switch {
	case dsn != "":
		return StoreDriverPostgres
	case sqlitePath != "":
		return StoreDriverSQLite
	default:
		return StoreDriverMemory
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
