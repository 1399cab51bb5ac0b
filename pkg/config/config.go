package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	TerminalDB TerminalDBConfig
	LedgerDB   LedgerDBConfig
	Redis      RedisConfig
	Network    NetworkConfig
	Cache      CacheConfig
	Sync       SyncConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DUKAPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"DUKAPOS_APP_PORT" required:"true"`
	TerminalID   string `envconfig:"DUKAPOS_TERMINAL_ID" required:"true"`
	LogLevel     string `envconfig:"DUKAPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DUKAPOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// TerminalDBConfig locates the SQLite database that backs the local durable
// store. The file must survive restarts; ":memory:" is only for tests.
type TerminalDBConfig struct {
	Path        string        `envconfig:"DUKAPOS_TERMINAL_DB_PATH" required:"true"`
	BusyTimeout time.Duration `envconfig:"DUKAPOS_TERMINAL_DB_BUSY_TIMEOUT" default:"5s"`
}

type LedgerDBConfig struct {
	DSN             string        `envconfig:"DUKAPOS_LEDGER_DB_DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"DUKAPOS_LEDGER_DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"DUKAPOS_LEDGER_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DUKAPOS_LEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DUKAPOS_LEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional: when URL and Address are both empty the terminal
// runs without the duplicate-suppression guard.
type RedisConfig struct {
	URL          string        `envconfig:"DUKAPOS_REDIS_URL"`
	Address      string        `envconfig:"DUKAPOS_REDIS_ADDR"`
	Password     string        `envconfig:"DUKAPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"DUKAPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DUKAPOS_REDIS_POOL_SIZE" default:"5"`
	MinIdleConns int           `envconfig:"DUKAPOS_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"DUKAPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DUKAPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DUKAPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type NetworkConfig struct {
	ProbeInterval time.Duration `envconfig:"DUKAPOS_NETWORK_PROBE_INTERVAL" default:"5s"`
	ProbeTimeout  time.Duration `envconfig:"DUKAPOS_NETWORK_PROBE_TIMEOUT" default:"2s"`
}

type CacheConfig struct {
	FreshnessWindow    time.Duration `envconfig:"DUKAPOS_CACHE_FRESHNESS_WINDOW" default:"1h"`
	RefreshMaxRetries  uint64        `envconfig:"DUKAPOS_CACHE_REFRESH_MAX_RETRIES" default:"3"`
	RefreshRetryDelay  time.Duration `envconfig:"DUKAPOS_CACHE_REFRESH_RETRY_DELAY" default:"500ms"`
	RefreshInterval    time.Duration `envconfig:"DUKAPOS_CACHE_REFRESH_INTERVAL" default:"15m"`
	RefreshOnStaleOnly bool          `envconfig:"DUKAPOS_CACHE_REFRESH_ON_STALE_ONLY" default:"true"`
}

type SyncConfig struct {
	RetentionWindow time.Duration `envconfig:"DUKAPOS_SYNC_RETENTION_WINDOW" default:"168h"`
	IdempotencyTTL  time.Duration `envconfig:"DUKAPOS_SYNC_IDEMPOTENCY_TTL" default:"720h"`
}
