package config

// EnvPrefix namespaces every environment variable the terminal reads.
const EnvPrefix = "DUKAPOS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names, exported for tests and tooling.
const (
	EnvAppEnv         = "DUKAPOS_APP_ENV"
	EnvPort           = "DUKAPOS_APP_PORT"
	EnvTerminalID     = "DUKAPOS_TERMINAL_ID"
	EnvTerminalDBPath = "DUKAPOS_TERMINAL_DB_PATH"
	EnvLedgerDBDSN    = "DUKAPOS_LEDGER_DB_DSN"
	EnvRedisURL       = "DUKAPOS_REDIS_URL"
)
