package store

import (
	"time"

	"tally/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled          bool
	URL              string
	MaxConns         int32
	LogSQL           bool
	SlowQueryMs      int
	StatementTimeout time.Duration

	// Guard/boot knobs:
	ConnectRetries int           // default 6 (about a minute with capped exponential backoff)
	PingTimeout    time.Duration // default 5s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled     bool
	URL         string
	ClientTag   string
	DialTimeout time.Duration
}

const (
	defaultConnectRetries = 6
	defaultPingTimeout    = 5 * time.Second
)

// ConfigFromEnv reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_* for the named job.
// Postgres is always enabled; clickhouse only when SERVICE_CLICKHOUSE_ENABLED is true
func ConfigFromEnv(root config.Conf, appName string) Config {
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	cfg := Config{
		AppName: appName,
		PG: PGConfig{
			Enabled:          true,
			URL:              pgCfg.MustString("DBURL"),
			MaxConns:         int32(pgCfg.MayPositiveInt("MAX_CONNS", 8)),
			SlowQueryMs:      pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:           pgCfg.MayBool("LOG_SQL", false),
			StatementTimeout: pgCfg.MayDuration("STATEMENT_TIMEOUT", 0),
			ConnectRetries:   pgCfg.MayPositiveInt("CONNECT_RETRIES", defaultConnectRetries),
			PingTimeout:      pgCfg.MayDuration("PING_TIMEOUT", defaultPingTimeout),
		},
	}
	if chCfg.MayBool("ENABLED", false) {
		cfg.CH = CHConfig{
			Enabled:     true,
			URL:         chCfg.MustString("DBURL"),
			ClientTag:   chCfg.MayString("CLIENT_TAG", ""),
			DialTimeout: chCfg.MayDuration("DIAL_TIMEOUT", 5*time.Second),
		}
	}
	return cfg
}
