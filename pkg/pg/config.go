package pg

import "time"

// Config describes the PostgreSQL pool backing the limit store.
type Config struct {
	ConnectionString string `env:"PG_CONN_URL,required"`

	// Pool sizing. MinConns is capped at MaxConns.
	MaxConns        int32         `env:"PG_MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"PG_MIN_CONNS" envDefault:"2"`
	MaxConnIdleTime time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`
	PoolProbePeriod time.Duration `env:"PG_POOL_PROBE_PERIOD" envDefault:"1m"`

	// StatementTimeout bounds every query server-side, so a slow decision
	// call fails (and therefore denies) instead of hanging. Zero leaves the
	// server default.
	StatementTimeout time.Duration `env:"PG_STATEMENT_TIMEOUT" envDefault:"5s"`

	// Attempt n waits n*RetryInterval.
	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"2s"`

	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"featurelimits_migrations"`
}
