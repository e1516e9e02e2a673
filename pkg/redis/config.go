package redis

import "time"

// Config describes the connection to the counter backend.
// ConnectionURL has the form "redis://:password@localhost:6379/0".
type Config struct {
	ConnectionURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	PoolSize      int    `env:"REDIS_POOL_SIZE"` // zero keeps the driver default

	// Counter scripts are short; a slow reply means the server is in trouble.
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"1s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"1s"`

	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"` // bounds the whole connection procedure
}
