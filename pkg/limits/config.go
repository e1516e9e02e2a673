package limits

import (
	"errors"
	"time"
)

// Config holds service settings loaded from the environment.
type Config struct {
	// StrictFeatures are enforced with an atomic ceiling on every increment.
	// All other features use soft enforcement.
	StrictFeatures []string `env:"LIMITS_STRICT_FEATURES" envSeparator:","`
	// CacheTTL keeps limit definitions in memory for the given duration. Zero disables caching.
	CacheTTL time.Duration `env:"LIMITS_CACHE_TTL" envDefault:"0s"`
}

// ServiceOptions translates the configuration into service options.
// Unknown feature keys are rejected.
func (c Config) ServiceOptions() ([]ServiceOption, error) {
	strict := make([]FeatureKey, 0, len(c.StrictFeatures))
	for _, raw := range c.StrictFeatures {
		if raw == "" {
			continue
		}
		key, err := ParseFeatureKey(raw)
		if err != nil {
			return nil, errors.Join(err, errors.New(raw))
		}
		strict = append(strict, key)
	}

	var opts []ServiceOption
	if len(strict) > 0 {
		opts = append(opts, WithStrictFeatures(strict...))
	}
	if c.CacheTTL > 0 {
		opts = append(opts, WithLimitCache(c.CacheTTL))
	}
	return opts, nil
}
