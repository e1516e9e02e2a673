package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// registry keeps one parsed copy per configuration type.
type registry struct {
	mu     sync.Mutex
	values map[reflect.Type]any
}

var (
	cache = &registry{values: make(map[reflect.Type]any)}

	dotenvOnce sync.Once
)

// LoadEnv reads the given .env files into the process environment.
// Variables already present in the environment are not overwritten.
// With no arguments it reads ./.env and silently ignores a missing file.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		dotenvOnce.Do(func() { _ = godotenv.Load() })
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load parses environment variables into v according to its `env` tags.
// The first successful parse of a type is cached and returned by later calls,
// so per-package Config structs are read once per process.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	_ = LoadEnv()

	key := reflect.TypeFor[T]()

	cache.mu.Lock()
	defer cache.mu.Unlock()

	if cached, ok := cache.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	parsed, err := env.ParseAs[T]()
	if err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache.values[key] = parsed
	*v = parsed
	return nil
}

// MustLoad is Load that panics on failure. Use it for configuration the
// process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// Reload drops the cached copy of T and parses the environment again.
func Reload[T any](v *T) error {
	cache.mu.Lock()
	delete(cache.values, reflect.TypeFor[T]())
	cache.mu.Unlock()
	return Load(v)
}

// ResetCache forgets every cached configuration. Intended for tests.
func ResetCache() {
	cache.mu.Lock()
	cache.values = make(map[reflect.Type]any)
	cache.mu.Unlock()
}
