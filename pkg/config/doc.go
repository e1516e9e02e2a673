// Package config loads environment-driven configuration into tagged structs.
//
// Parsing is delegated to github.com/caarlos0/env/v11 and optional .env files
// are read with github.com/joho/godotenv. Each configuration type is parsed once
// and cached, so packages can call Load for their own Config struct without
// coordinating with each other:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
// Use LoadEnv to read additional .env files before the first Load, Reload to
// force a fresh parse of one type and ResetCache in tests.
package config
