package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// goose keeps its dialect, table name and base filesystem in package globals.
var gooseMu sync.Mutex

// Migrate applies every pending migration found at the root of migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, cfg Config, log *slog.Logger) error {
	return withGoose(ctx, pool, migrations, cfg, log, func(ctx context.Context, db *sql.DB) error {
		return goose.UpContext(ctx, db, ".")
	})
}

// Rollback reverts the most recently applied migration.
func Rollback(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, cfg Config, log *slog.Logger) error {
	return withGoose(ctx, pool, migrations, cfg, log, func(ctx context.Context, db *sql.DB) error {
		return goose.DownContext(ctx, db, ".")
	})
}

// Version returns the currently applied schema version.
func Version(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, cfg Config, log *slog.Logger) (int64, error) {
	var version int64
	err := withGoose(ctx, pool, migrations, cfg, log, func(ctx context.Context, db *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		version = v
		return err
	})
	return version, err
}

func withGoose(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, cfg Config, log *slog.Logger, run func(context.Context, *sql.DB) error) error {
	if migrations == nil {
		return errors.Join(ErrMigrate, ErrNoMigrations)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	// goose works on database/sql; this wrapper shares the pool's connections.
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", "error", err)
		}
	}()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(&gooseLogger{log: log})
	if cfg.MigrationsTable != "" {
		goose.SetTableName(cfg.MigrationsTable)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrMigrate, err)
	}

	if err := run(ctx, db); err != nil {
		return errors.Join(ErrMigrate, err)
	}
	return nil
}

// gooseLogger routes goose's printf-style output to slog.
type gooseLogger struct {
	log *slog.Logger
}

func (a *gooseLogger) Fatalf(format string, v ...any) {
	a.log.Error(fmt.Sprintf(format, v...), slog.String("component", "migrations"))
}

func (a *gooseLogger) Printf(format string, v ...any) {
	a.log.Info(fmt.Sprintf(format, v...), slog.String("component", "migrations"))
}
