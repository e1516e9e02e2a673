// Package pg bootstraps PostgreSQL access on top of pgx/v5: a retrying pool
// constructor, goose migrations read from an fs.FS, a health check closure and
// helpers that classify *pgconn.PgError values.
//
//	var cfg pg.Config
//	if err := env.Parse(&cfg); err != nil {
//	    return err
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, pgstore.Migrations(), cfg, log); err != nil {
//	    return err
//	}
package pg
