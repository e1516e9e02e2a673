package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/featurelimits/pkg/limits/pgstore"
	"github.com/dmitrymomot/featurelimits/pkg/pg"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				pool, pcfg, err := connectPostgres(cmd.Context())
				if err != nil {
					return err
				}
				defer pool.Close()
				return pg.Migrate(cmd.Context(), pool, pgstore.Migrations(), pcfg, a.log)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				pool, pcfg, err := connectPostgres(cmd.Context())
				if err != nil {
					return err
				}
				defer pool.Close()
				return pg.Rollback(cmd.Context(), pool, pgstore.Migrations(), pcfg, a.log)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				pool, pcfg, err := connectPostgres(cmd.Context())
				if err != nil {
					return err
				}
				defer pool.Close()

				v, err := pg.Version(cmd.Context(), pool, pgstore.Migrations(), pcfg, a.log)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
				return err
			},
		},
	)
	return cmd
}
