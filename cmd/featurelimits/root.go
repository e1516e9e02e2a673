package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/featurelimits/pkg/config"
	"github.com/dmitrymomot/featurelimits/pkg/logger"
	"github.com/dmitrymomot/featurelimits/pkg/requestid"
)

// app is the state shared by all commands after the root pre-run.
type app struct {
	cfg appConfig
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var envFiles []string

	root := &cobra.Command{
		Use:           "featurelimits",
		Short:         "Plan-based feature limits service",
		Long:          "featurelimits decides whether users may consume plan-limited features and tracks their usage.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnv(envFiles...); err != nil {
				return err
			}
			if err := config.Load(&a.cfg); err != nil {
				return err
			}

			var logCfg logger.Config
			if err := config.Load(&logCfg); err != nil {
				return err
			}
			a.log = logger.FromConfig(logCfg,
				logger.WithOutput(cmd.ErrOrStderr()),
				logger.WithContextExtractors(requestid.LoggerExtractor()),
			)
			logger.SetAsDefault(a.log)
			return nil
		},
	}

	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "read environment variables from these .env files")

	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newServeCmd(a),
		newCheckCmd(a),
		newSetPlanCmd(a),
	)
	return root
}
