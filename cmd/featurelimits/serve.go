package main

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/featurelimits/pkg/config"
	"github.com/dmitrymomot/featurelimits/pkg/httpserver"
	"github.com/dmitrymomot/featurelimits/pkg/logger"
	"github.com/dmitrymomot/featurelimits/svc/limitsapi"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var hcfg httpserver.Config
			if err := config.Load(&hcfg); err != nil {
				return err
			}

			st, err := openStack(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer st.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			opts := []limitsapi.Option{
				limitsapi.WithLogger(a.log.With(logger.Component("api"))),
				limitsapi.WithMetrics(limitsapi.NewMetrics(reg)),
			}
			if a.cfg.AdminToken != "" {
				opts = append(opts, limitsapi.WithAdminMiddleware(limitsapi.BearerTokenAdmin(a.cfg.AdminToken)))
			}
			if a.cfg.TrustPlanHeader {
				opts = append(opts, limitsapi.WithMiddleware(limitsapi.PlanHeaderMiddleware))
			}

			r := chi.NewRouter()
			r.Get("/health/live", httpserver.LivenessHandler())
			r.Get("/health/ready", httpserver.ReadinessHandler(a.log, st.checks...))
			r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			r.Mount("/v1", limitsapi.Router(st.svc, opts...))

			return httpserver.New(hcfg, r, httpserver.WithLogger(a.log)).Run(ctx)
		},
	}
}
