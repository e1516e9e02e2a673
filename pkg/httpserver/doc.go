// Package httpserver runs an http.Handler with context-driven graceful shutdown
// and provides liveness and readiness probe handlers.
//
//	srv := httpserver.New(cfg, router, httpserver.WithLogger(log))
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := srv.Run(ctx); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// ReadinessHandler takes the Healthcheck closures exposed by the pg, redis and
// mongo packages.
package httpserver
