// Package httpserver runs an http.Handler with graceful shutdown and exposes
// liveness and readiness handlers.
//
// Run binds the listener first, so address errors surface immediately as
// ErrStart, then serves until the context is cancelled or the process gets
// SIGINT or SIGTERM. Shutdown waits for in-flight requests up to the
// configured shutdown timeout.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//	    httpserver.WithLogger(log),
//	    httpserver.WithStopHook(func(*slog.Logger) { registry.Close() }),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server stopped", logger.Error(err))
//	}
//
// Health checks:
//
//	r.Get("/health/live", httpserver.LivenessHandler())
//	r.Get("/health/ready", httpserver.ReadinessHandler(log,
//	    httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)},
//	))
package httpserver
