// Package limitsapi exposes a limits.Service as a JSON HTTP API built on chi.
//
// Decision routes answer "may this user do this" and record usage. Admin
// routes manage limit definitions, overrides and counters. The package does not
// authenticate anyone: the caller supplies the admin guard with
// WithAdminMiddleware (BearerTokenAdmin is a minimal one) and any identity
// middleware with WithMiddleware.
//
//	r := limitsapi.Router(svc,
//		limitsapi.WithLogger(log),
//		limitsapi.WithAdminMiddleware(limitsapi.BearerTokenAdmin(token)),
//	)
//
// Errors are reported as {"error": "<sentinel key>"} with validation details in
// "fields" for rejected admin input.
//
// WithMetrics adds Prometheus request and decision counters registered by
// NewMetrics.
package limitsapi
