package limitsapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
	"github.com/dmitrymomot/featurelimits/pkg/requestid"
)

// Service is the subset of limits.Service exposed over HTTP.
type Service interface {
	CanUseFeature(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, requested int64) (limits.CheckResult, error)
	HasFeatureAccess(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) bool
	RecordUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, amount int64) (int64, error)
	Consume(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, amount int64) (limits.CheckResult, error)
	Release(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey, amount int64) error
	GetUsageSummary(ctx context.Context, userID uuid.UUID) ([]limits.UsageSummary, error)

	GetAllFeatureLimits(ctx context.Context) ([]limits.FeatureLimit, error)
	UpsertFeatureLimit(ctx context.Context, in limits.UpsertLimitInput) (limits.FeatureLimit, error)
	DeleteFeatureLimit(ctx context.Context, plan limits.PlanType, feature limits.FeatureKey) error
	SeedDefaultLimits(ctx context.Context) (int, error)
	SetOverride(ctx context.Context, in limits.SetOverrideInput) (limits.FeatureOverride, error)
	RemoveOverride(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) error
	ListOverrides(ctx context.Context, userID uuid.UUID) ([]limits.FeatureOverride, error)
	ResetUsage(ctx context.Context, userID uuid.UUID, feature limits.FeatureKey) error
}

// Option configures the router.
type Option func(*api)

// WithLogger sets the logger used for unexpected errors.
func WithLogger(log *slog.Logger) Option {
	return func(a *api) {
		if log != nil {
			a.log = log
		}
	}
}

// WithAdminMiddleware guards the administrative routes. Without it the admin
// routes are not mounted at all.
func WithAdminMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(a *api) {
		a.requireAdmin = mw
	}
}

// WithMiddleware adds middleware to every route, e.g. authentication or
// PlanHeaderMiddleware.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(a *api) {
		a.middleware = append(a.middleware, mw...)
	}
}

// WithMaxBodyBytes limits request bodies. Default is 64KiB.
func WithMaxBodyBytes(n int64) Option {
	return func(a *api) {
		if n > 0 {
			a.maxBodyBytes = n
		}
	}
}

type api struct {
	svc          Service
	log          *slog.Logger
	requireAdmin func(http.Handler) http.Handler
	middleware   []func(http.Handler) http.Handler
	maxBodyBytes int64
	metrics      *Metrics
}

// Router returns the HTTP API for svc.
//
// Decision routes:
//
//	GET    /users/{userID}/features/{feature}/check?amount=N
//	GET    /users/{userID}/features/{feature}/access
//	POST   /users/{userID}/features/{feature}/usage
//	POST   /users/{userID}/features/{feature}/consume
//	POST   /users/{userID}/features/{feature}/release
//	GET    /users/{userID}/usage
//
// Admin routes, mounted only with WithAdminMiddleware:
//
//	GET    /limits
//	POST   /limits/seed
//	PUT    /limits/{plan}/{feature}
//	DELETE /limits/{plan}/{feature}
//	GET    /overrides/{userID}
//	PUT    /overrides/{userID}/{feature}
//	DELETE /overrides/{userID}/{feature}
//	DELETE /usage/{userID}/{feature}
func Router(svc Service, opts ...Option) chi.Router {
	if svc == nil {
		panic("limitsapi: nil service")
	}

	a := &api{
		svc:          svc,
		log:          slog.New(slog.DiscardHandler),
		maxBodyBytes: 64 << 10,
	}
	for _, opt := range opts {
		opt(a)
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(chimw.Recoverer)
	if a.metrics != nil {
		r.Use(a.metrics.middleware)
	}
	r.Use(a.middleware...)

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/usage", a.usageSummary)
		r.Route("/features/{feature}", func(r chi.Router) {
			r.Get("/check", a.check)
			r.Get("/access", a.access)
			r.Post("/usage", a.recordUsage)
			r.Post("/consume", a.consume)
			r.Post("/release", a.release)
		})
	})

	if a.requireAdmin != nil {
		r.Group(func(r chi.Router) {
			r.Use(a.requireAdmin)

			r.Get("/limits", a.listLimits)
			r.Post("/limits/seed", a.seedLimits)
			r.Put("/limits/{plan}/{feature}", a.upsertLimit)
			r.Delete("/limits/{plan}/{feature}", a.deleteLimit)

			r.Get("/overrides/{userID}", a.listOverrides)
			r.Put("/overrides/{userID}/{feature}", a.setOverride)
			r.Delete("/overrides/{userID}/{feature}", a.removeOverride)

			r.Delete("/usage/{userID}/{feature}", a.resetUsage)
		})
	}

	return r
}
