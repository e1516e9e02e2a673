package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/featurelimits/pkg/config"
	"github.com/dmitrymomot/featurelimits/pkg/limits"
	"github.com/dmitrymomot/featurelimits/pkg/limits/mongostore"
	"github.com/dmitrymomot/featurelimits/pkg/limits/pgstore"
	"github.com/dmitrymomot/featurelimits/pkg/limits/redisstore"
	"github.com/dmitrymomot/featurelimits/pkg/logger"
	"github.com/dmitrymomot/featurelimits/pkg/mongo"
	"github.com/dmitrymomot/featurelimits/pkg/pg"
	"github.com/dmitrymomot/featurelimits/pkg/redis"
)

const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
	backendMongo    = "mongo"
	backendRedis    = "redis"
)

var (
	errUnknownBackend   = errors.New("featurelimits: unknown storage backend")
	errPlanNotSupported = errors.New("featurelimits: backend does not store user plans")
)

type appConfig struct {
	// Backend stores limit definitions, overrides and, by default, usage.
	Backend string `env:"LIMITS_BACKEND" envDefault:"memory"`
	// UsageBackend moves usage counters elsewhere. Only "redis" differs from Backend.
	UsageBackend string `env:"LIMITS_USAGE_BACKEND"`
	// RedisKeyPrefix namespaces counters when several deployments share a server.
	RedisKeyPrefix string `env:"LIMITS_REDIS_KEY_PREFIX" envDefault:"featurelimits:usage"`
	// AdminToken enables the admin API behind a bearer token.
	AdminToken string `env:"LIMITS_ADMIN_TOKEN"`
	// TrustPlanHeader reads the user's plan from X-User-Plan. Enable only
	// behind a gateway that sets the header. With postgres or mongo the
	// stored plan is used when the header is absent. The memory backend has
	// no plan store and resolves users through the header alone.
	TrustPlanHeader bool `env:"LIMITS_TRUST_PLAN_HEADER"`

	Limits limits.Config
}

// planStore is implemented by backends that keep the user to plan mapping.
type planStore interface {
	ResolvePlan(ctx context.Context, userID uuid.UUID) (limits.PlanType, error)
	SetUserPlan(ctx context.Context, userID uuid.UUID, plan limits.PlanType) error
}

// planResolver picks how the service finds a user's plan. A trusted header
// takes precedence and the backend's user_plans act as the fallback. Without
// a plan store nil is returned and the service keeps its context resolver, so
// the memory backend only knows plans sent in X-User-Plan.
func planResolver(cfg appConfig, plans planStore) limits.PlanResolver {
	switch {
	case plans == nil:
		return nil
	case cfg.TrustPlanHeader:
		return limits.ChainPlanResolvers(limits.PlanContextResolver, plans.ResolvePlan)
	default:
		return plans.ResolvePlan
	}
}

// stack is an opened backend with the service built on top of it.
type stack struct {
	svc    *limits.Service
	plans  planStore
	checks []func(context.Context) error
	closer []func()
}

func (s *stack) Close() {
	for i := len(s.closer) - 1; i >= 0; i-- {
		s.closer[i]()
	}
}

// openStack connects the configured backends and builds the service.
// The caller must Close the returned stack.
func openStack(ctx context.Context, cfg appConfig, log *slog.Logger) (_ *stack, err error) {
	st := &stack{}
	defer func() {
		if err != nil {
			st.Close()
		}
	}()

	opts, err := cfg.Limits.ServiceOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, limits.WithLogger(log.With(logger.Component("limits"))))

	var store limits.Store
	switch cfg.Backend {
	case backendMemory:
		store = limits.NewMemoryStore()
	case backendPostgres:
		pool, _, err := connectPostgres(ctx)
		if err != nil {
			return nil, err
		}
		st.closer = append(st.closer, pool.Close)
		st.checks = append(st.checks, pg.Healthcheck(pool))
		pgs := pgstore.New(pool)
		store, st.plans = pgs, pgs
	case backendMongo:
		var mcfg mongo.Config
		if err := config.Load(&mcfg); err != nil {
			return nil, err
		}
		db, err := mongo.NewWithDatabase(ctx, mcfg)
		if err != nil {
			return nil, err
		}
		client := db.Client()
		st.closer = append(st.closer, func() { _ = client.Disconnect(context.Background()) })
		st.checks = append(st.checks, mongo.Healthcheck(client))
		ms := mongostore.New(db)
		if err := ms.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		store, st.plans = ms, ms
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownBackend, cfg.Backend)
	}

	if resolver := planResolver(cfg, st.plans); resolver != nil {
		opts = append(opts, limits.WithPlanResolver(resolver))
	}

	switch cfg.UsageBackend {
	case "", cfg.Backend:
	case backendRedis:
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return nil, err
		}
		st.closer = append(st.closer, func() { _ = client.Close() })
		st.checks = append(st.checks, redis.Healthcheck(client))
		opts = append(opts, limits.WithUsageStore(redisstore.New(client, redisstore.WithKeyPrefix(cfg.RedisKeyPrefix))))
	default:
		return nil, fmt.Errorf("%w: usage %q", errUnknownBackend, cfg.UsageBackend)
	}

	st.svc = limits.NewService(store, opts...)

	// The in-process store starts empty on every run.
	if cfg.Backend == backendMemory {
		if _, err := st.svc.SeedDefaultLimits(ctx); err != nil {
			return nil, err
		}
	}

	log.InfoContext(ctx, "limits backend ready",
		slog.String("backend", cfg.Backend),
		slog.String("usage_backend", cmp.Or(cfg.UsageBackend, cfg.Backend)))
	return st, nil
}

func connectPostgres(ctx context.Context) (*pgxpool.Pool, pg.Config, error) {
	var pcfg pg.Config
	if err := config.Load(&pcfg); err != nil {
		return nil, pcfg, err
	}
	pool, err := pg.Connect(ctx, pcfg)
	return pool, pcfg, err
}

