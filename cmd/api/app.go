// AngelaMos | 2026
// app.go

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/crm-backend/internal/activity"
	"github.com/carterperez-dev/crm-backend/internal/admin"
	"github.com/carterperez-dev/crm-backend/internal/auth"
	"github.com/carterperez-dev/crm-backend/internal/config"
	"github.com/carterperez-dev/crm-backend/internal/contact"
	"github.com/carterperez-dev/crm-backend/internal/core"
	"github.com/carterperez-dev/crm-backend/internal/health"
	"github.com/carterperez-dev/crm-backend/internal/lead"
	"github.com/carterperez-dev/crm-backend/internal/metrics"
	"github.com/carterperez-dev/crm-backend/internal/middleware"
	"github.com/carterperez-dev/crm-backend/internal/rbac"
	"github.com/carterperez-dev/crm-backend/internal/server"
	"github.com/carterperez-dev/crm-backend/internal/user"
)

const (
	maxBodyBytes  = 1 << 20
	healthTimeout = 5 * time.Second
)

// app holds every long lived dependency of the API process.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db        *core.Database
	redis     *core.Redis
	telemetry *core.Telemetry
	jwt       *auth.JWTManager

	recorder *activity.Recorder
	resolver *rbac.Resolver
	authSvc  *auth.Service
	leadSvc  *lead.Service
	pipeline *lead.Pipeline

	health *health.Handler
	server *server.Server
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	tel, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		tel = &core.Telemetry{}
	}
	a.telemetry = tel

	if a.db, err = core.NewDatabase(ctx, cfg.Database); err != nil {
		return nil, err
	}
	logger.Info("postgres ready", "max_open_conns", cfg.Database.MaxOpenConns)

	a.redis, err = core.NewRedis(ctx, cfg.Redis)
	switch {
	case err == nil:
		logger.Info("redis ready", "pool_size", cfg.Redis.PoolSize)
	case errors.Is(err, core.ErrRedisUnavailable) && !cfg.Redis.Required:
		logger.Warn("redis unreachable, rate limits are per process", "error", err)
	default:
		a.close()
		return nil, err
	}

	if a.jwt, err = auth.NewJWTManager(cfg.JWT); err != nil {
		a.close()
		return nil, err
	}
	logger.Info("token signer loaded", "alg", "ES256", "kid", a.jwt.KeyID())

	if a.pipeline, err = lead.NewPipeline(cfg.Pipeline); err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

// prepare builds the services and brings lead_statuses in line with the
// configured pipeline.
func (a *app) prepare(ctx context.Context) error {
	timeout := a.cfg.Database.QueryTimeout
	dbx := a.db.DB

	a.recorder = activity.NewRecorder(
		activity.NewRepository(dbx),
		activity.WithTimeout(timeout),
		activity.WithLogger(a.logger),
	)
	a.resolver = rbac.NewResolver(rbac.NewRepository(dbx), timeout)

	a.leadSvc = lead.NewService(
		lead.NewStore(dbx),
		a.pipeline,
		lead.NewScorer(a.cfg.Pipeline.ScoringWeights, a.cfg.Pipeline.ScoreHalfLife),
		a.cfg.Pipeline.ActivityTypes,
		lead.WithRecorder(a.recorder),
		lead.WithQueryTimeout(timeout),
	)
	if err := a.leadSvc.SyncStatuses(ctx); err != nil {
		return err
	}
	a.logger.Info("pipeline stages synchronized",
		"stages", len(a.pipeline.Stages()),
		"initial", a.pipeline.Initial(),
	)

	a.health = health.NewHandler(
		[]health.Dependency{
			{Name: "database", Checker: a.db},
			{Name: "redis", Checker: a.redis, Optional: !a.cfg.Redis.Required},
		},
		health.WithTimeout(healthTimeout),
		health.WithVersion(a.cfg.App.Version),
	)

	a.server = server.New(server.Config{
		ServerConfig:  a.cfg.Server,
		HealthHandler: a.health,
		Logger:        a.logger,
		Tracing:       a.telemetry.Enabled,
		ServiceName:   a.cfg.Otel.ServiceName,
	})
	return nil
}

func (a *app) limiter(name string, limit middleware.RateLimitConfig) func(http.Handler) http.Handler {
	limit.Name = name
	limit.FailOpen = true
	return middleware.NewRateLimiter(a.redis.Client, limit).Handler
}

func (a *app) routes() {
	cfg := a.cfg
	dbx := a.db.DB
	timeout := cfg.Database.QueryTimeout

	userSvc := user.NewService(user.NewRepository(dbx), cfg.Auth.DefaultRole, a.recorder, timeout)
	a.authSvc = auth.NewService(
		auth.NewRepository(dbx),
		a.jwt,
		userSvc,
		a.resolver,
		cfg.Auth,
		auth.WithRecorder(a.recorder),
		auth.WithNotifier(auth.NewLogNotifier(a.logger, cfg.IsDevelopment())),
		auth.WithQueryTimeout(timeout),
	)

	router := a.server.Router()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.logger))
	if cfg.Metrics.Enabled {
		router.Use(metrics.Middleware)
	}
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.MaxBodyBytes(maxBodyBytes))
	router.Use(a.limiter("global", middleware.RateLimitConfig{
		Limit: middleware.PerWindow(cfg.RateLimit.Requests, cfg.RateLimit.Burst, cfg.RateLimit.Window),
	}))

	a.health.RegisterRoutes(router)
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}
	router.Get("/.well-known/jwks.json", a.jwt.GetJWKSHandler())

	authn := middleware.Authenticator(a.authSvc)
	guard := func(permission string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(a.resolver, permission)
	}
	loginLimit := a.limiter("login", middleware.RateLimitConfig{
		Limit: middleware.PerMinute(cfg.RateLimit.LoginRequests, cfg.RateLimit.LoginBurst),
	})

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Checks:     a.health.RunChecks,
		DBStats:    a.db.Stats,
		RedisStats: a.redis.PoolStats,
		Pipeline:   a.leadSvc,
		Sessions:   a.authSvc,
		Recorder:   a.recorder,
	})

	router.Route("/v1", func(r chi.Router) {
		auth.NewHandler(a.authSvc).RegisterRoutes(r, authn, loginLimit)
		user.NewHandler(userSvc).RegisterRoutes(r, authn, guard)
		lead.NewHandler(a.leadSvc).RegisterRoutes(r, authn, guard)
		contact.NewHandler(
			contact.NewService(contact.NewRepository(dbx), a.recorder, timeout),
		).RegisterRoutes(r, authn, guard)
		activity.NewHandler(
			activity.NewService(activity.NewRepository(dbx), timeout),
		).RegisterRoutes(r, authn, guard(rbac.ActivitiesView))
		rbac.NewHandler(a.resolver).RegisterRoutes(r, authn, guard(rbac.RolesView))
		adminHandler.RegisterRoutes(r, authn, guard)
	})
}

func (a *app) close() {
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("postgres close", "error", err)
	}
}
