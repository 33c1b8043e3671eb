package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"hrflow/internal/domain/appraisal"
	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/core"
	"hrflow/internal/domain/leave"
	"hrflow/internal/domain/notifications"
	"hrflow/internal/domain/onboarding"
	"hrflow/internal/platform/cache"
	"hrflow/internal/platform/config"
	"hrflow/internal/platform/db"
	"hrflow/internal/platform/email"
	"hrflow/internal/platform/jobs"
	"hrflow/internal/platform/metrics"
	"hrflow/internal/transport/http/api"
	appraisalhandler "hrflow/internal/transport/http/handlers/appraisal"
	audithandler "hrflow/internal/transport/http/handlers/audit"
	leavehandler "hrflow/internal/transport/http/handlers/leave"
	notificationshandler "hrflow/internal/transport/http/handlers/notifications"
	onboardinghandler "hrflow/internal/transport/http/handlers/onboarding"
	"hrflow/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Logger  *zap.Logger
	DB      *pgxpool.Pool
	Metrics *metrics.Collector
	Router  http.Handler

	Appraisals *appraisal.Service
	Onboarding *onboarding.Service
	Leave      *leave.Service

	jobs   *jobs.Service
	cache  *cache.Client
	cancel context.CancelFunc
}

// Deps are the collaborators the router serves. Ready may be nil.
type Deps struct {
	Appraisals  appraisalhandler.Engine
	Onboarding  onboardinghandler.Engine
	Leave       leavehandler.Engine
	Inbox       notificationshandler.Inbox
	Audit       audithandler.Trail
	Idempotency middleware.IdempotencyStore
	Metrics     *metrics.Collector
	Ready       func(ctx context.Context) error
}

// New connects to PostgreSQL (and Redis when configured), applies migrations
// when enabled, starts the notification workers and builds the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	app := &App{Config: cfg, Logger: logger, DB: pool, Metrics: metrics.New()}

	var dir core.Directory = core.NewStore(pool)
	if cfg.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Warn("redis unavailable, identity lookups are uncached", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			app.cache = client
			dir = core.NewCachedDirectory(dir, client, cfg.IdentityCacheTTL, logger)
		}
	}

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	app.cancel = cancel
	app.jobs = jobs.New(jobs.Options{
		QueueSize:   cfg.NotifyQueueSize,
		Workers:     2,
		MaxAttempts: cfg.NotifyMaxAttempts,
		RetryDelay:  cfg.NotifyRetryDelay,
		Timeout:     cfg.NotifyTimeout,
	}, logger)
	app.jobs.Start(workerCtx)

	inbox := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailFrom, logger)
	sender := notifications.NewDispatcher(app.jobs, inbox)

	tx := db.NewTxRunner(pool, cfg.DBTxIsolation, logger)
	app.Appraisals = appraisal.NewService(appraisal.NewStore(tx), dir, sender, logger, app.Metrics)
	app.Onboarding = onboarding.NewService(onboarding.NewStore(tx), dir, sender, logger, app.Metrics)
	app.Leave = leave.NewService(leave.NewStore(tx), dir, sender, logger, app.Metrics)

	app.Router = NewRouter(cfg, logger, Deps{
		Appraisals:  app.Appraisals,
		Onboarding:  app.Onboarding,
		Leave:       app.Leave,
		Inbox:       inbox,
		Audit:       audit.New(pool),
		Idempotency: middleware.NewIdempotencyStore(pool),
		Metrics:     app.Metrics,
		Ready:       app.ready,
	})
	return app, nil
}

func (a *App) ready(ctx context.Context) error {
	if err := a.DB.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.cache != nil {
		if err := a.cache.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func NewRouter(cfg config.Config, logger *zap.Logger, deps Deps) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.Logger(logger, deps.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, logger))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, map[string]string{"status": "ok"}, middleware.GetRequestID(r.Context()))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetRequestID(r.Context())
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				api.Fail(w, http.StatusServiceUnavailable, "not_ready", "dependencies not ready", reqID)
				return
			}
		}
		api.Success(w, map[string]string{"status": "ready"}, reqID)
	})
	if cfg.MetricsEnabled && deps.Metrics != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, deps.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute, middleware.WithLogger(logger)))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMin, time.Minute, middleware.WithLogger(logger)))
		if deps.Idempotency != nil {
			r.Use(middleware.Idempotency(deps.Idempotency, logger))
		}

		appraisalhandler.NewHandler(deps.Appraisals).RegisterRoutes(r)
		onboardinghandler.NewHandler(deps.Onboarding).RegisterRoutes(r)
		leavehandler.NewHandler(deps.Leave).RegisterRoutes(r)
		notificationshandler.NewHandler(deps.Inbox, logger).RegisterRoutes(r)
		audithandler.NewHandler(deps.Audit, logger).RegisterRoutes(r)
	})
	return router
}

// Serve listens on cfg.Addr until ctx ends, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("hrflow listening", zap.String("addr", a.Config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.Logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Close drains queued notifications, then releases Redis and the pool.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.NotifyTimeout)
	defer cancel()
	if err := a.jobs.Shutdown(ctx); err != nil {
		a.Logger.Warn("notification queue did not drain", zap.Error(err))
	}
	a.cancel()
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.Logger.Warn("redis close failed", zap.Error(err))
		}
	}
	a.DB.Close()
}
