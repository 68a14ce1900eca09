// Package main provides the entry point for the PantryPilot web frontend.
// It renders HTMX pages and talks to the recipe API over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/pantrypilot/web/internal/application/cookbook"
	"github.com/pantrypilot/web/internal/application/generate"
	"github.com/pantrypilot/web/internal/application/search"
	"github.com/pantrypilot/web/internal/application/share"
	"github.com/pantrypilot/web/internal/application/status"
	appuser "github.com/pantrypilot/web/internal/application/user"
	"github.com/pantrypilot/web/internal/infrastructure/apiclient"
	"github.com/pantrypilot/web/internal/infrastructure/cache"
	"github.com/pantrypilot/web/internal/infrastructure/config"
	"github.com/pantrypilot/web/internal/infrastructure/http/webserver"
	"github.com/pantrypilot/web/internal/infrastructure/monitoring"
	"github.com/pantrypilot/web/internal/infrastructure/security"
	"github.com/pantrypilot/web/internal/infrastructure/session"
	"github.com/pantrypilot/web/pkg/healthcheck"
	"github.com/pantrypilot/web/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		fx.NopLogger,
		fx.StopTimeout(stopTimeout(cfg)),

		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			monitoring.NewMetricsCollector,
			newTracing,
			newRedis,
			newQueryStore,
			newQueryClient,
			newSessionBackend,
			newSessionStore,
			newAPIClient,
			security.NewValidator,
			newServices,
			newHealthCheck,
			newRateLimiter,
			webserver.NewWebServer,
		),

		fx.Invoke(registerMeters),
		fx.Invoke(registerBackgroundJobs),
		fx.Invoke(registerLifecycleHooks),
	)

	app.Run()
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	return cfg, nil
}

// stopTimeout bounds the whole shutdown, including in-flight requests
func stopTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout <= 0 {
		return fx.DefaultTimeout
	}
	return cfg.Server.ShutdownTimeout
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Development: cfg.App.Debug,
	})
}

// newRedis connects to Redis when a session or cache backend needs it,
// otherwise it returns nil.
func newRedis(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (redis.UniversalClient, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}
	client, err := cache.NewRedisClient(cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(client.Close))
	return client, nil
}

func newQueryStore(cfg *config.Config, client redis.UniversalClient) cache.Store {
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisStore(client, cfg.Redis.KeyPrefix)
	}
	return cache.NewLocalCache(cfg.Cache.MaxEntries)
}

func newQueryClient(cfg *config.Config, store cache.Store, log *zap.Logger, metrics *monitoring.MetricsCollector, tracing *monitoring.TracingProvider) *cache.QueryClient {
	return cache.NewQueryClient(store, cfg.Cache.StaleTime, log, metrics).WithTracing(tracing)
}

func newSessionBackend(cfg *config.Config, client redis.UniversalClient, log *zap.Logger) session.Backend {
	if cfg.Session.Backend == "redis" {
		return session.NewRedisBackend(client, cfg.Redis.KeyPrefix)
	}
	return session.NewMemoryBackend(log)
}

func newSessionStore(backend session.Backend, cfg *config.Config, log *zap.Logger) *session.Store {
	return session.NewStore(backend, cfg, log)
}

func newAPIClient(cfg *config.Config, log *zap.Logger, metrics *monitoring.MetricsCollector) *apiclient.Client {
	return apiclient.New(cfg, log, metrics)
}

func newServices(
	cfg *config.Config,
	log *zap.Logger,
	api *apiclient.Client,
	queries *cache.QueryClient,
	validator *security.Validator,
	metrics *monitoring.MetricsCollector,
) webserver.Services {
	return webserver.Services{
		Users:    appuser.NewUserService(api, validator, log),
		Generate: generate.NewService(api, validator, metrics, log),
		Cookbook: cookbook.NewService(api, queries, metrics, log),
		Search:   search.NewService(api, queries, cfg.Search, log),
		Shares:   share.NewGuard(cfg.Cache.ShareGuardTTL, metrics, log),
		Status:   status.NewMonitor(api, cfg.Health, metrics, log),
		Queries:  queries,
	}
}

// newHealthCheck registers the system, Redis and recipe API checks, each
// timed into the metrics registry.
func newHealthCheck(
	cfg *config.Config,
	log *zap.Logger,
	client redis.UniversalClient,
	services webserver.Services,
	metrics *monitoring.MetricsCollector,
) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log)
	hc.SetCacheTTL(cfg.Health.CacheTTL)

	hm := healthcheck.NewHealthMetrics(metrics.Registry())
	register := func(name string, checker healthcheck.Checker) {
		hc.Register(name, healthcheck.WithMetrics(hm, name, checker))
	}

	register("system", healthcheck.NewCustomChecker("system", func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		return healthcheck.StatusHealthy, "System operational", map[string]interface{}{
			"service":     cfg.App.Name,
			"version":     cfg.App.Version,
			"environment": cfg.App.Environment,
			"goroutines":  runtime.NumGoroutine(),
		}
	}))
	register("recipe_api", services.Status.Checker())
	if client != nil {
		register("redis", healthcheck.NewRedisChecker(client))
	}
	return hc
}

func newRateLimiter(cfg *config.Config, log *zap.Logger, metrics *monitoring.MetricsCollector) *security.RateLimiter {
	if !cfg.RateLimit.Enable {
		return nil
	}
	return security.NewRateLimiter(cfg.RateLimit, log, metrics)
}

// newTracing installs the OTel tracer provider and flushes it on stop
func newTracing(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
	tracing, err := monitoring.NewTracingProvider(monitoring.TracingConfig{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
		Insecure:       cfg.Monitoring.OTLPInsecure,
		SamplingRate:   cfg.Monitoring.SamplingRate,
		Enabled:        cfg.Monitoring.EnableTracing,
	}, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(tracing.Shutdown))
	return tracing, nil
}

// registerMeters bridges OTel instruments into the Prometheus registry
func registerMeters(lc fx.Lifecycle, cfg *config.Config, metrics *monitoring.MetricsCollector) error {
	if !cfg.Monitoring.EnableMetrics {
		return nil
	}
	meters, err := monitoring.NewMeterProvider(metrics, cfg.App.Name)
	if err != nil {
		return err
	}
	lc.Append(fx.StopHook(meters.Shutdown))
	return nil
}

// registerBackgroundJobs runs the sweepers and the API status poller for
// the lifetime of the app.
func registerBackgroundJobs(
	lc fx.Lifecycle,
	cfg *config.Config,
	store cache.Store,
	backend session.Backend,
	services webserver.Services,
	limiter *security.RateLimiter,
	metrics *monitoring.MetricsCollector,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go services.Status.Run(ctx)
			go services.Shares.RunSweeper(ctx, cfg.Cache.ShareGuardTTL)

			if local, ok := store.(*cache.LocalCache); ok {
				go local.AutoCleanup(ctx, cfg.Cache.StaleTime)
			}
			if mem, ok := backend.(*session.MemoryBackend); ok {
				go mem.RunSweeper(ctx, cfg.Session.CleanupInterval, metrics.SetActiveSessions)
			}
			if limiter != nil {
				go limiter.RunCleanup(ctx, cfg.RateLimit.CleanupInterval)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func registerLifecycleHooks(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, server *webserver.WebServer) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("Starting web frontend",
				zap.String("address", cfg.Address()),
				zap.String("environment", cfg.App.Environment),
				zap.String("api_url", cfg.API.BaseURL),
			)

			go func() {
				if err := server.Start(); err != nil {
					log.Fatal("Web server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down web frontend", zap.Duration("timeout", stopTimeout(cfg)))
			return server.Shutdown(ctx)
		},
	})
}
