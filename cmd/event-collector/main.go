package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"frontend-proxy-go/internal/config"
	"frontend-proxy-go/internal/handler"
	"frontend-proxy-go/internal/logging"
	"frontend-proxy-go/internal/metrics"
	"frontend-proxy-go/internal/middleware"
	"frontend-proxy-go/internal/server"
	"frontend-proxy-go/internal/service"
	"frontend-proxy-go/internal/store"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.EventCollectorCLI
	kong.Parse(&cli,
		kong.Name("event-collector"),
		kong.Description("Receives add-to-cart events and serves the most recent ones."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
		}),
		fx.Provide(
			func() *config.EventCollectorCLI { return &cli },
			config.LoadEventCollector,
			newLogger,
			newMetrics,
			newStore,
			service.NewEventService,
			handler.NewEventHandler,
			newEcho,
		),
		fx.Invoke(registerRoutes, warnConfigPermissions, start),
	).Run()
}

func newLogger(cfg *config.EventCollectorConfig) *slog.Logger {
	return logging.New(cfg.Log)
}

func newMetrics() *metrics.Metrics {
	return metrics.New(metrics.NamespaceCollector, "/mcp", "/context", "/healthz")
}

// newStore opens the configured event store. A Redis client is closed when
// the app stops.
func newStore(lc fx.Lifecycle, cfg *config.EventCollectorConfig, logger *slog.Logger) store.EventStore {
	if cfg.Store.Backend == config.StoreMemory {
		logger.Info("using in-memory event store", "max_events", cfg.Store.MaxEvents)
		return store.NewMemoryStore(cfg.Store.MaxEvents)
	}

	timeout := time.Duration(cfg.Redis.TimeoutSeconds) * time.Second
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Redis may come up after the collector; /healthz reports it until then.
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Warn("redis not reachable yet", "addr", cfg.Redis.Addr, "err", err)
				return nil
			}
			logger.Info("connected to redis", "addr", cfg.Redis.Addr, "key", cfg.Redis.Key)
			return nil
		},
		OnStop: func(context.Context) error {
			return rdb.Close()
		},
	})

	return store.NewRedisStore(rdb, cfg.Redis.Key, cfg.Store.MaxEvents)
}

func newEcho(cfg *config.EventCollectorConfig, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := server.New(logger)

	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m))
	}
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))

	return e
}

func registerRoutes(e *echo.Echo, events *handler.EventHandler, cfg *config.EventCollectorConfig, m *metrics.Metrics) {
	handler.RegisterCollectorRoutes(e, events, &cfg.Metrics, m)
}

func warnConfigPermissions(cfg *config.EventCollectorConfig, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func start(lc fx.Lifecycle, e *echo.Echo, cfg *config.EventCollectorConfig, logger *slog.Logger) {
	server.Register(lc, e, "collector", cfg.Server.Addr(), logger)
}
