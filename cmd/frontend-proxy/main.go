package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"frontend-proxy-go/internal/client"
	"frontend-proxy-go/internal/config"
	"frontend-proxy-go/internal/handler"
	"frontend-proxy-go/internal/logging"
	"frontend-proxy-go/internal/metrics"
	"frontend-proxy-go/internal/server"
	"frontend-proxy-go/internal/service"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("frontend-proxy"),
		kong.Description("Reverse proxy for the storefront that reports add-to-cart events."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
		}),
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			newMetrics,
			client.NewUpstreamClient,
			client.NewCollectorClient,
			newPublisher,
			func(p *service.DetachedPublisher) service.EventPublisher { return p },
			service.NewProxyService,
			handler.NewProxyHandler,
			newHealthHandler,
			fx.Annotate(newProxyEcho, fx.ResultTags(`name:"proxy"`)),
			fx.Annotate(newAdminEcho, fx.ResultTags(`name:"admin"`)),
		),
		fx.Invoke(registerRoutes, warnConfigPermissions, start),
	).Run()
}

// servers are the two listeners of the proxy process.
type servers struct {
	fx.In

	Proxy *echo.Echo `name:"proxy"`
	Admin *echo.Echo `name:"admin"`
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(cfg.Log)
}

func newMetrics(cfg *config.Config) *metrics.Metrics {
	return metrics.New(metrics.NamespaceProxy,
		cfg.Intercept.CartPath,
		"/healthz",
		"/proxy/status",
		cfg.Metrics.Path,
	)
}

func newPublisher(cc *client.CollectorClient, logger *slog.Logger, m *metrics.Metrics) *service.DetachedPublisher {
	return service.NewDetachedPublisher(cc, cc.Timeout(), logger, m)
}

func newHealthHandler(cfg *config.Config, v handler.Version, cc *client.CollectorClient, p *service.DetachedPublisher) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg, v, cc, p)
}

func newProxyEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	return server.NewProxy(cfg, logger, m)
}

func newAdminEcho(logger *slog.Logger) *echo.Echo {
	return server.New(logger)
}

func registerRoutes(s servers, proxy *handler.ProxyHandler, health *handler.HealthHandler, cfg *config.Config, m *metrics.Metrics) {
	handler.RegisterRoutes(s.Proxy, proxy)
	handler.RegisterAdminRoutes(s.Admin, health, &cfg.Metrics, m)
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

// start binds both listeners. Hooks stop in reverse order, so the proxy
// stops accepting first and in-flight cart events drain last.
func start(lc fx.Lifecycle, s servers, cfg *config.Config, cc *client.CollectorClient, pub *service.DetachedPublisher, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("frontend proxy configured",
				"version", version,
				"upstream", cfg.Upstream.BaseURL,
				"collector", cc.Endpoint(),
				"cart_path", cfg.Intercept.CartPath,
				"body_max", humanize.IBytes(uint64(cfg.Server.BodyMaxBytes)), //nolint:gosec // validated non-negative
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := pub.Wait(ctx); err != nil {
				logger.Warn("cart events still in flight at shutdown", "in_flight", pub.Stats().InFlight)
			}
			return nil
		},
	})

	server.Register(lc, s.Admin, "admin", cfg.Admin.Addr(), logger)
	server.Register(lc, s.Proxy, "proxy", cfg.Server.Addr(), logger)
}
