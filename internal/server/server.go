// Package server builds Echo instances and binds them to the fx lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"frontend-proxy-go/internal/config"
	"frontend-proxy-go/internal/metrics"
	"frontend-proxy-go/internal/middleware"
)

// New returns an Echo instance for a listener that answers on its own
// behalf (admin, collector). Besides the shared base it tags every request
// and response with an X-Request-Id.
func New(logger *slog.Logger) *echo.Echo {
	e := newBase(logger)
	e.Use(echomw.RequestID())
	return e
}

// NewProxy returns the Echo instance of the forwarding listener. It installs
// no middleware that writes response headers, so clients see exactly the
// headers upstream sent.
func NewProxy(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := newBase(logger)

	if cfg.Metrics.Enabled && m != nil {
		e.Use(middleware.MetricsMiddleware(m))
	}
	if cfg.Server.BodyMaxBytes > 0 {
		e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	}
	e.Use(middleware.StripHopByHop())

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimit(cfg.Server.RateLimit))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

// newBase applies the inbound timeouts, panic recovery and request logging
// every listener shares.
func newBase(logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Inbound timeouts to mitigate slow-client attacks.
	e.Server.ReadTimeout = 30 * time.Second
	// WriteTimeout stays disabled so long upstream responses can stream;
	// the upstream client timeout bounds them instead.
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))

	return e
}

// Register binds e to addr when the fx app starts and shuts it down
// gracefully when it stops. The listener is opened synchronously so a busy
// port fails startup.
func Register(lc fx.Lifecycle, e *echo.Echo, name, addr string, logger *slog.Logger) {
	logger = logger.With("listener", name)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s listener %s: %w", name, addr, err)
			}
			e.Listener = ln
			logger.Info("starting server", "addr", ln.Addr().String())
			go func() {
				if err := e.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
