package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"frontend-proxy-go/internal/config"
	"frontend-proxy-go/internal/metrics"
)

// RegisterRoutes sends every method and path on the proxy listener upstream.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler) {
	e.Any("/*", proxy.Handle)
}

// RegisterAdminRoutes wires health, status and metrics onto the admin listener.
// The metrics parameter may be nil when metrics are disabled.
func RegisterAdminRoutes(e *echo.Echo, health *HealthHandler, cfg *config.MetricsConfig, m *metrics.Metrics) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	if cfg.Enabled && m != nil {
		e.GET(cfg.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}

// RegisterCollectorRoutes wires the event collector endpoints.
func RegisterCollectorRoutes(e *echo.Echo, events *EventHandler, cfg *config.MetricsConfig, m *metrics.Metrics) {
	e.POST("/mcp", events.Ingest)
	e.GET("/context", events.Context)
	e.GET("/healthz", events.Healthz)

	if cfg.Enabled && m != nil {
		e.GET(cfg.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
