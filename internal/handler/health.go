package handler

import (
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"frontend-proxy-go/internal/config"
	"frontend-proxy-go/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// CollectorEndpoint reports where cart events are sent.
type CollectorEndpoint interface {
	Endpoint() string
}

// PublisherStatser exposes the detached publisher's counters.
type PublisherStatser interface {
	Stats() service.PublisherStats
}

// HealthHandler serves the admin health and status endpoints.
type HealthHandler struct {
	cfg       *config.Config
	version   Version
	collector CollectorEndpoint
	publisher PublisherStatser
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version, collector CollectorEndpoint, publisher PublisherStatser) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, collector: collector, publisher: publisher}
}

// Healthz returns a simple OK response for liveness checks.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type statusResponse struct {
	Status       string                 `json:"status"`
	Version      string                 `json:"version"`
	UpstreamURL  string                 `json:"upstream_url"`
	CollectorURL string                 `json:"collector_url"`
	CartPath     string                 `json:"cart_path"`
	BodyMax      string                 `json:"body_max"`
	Publisher    service.PublisherStats `json:"publisher"`
}

// Status returns proxy status information and event delivery counters.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:       "ok",
		Version:      string(h.version),
		UpstreamURL:  h.cfg.Upstream.BaseURL,
		CollectorURL: h.collector.Endpoint(),
		CartPath:     h.cfg.Intercept.CartPath,
		BodyMax:      humanize.IBytes(uint64(h.cfg.Server.BodyMaxBytes)), //nolint:gosec // validated non-negative
		Publisher:    h.publisher.Stats(),
	})
}
