package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"frontend-proxy-go/internal/config"
	"frontend-proxy-go/internal/model"
)

// collectorPath is the collector's event ingestion route.
const collectorPath = "/mcp"

// ErrCollectorStatus is returned when the collector answers with a non-2xx status.
var ErrCollectorStatus = errors.New("collector returned non-2xx status")

// CollectorClient posts cart events to the event collector. It never retries.
type CollectorClient struct {
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

// NewCollectorClient creates a CollectorClient bounded by collector.timeout_ms.
func NewCollectorClient(cfg *config.Config, logger *slog.Logger) *CollectorClient {
	return &CollectorClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Collector.TimeoutMS) * time.Millisecond,
		},
		endpoint: cfg.Collector.BaseURL() + collectorPath,
		logger:   logger.With("component", "collector_client"),
	}
}

// Endpoint returns the URL events are posted to.
func (c *CollectorClient) Endpoint() string {
	return c.endpoint
}

// Timeout returns the per-call deadline applied to Send.
func (c *CollectorClient) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Send posts ev as JSON. Only the response status is inspected.
func (c *CollectorClient) Send(ctx context.Context, ev *model.CartEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build collector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("collector request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrCollectorStatus, resp.StatusCode)
	}

	c.logger.Debug("event delivered",
		"product_id", ev.Data.ProductID,
		"status", resp.StatusCode,
	)
	return nil
}
