// Package client provides the outbound HTTP clients: the upstream origin
// that receives forwarded requests and the event collector.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"frontend-proxy-go/internal/config"
	"frontend-proxy-go/internal/metrics"
	"frontend-proxy-go/internal/model"
)

// UpstreamClient sends forwarded requests to the upstream origin.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and timeouts.
// Redirects are never followed and bodies are never transparently decompressed,
// so the caller sees exactly what the origin sent.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
	}
}

// Do sends one forwarded request upstream. ctx bounds the call together
// with the client timeout. The caller owns the returned body.
func (c *UpstreamClient) Do(ctx context.Context, method, url string, header http.Header, body io.Reader) (*model.ProxyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // closed by the caller via ProxyResponse
	elapsed := time.Since(start).Seconds()

	label := metrics.NormalizeMethod(method)
	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(label).Observe(elapsed)
	}
	if err != nil {
		c.logger.Debug("upstream call failed", "method", method, "err", err)
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()
	}
	c.logger.Debug("upstream response",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
	)

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}
