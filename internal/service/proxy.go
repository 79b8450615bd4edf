// Package service implements the proxy forwarding logic, cart interception
// and event collection.
package service

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"frontend-proxy-go/internal/client"
	"frontend-proxy-go/internal/config"
	"frontend-proxy-go/internal/metrics"
	"frontend-proxy-go/internal/model"
)

// EventPublisher hands cart events off without blocking the forward path.
type EventPublisher interface {
	Publish(ev *model.CartEvent)
}

// ProxyService forwards requests to the upstream origin and emits cart
// events for intercepted requests.
type ProxyService struct {
	client    *client.UpstreamClient
	publisher EventPublisher
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	baseURL   *url.URL
}

// NewProxyService creates a ProxyService. The metrics parameter is optional.
func NewProxyService(c *client.UpstreamClient, p EventPublisher, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*ProxyService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}

	return &ProxyService{
		client:    c,
		publisher: p,
		cfg:       cfg,
		logger:    logger.With("component", "proxy_service"),
		metrics:   m,
		baseURL:   u,
	}, nil
}

// Forward sends a ProxyRequest to the upstream origin and returns the response
// untouched. The caller is responsible for closing the response body.
//
// For a POST to the cart route it first hands a cart event to the publisher.
// Nothing about that event can change the outcome of the forward.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	if s.intercepts(pr) {
		s.emitCartEvent(pr)
	}

	upstreamURL := s.buildUpstreamURL(pr.Path, pr.RawQuery)
	header := forwardHeaders(pr.Header)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.Path,
	)

	resp, err := s.client.Do(pr.Ctx, pr.Method, upstreamURL, header, bytes.NewReader(pr.Body))
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}
	return resp, nil
}

// intercepts reports whether pr is an item addition: POST on the exact cart path.
func (s *ProxyService) intercepts(pr *model.ProxyRequest) bool {
	return pr.Method == http.MethodPost && pr.Path == s.cfg.Intercept.CartPath
}

func (s *ProxyService) buildUpstreamURL(path, rawQuery string) string {
	u := *s.baseURL
	u.Path = strings.TrimRight(s.baseURL.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = rawQuery
	return u.String()
}

// forwardHeaders copies every request header except Host.
func forwardHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		return make(http.Header)
	}
	for key := range dst {
		if strings.EqualFold(key, "Host") {
			delete(dst, key)
		}
	}
	return dst
}
