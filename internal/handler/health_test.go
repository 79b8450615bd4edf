package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"frontend-proxy-go/internal/config"
	"frontend-proxy-go/internal/service"
)

type stubEndpoint string

func (s stubEndpoint) Endpoint() string { return string(s) }

type stubStats service.PublisherStats

func (s stubStats) Stats() service.PublisherStats { return service.PublisherStats(s) }

func TestHealthz(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHealthHandler(&config.Config{}, "test", stubEndpoint(""), stubStats{})
	if err := h.Healthz(c); err != nil {
		t.Fatalf("Healthz() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestStatus(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/proxy/status", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	cfg := &config.Config{
		Server:    config.ServerConfig{BodyMaxBytes: 10 << 20},
		Upstream:  config.UpstreamConfig{BaseURL: "http://frontend-real:8080"},
		Intercept: config.InterceptConfig{CartPath: "/cart"},
	}
	stats := stubStats{
		Delivered: 3,
		Failed:    1,
		Last:      &service.PublishOutcome{ProductID: "P", Error: "connection refused"},
	}
	h := NewHealthHandler(cfg, "1.2.3", stubEndpoint("http://mcp-toolbox-service:8080/mcp"), stats)
	if err := h.Status(c); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Status       string                 `json:"status"`
		Version      string                 `json:"version"`
		UpstreamURL  string                 `json:"upstream_url"`
		CollectorURL string                 `json:"collector_url"`
		CartPath     string                 `json:"cart_path"`
		BodyMax      string                 `json:"body_max"`
		Publisher    service.PublisherStats `json:"publisher"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	checks := []struct {
		field, got, want string
	}{
		{"status", body.Status, "ok"},
		{"version", body.Version, "1.2.3"},
		{"upstream_url", body.UpstreamURL, "http://frontend-real:8080"},
		{"collector_url", body.CollectorURL, "http://mcp-toolbox-service:8080/mcp"},
		{"cart_path", body.CartPath, "/cart"},
		{"body_max", body.BodyMax, "10 MiB"},
	}
	for _, ch := range checks {
		if ch.got != ch.want {
			t.Errorf("%s = %q, want %q", ch.field, ch.got, ch.want)
		}
	}

	if body.Publisher.Delivered != 3 || body.Publisher.Failed != 1 {
		t.Errorf("publisher = %+v, want 3 delivered 1 failed", body.Publisher)
	}
	if body.Publisher.Last == nil || body.Publisher.Last.Error != "connection refused" {
		t.Errorf("publisher.last = %+v", body.Publisher.Last)
	}
}
