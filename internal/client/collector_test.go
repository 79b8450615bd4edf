package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"frontend-proxy-go/internal/config"
	"frontend-proxy-go/internal/model"
)

// newTestCollectorClient points a CollectorClient at rawURL.
func newTestCollectorClient(t *testing.T, rawURL string, timeoutMS int) *CollectorClient {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)

	cfg := &config.Config{
		Collector: config.CollectorConfig{Host: host, Port: port, TimeoutMS: timeoutMS},
	}
	return NewCollectorClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCollectorClient_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/mcp" {
			t.Errorf("path = %q, want /mcp", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestCollectorClient(t, srv.URL, 1000)
	if c.Endpoint() != srv.URL+"/mcp" {
		t.Errorf("Endpoint() = %q, want %q", c.Endpoint(), srv.URL+"/mcp")
	}

	qty := "2"
	if err := c.Send(context.Background(), model.NewCartEvent("user-456", "OLJCESPC7Z", &qty)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got["topic"] != "user-activity" || got["event"] != "item_added_to_cart" {
		t.Errorf("topic/event = %v/%v", got["topic"], got["event"])
	}
	data, _ := got["data"].(map[string]any)
	if data["user_id"] != "user-456" || data["product_id"] != "OLJCESPC7Z" || data["quantity"] != "2" {
		t.Errorf("data = %v", data)
	}
}

func TestCollectorClient_Send_NullQuantity(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	c := newTestCollectorClient(t, srv.URL, 1000)
	if err := c.Send(context.Background(), model.NewCartEvent("u", "p", nil)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := `{"topic":"user-activity","event":"item_added_to_cart","data":{"user_id":"u","product_id":"p","quantity":null}}`
	if string(raw) != want {
		t.Errorf("payload = %s, want %s", raw, want)
	}
}

func TestCollectorClient_Send_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestCollectorClient(t, srv.URL, 1000)
	err := c.Send(context.Background(), model.NewCartEvent("u", "p", nil))
	if !errors.Is(err, ErrCollectorStatus) {
		t.Errorf("Send() error = %v, want ErrCollectorStatus", err)
	}
}

func TestCollectorClient_Send_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestCollectorClient(t, srv.URL, 50)

	start := time.Now()
	if err := c.Send(context.Background(), model.NewCartEvent("u", "p", nil)); err == nil {
		t.Fatal("Send() expected timeout error, got nil")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Send() took %v, want bounded by the client timeout", elapsed)
	}
}

func TestCollectorClient_Send_Unreachable(t *testing.T) {
	c := newTestCollectorClient(t, "http://127.0.0.1:1", 200)
	if err := c.Send(context.Background(), model.NewCartEvent("u", "p", nil)); err == nil {
		t.Fatal("Send() expected error for unreachable collector, got nil")
	}
}
