package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"frontend-proxy-go/internal/config"
)

func TestRateLimit(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1}))
	e.POST("/cart", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/cart", http.NoBody)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", code, http.StatusOK)
	}

	got429 := false
	for i := 0; i < 10; i++ {
		if send("10.0.0.1:1234") == http.StatusTooManyRequests {
			got429 = true
			break
		}
	}
	if !got429 {
		t.Error("expected at least one 429 response after burst, got none")
	}

	if code := send("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("other client: status = %d, want %d", code, http.StatusOK)
	}
}
