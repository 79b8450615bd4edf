package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"frontend-proxy-go/internal/service"
)

// contextLimit is the number of records returned by GET /context.
const contextLimit = 10

type eventReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// contextEntry is one record as returned by GET /context.
type contextEntry struct {
	CreatedAt string  `json:"created_at"`
	ProductID string  `json:"product_id"`
	UserID    string  `json:"user_id"`
	Quantity  *string `json:"quantity"`
}

// EventHandler serves the event collector endpoints.
type EventHandler struct {
	service *service.EventService
	logger  *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(svc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: svc,
		logger:  logger.With("component", "event_handler"),
	}
}

// Ingest stores one cart event posted by the proxy.
func (h *EventHandler) Ingest(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return c.JSON(http.StatusBadRequest, eventReply{Status: "error", Message: "Invalid payload"})
	}

	if _, err := h.service.Ingest(c.Request().Context(), body); err != nil {
		if errors.Is(err, service.ErrInvalidPayload) {
			h.logger.Warn("rejected event", "err", err)
			return c.JSON(http.StatusBadRequest, eventReply{Status: "error", Message: "Invalid payload"})
		}
		h.logger.Error("storing event", "err", err)
		return c.JSON(http.StatusInternalServerError, eventReply{Status: "error", Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, eventReply{Status: "success", Message: "Event logged"})
}

// Context returns the most recent events, newest first.
func (h *EventHandler) Context(c echo.Context) error {
	records, err := h.service.Recent(c.Request().Context(), contextLimit)
	if err != nil {
		h.logger.Error("loading recent events", "err", err)
		return c.JSON(http.StatusInternalServerError, eventReply{Status: "error", Message: "Internal server error"})
	}

	out := make([]contextEntry, 0, len(records))
	for _, r := range records {
		out = append(out, contextEntry{
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
			ProductID: r.ProductID,
			UserID:    r.UserID,
			Quantity:  r.Quantity,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Healthz reports whether the event store is reachable.
func (h *EventHandler) Healthz(c echo.Context) error {
	if err := h.service.Ping(c.Request().Context()); err != nil {
		h.logger.Warn("store unreachable", "err", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
