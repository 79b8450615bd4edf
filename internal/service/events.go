package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"frontend-proxy-go/internal/metrics"
	"frontend-proxy-go/internal/store"
)

// ErrInvalidPayload is returned when an ingested event lacks data.product_id.
var ErrInvalidPayload = errors.New("invalid payload")

// EventService validates collector payloads and records them in the store.
type EventService struct {
	store   store.EventStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewEventService creates an EventService. The metrics parameter is optional.
func NewEventService(s store.EventStore, logger *slog.Logger, m *metrics.Metrics) *EventService {
	return &EventService{
		store:   s,
		logger:  logger.With("component", "event_service"),
		metrics: m,
		now:     time.Now,
	}
}

// Ingest validates a raw JSON event and appends it to the store.
// Only data.product_id is required; the remaining fields are taken as sent.
func (s *EventService) Ingest(ctx context.Context, raw []byte) (*store.Record, error) {
	rec, err := s.parse(raw)
	if err != nil {
		s.count("invalid")
		return nil, err
	}

	if err := s.store.Append(ctx, *rec); err != nil {
		s.count("error")
		return nil, fmt.Errorf("store event: %w", err)
	}

	s.count("stored")
	s.logger.Info("logged ADD_TO_CART event",
		"product_id", rec.ProductID,
		"user_id", rec.UserID,
	)
	return rec, nil
}

func (s *EventService) parse(raw []byte) (*store.Record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: body is not JSON", ErrInvalidPayload)
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() || !doc.Get("data").IsObject() {
		return nil, fmt.Errorf("%w: missing data object", ErrInvalidPayload)
	}
	product := doc.Get("data.product_id")
	if !product.Exists() {
		return nil, fmt.Errorf("%w: missing data.product_id", ErrInvalidPayload)
	}

	rec := &store.Record{
		ID:        uuid.NewString(),
		Topic:     doc.Get("topic").String(),
		Event:     doc.Get("event").String(),
		EventType: store.EventTypeAddToCart,
		UserID:    doc.Get("data.user_id").String(),
		ProductID: product.String(),
		CreatedAt: s.now().UTC(),
	}
	if q := doc.Get("data.quantity"); q.Exists() && q.Type != gjson.Null {
		v := q.String()
		rec.Quantity = &v
	}
	return rec, nil
}

// Recent returns up to n stored records, newest first.
func (s *EventService) Recent(ctx context.Context, n int64) ([]store.Record, error) {
	records, err := s.store.Recent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("load recent events: %w", err)
	}
	return records, nil
}

// Ping reports whether the backing store is reachable.
func (s *EventService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *EventService) count(result string) {
	if s.metrics != nil {
		s.metrics.EventsIngested.WithLabelValues(result).Inc()
	}
}
