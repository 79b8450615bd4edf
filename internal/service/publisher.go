package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"frontend-proxy-go/internal/metrics"
	"frontend-proxy-go/internal/model"
)

const defaultPublishTimeout = time.Second

// EventSender delivers a single event, honouring ctx.
type EventSender interface {
	Send(ctx context.Context, ev *model.CartEvent) error
}

// PublishOutcome describes the most recent delivery attempt.
type PublishOutcome struct {
	ProductID string    `json:"product_id"`
	At        time.Time `json:"at"`
	Error     string    `json:"error,omitempty"`
}

// PublisherStats is a point-in-time view of a DetachedPublisher.
type PublisherStats struct {
	InFlight  int64           `json:"in_flight"`
	Delivered int64           `json:"delivered"`
	Failed    int64           `json:"failed"`
	Last      *PublishOutcome `json:"last,omitempty"`
}

// DetachedPublisher sends each event on its own goroutine. The outcome is
// only logged and counted; it never reaches the request that produced the
// event. There are no retries.
type DetachedPublisher struct {
	sender  EventSender
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	wg        sync.WaitGroup
	inFlight  atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	last      atomic.Pointer[PublishOutcome]
}

// NewDetachedPublisher creates a DetachedPublisher whose sends are bounded by
// timeout (one second when timeout is not positive). The metrics parameter is optional.
func NewDetachedPublisher(sender EventSender, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *DetachedPublisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &DetachedPublisher{
		sender:  sender,
		timeout: timeout,
		logger:  logger.With("component", "event_publisher"),
		metrics: m,
	}
}

// Publish starts delivering ev and returns immediately.
func (p *DetachedPublisher) Publish(ev *model.CartEvent) {
	p.wg.Add(1)
	p.inFlight.Inc()

	go func() {
		defer p.wg.Done()
		defer p.inFlight.Dec()

		// Detached from the inbound request: a client disconnect must not cancel delivery.
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		p.record(ev, p.sender.Send(ctx, ev))
	}()
}

func (p *DetachedPublisher) record(ev *model.CartEvent, err error) {
	outcome := &PublishOutcome{ProductID: ev.Data.ProductID, At: time.Now()}
	result := "success"

	if err != nil {
		outcome.Error = err.Error()
		result = "error"
		p.failed.Inc()
		p.logger.Error("could not publish cart event",
			"err", err,
			"product_id", ev.Data.ProductID,
		)
	} else {
		p.delivered.Inc()
		p.logger.Info("published cart event", "product_id", ev.Data.ProductID)
	}

	p.last.Store(outcome)
	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(result).Inc()
	}
}

// Wait blocks until every started delivery has finished or ctx is done.
func (p *DetachedPublisher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the delivery counters and the latest outcome.
func (p *DetachedPublisher) Stats() PublisherStats {
	return PublisherStats{
		InFlight:  p.inFlight.Load(),
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
		Last:      p.last.Load(),
	}
}
