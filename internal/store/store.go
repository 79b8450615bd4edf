// Package store persists events received by the event collector.
package store

import (
	"context"
	"time"
)

// EventTypeAddToCart is recorded for every item_added_to_cart event.
const EventTypeAddToCart = "ADD_TO_CART"

// Record is one stored event.
type Record struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Event     string    `json:"event"`
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  *string   `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// EventStore appends records and lists the most recent ones, newest first.
type EventStore interface {
	Append(ctx context.Context, r Record) error
	Recent(ctx context.Context, n int64) ([]Record, error)
	Ping(ctx context.Context) error
}
