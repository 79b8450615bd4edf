package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestRedisStore(t *testing.T, maxEvents int64) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "events:test", maxEvents), mr
}

func record(productID string) Record {
	return Record{
		ID:        "id-" + productID,
		Topic:     "user-activity",
		Event:     "item_added_to_cart",
		EventType: EventTypeAddToCart,
		UserID:    "user-1",
		ProductID: productID,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRedisStore_AppendAndRecent(t *testing.T) {
	s, _ := newTestRedisStore(t, 100)
	ctx := context.Background()

	for _, id := range []string{"A", "B", "C"} {
		if err := s.Append(ctx, record(id)); err != nil {
			t.Fatalf("Append(%s) error = %v", id, err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Recent) = %d, want 2", len(got))
	}
	if got[0].ProductID != "C" || got[1].ProductID != "B" {
		t.Errorf("Recent order = %s,%s, want C,B", got[0].ProductID, got[1].ProductID)
	}
	if !got[0].CreatedAt.Equal(record("C").CreatedAt) {
		t.Errorf("CreatedAt = %v, want round-tripped timestamp", got[0].CreatedAt)
	}
}

func TestRedisStore_TrimsToMaxEvents(t *testing.T) {
	s, mr := newTestRedisStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Append(ctx, record(fmt.Sprintf("P%d", i))); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	items, err := mr.List("events:test")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 3 {
		t.Errorf("list length = %d, want 3", len(items))
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 || got[0].ProductID != "P4" || got[2].ProductID != "P2" {
		t.Errorf("Recent = %+v, want P4..P2", got)
	}
}

func TestRedisStore_RecentEmpty(t *testing.T) {
	s, _ := newTestRedisStore(t, 10)

	got, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(Recent) = %d, want 0", len(got))
	}

	got, err = s.Recent(context.Background(), 0)
	if err != nil || len(got) != 0 {
		t.Errorf("Recent(0) = %v, %v; want empty, nil", got, err)
	}
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	s, mr := newTestRedisStore(t, 10)
	if _, err := mr.Lpush("events:test", "not-json"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Recent(context.Background(), 10); err == nil {
		t.Fatal("Recent() expected decode error, got nil")
	}
}

func TestRedisStore_ServerDown(t *testing.T) {
	s, mr := newTestRedisStore(t, 10)
	mr.Close()

	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping() expected error with redis down, got nil")
	}
	if err := s.Append(context.Background(), record("A")); err == nil {
		t.Error("Append() expected error with redis down, got nil")
	}
}
