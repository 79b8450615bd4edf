package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps records as JSON in a capped Redis list, newest at the head.
type RedisStore struct {
	client    redis.Cmdable
	key       string
	maxEvents int64
}

// NewRedisStore creates a RedisStore on key that keeps at most maxEvents records.
func NewRedisStore(client redis.Cmdable, key string, maxEvents int64) *RedisStore {
	return &RedisStore{client: client, key: key, maxEvents: maxEvents}
}

// Append pushes r and trims the list in one transaction.
func (s *RedisStore) Append(ctx context.Context, r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	if s.maxEvents > 0 {
		pipe.LTrim(ctx, s.key, 0, s.maxEvents-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append %s: %w", s.key, err)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (s *RedisStore) Recent(ctx context.Context, n int64) ([]Record, error) {
	if n <= 0 {
		return []Record{}, nil
	}

	vals, err := s.client.LRange(ctx, s.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis range %s: %w", s.key, err)
	}

	records := make([]Record, 0, len(vals))
	for _, v := range vals {
		var r Record
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
