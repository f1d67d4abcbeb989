package deadletter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink pushes dead letters onto a Redis list. It borrows the client and
// does not close it.
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink creates a sink writing to key (DefaultKey when empty).
func NewRedisSink(client *redis.Client, key string) *RedisSink {
	if key == "" {
		key = DefaultKey
	}
	return &RedisSink{client: client, key: key}
}

func (s *RedisSink) Send(ctx context.Context, entry Entry) error { //nolint:gocritic // hugeParam: entries are values
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode dead letter %s: %w", entry.Message.ID, err)
	}
	if err := s.client.LPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Close() error { return nil }
