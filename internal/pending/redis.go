package pending

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"hookrelay/pkg/models"
)

// RedisStore keeps the pending queue in a Redis list so parked events
// survive restarts. The list is trimmed to the newest cap entries on every
// append.
type RedisStore struct {
	client *redis.Client
	key    string
	cap    int64
}

func NewRedisStore(client *redis.Client, key string, capacity int) *RedisStore {
	return &RedisStore{client: client, key: key, cap: int64(capacity)}
}

func (s *RedisStore) Append(ctx context.Context, item models.PendingItem) error {
	data, err := sonic.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal pending item: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, data)
	if s.cap > 0 {
		pipe.LTrim(ctx, s.key, -s.cap, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append to %s failed: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Drain(ctx context.Context) ([]models.PendingItem, error) {
	pipe := s.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, s.key, 0, -1)
	pipe.Del(ctx, s.key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis drain of %s failed: %w", s.key, err)
	}

	raw := rangeCmd.Val()
	items := make([]models.PendingItem, 0, len(raw))
	for _, r := range raw {
		var item models.PendingItem
		if err := sonic.UnmarshalString(r, &item); err != nil {
			// A corrupt entry must not block the rest of the queue.
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Requeue pushes items back onto the head of the list. LPUSH inserts its
// arguments one by one, so they are passed newest first.
func (s *RedisStore) Requeue(ctx context.Context, items []models.PendingItem) error {
	if len(items) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		data, err := sonic.Marshal(items[i])
		if err != nil {
			return fmt.Errorf("failed to marshal pending item: %w", err)
		}
		values = append(values, data)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, values...)
	if s.cap > 0 {
		pipe.LTrim(ctx, s.key, -s.cap, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis requeue to %s failed: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Len(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis LLEN %s failed: %w", s.key, err)
	}
	return n, nil
}
