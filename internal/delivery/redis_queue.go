package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// RedisQueue keeps jobs in a Redis list. Next atomically moves the head into
// a second in-flight list; Ack removes it from there.
type RedisQueue struct {
	client      *redis.Client
	key         string
	inflightKey string
}

func NewRedisQueue(client *redis.Client, key, inflightKey string) *RedisQueue {
	return &RedisQueue{client: client, key: key, inflightKey: inflightKey}
}

// Enqueue pushes every job with a single RPUSH, so a batch lands whole or
// not at all.
func (q *RedisQueue) Enqueue(ctx context.Context, jobs ...Job) error {
	if len(jobs) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(jobs))
	for _, job := range jobs {
		data, err := sonic.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
		}
		values = append(values, data)
	}
	if err := q.client.RPush(ctx, q.key, values...).Err(); err != nil {
		return fmt.Errorf("redis RPUSH %s failed: %w", q.key, err)
	}
	return nil
}

func (q *RedisQueue) Next(ctx context.Context, wait time.Duration) (Job, bool, error) {
	raw, err := q.client.BLMove(ctx, q.key, q.inflightKey, "LEFT", "RIGHT", wait).Result()
	if errors.Is(err, redis.Nil) {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, fmt.Errorf("redis BLMOVE %s failed: %w", q.key, err)
	}

	var job Job
	if err := sonic.UnmarshalString(raw, &job); err != nil {
		// Unreadable entries are dropped so they cannot wedge the queue.
		q.client.LRem(ctx, q.inflightKey, 1, raw)
		return Job{}, false, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	job.raw = raw
	return job, true, nil
}

func (q *RedisQueue) Ack(ctx context.Context, job Job) error {
	raw := job.raw
	if raw == "" {
		data, err := sonic.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
		}
		raw = string(data)
	}
	if err := q.client.LRem(ctx, q.inflightKey, 1, raw).Err(); err != nil {
		return fmt.Errorf("redis LREM %s failed: %w", q.inflightKey, err)
	}
	return nil
}

// Recover moves every in-flight job back to the head of the queue, keeping
// their relative order.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.inflightKey, q.key, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("redis LMOVE %s failed: %w", q.inflightKey, err)
		}
		n++
	}
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis LLEN %s failed: %w", q.key, err)
	}
	return n, nil
}
