package delivery

import (
	"context"
	"sync"
	"time"
)

// Queue is the ordered delivery backlog. A job returned by Next stays
// in-flight until Ack; Recover puts in-flight jobs back at the head so a
// crashed worker replays them first.
type Queue interface {
	// Enqueue appends jobs in order. Either all of them are stored or none.
	Enqueue(ctx context.Context, jobs ...Job) error
	// Next waits up to wait for a job. ok is false when none arrived.
	Next(ctx context.Context, wait time.Duration) (job Job, ok bool, err error)
	Ack(ctx context.Context, job Job) error
	Recover(ctx context.Context) (int, error)
	Len(ctx context.Context) (int64, error)
}

// MemoryQueue is a process-local Queue for tests and single-node setups
// without Redis.
type MemoryQueue struct {
	mu       sync.Mutex
	items    []Job
	inflight []Job
	notify   chan struct{}
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{notify: make(chan struct{}, 1)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, jobs ...Job) error {
	if len(jobs) == 0 {
		return nil
	}
	q.mu.Lock()
	q.items = append(q.items, jobs...)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemoryQueue) Next(ctx context.Context, wait time.Duration) (Job, bool, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			job := q.items[0]
			q.items = q.items[1:]
			q.inflight = append(q.inflight, job)
			q.mu.Unlock()
			return job, true, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Job{}, false, ctx.Err()
		case <-timer.C:
			return Job{}, false, nil
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) Ack(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, j := range q.inflight {
		if j.ID == job.ID {
			q.inflight = append(q.inflight[:i], q.inflight[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *MemoryQueue) Recover(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.inflight)
	if n == 0 {
		return 0, nil
	}
	q.items = append(append([]Job{}, q.inflight...), q.items...)
	q.inflight = nil
	return n, nil
}

func (q *MemoryQueue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}
