package dispatch

import (
	"context"
	"sync"
	"time"

	"hookrelay/internal/delivery"
	"hookrelay/internal/logger"
	"hookrelay/internal/pending"
	"hookrelay/pkg/cel"
	"hookrelay/pkg/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu   sync.Mutex
	jobs []delivery.Job
	err  error
}

func (s *recordingSink) Enqueue(_ context.Context, jobs ...delivery.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, jobs...)
	return nil
}

func (s *recordingSink) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// flakyStore is a pending store whose appends can be made to fail.
type flakyStore struct {
	*pending.MemoryStore
	appendErr error
}

func (s *flakyStore) Append(ctx context.Context, item models.PendingItem) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.MemoryStore.Append(ctx, item)
}

func (s *recordingSink) Jobs() []delivery.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery.Job(nil), s.jobs...)
}

// currentWindow copies the open aggregation window of sourceID, if any.
func currentWindow(store *StateStore, sourceID string) *AggregateState {
	var out *AggregateState
	store.With(sourceID, func(st *sourceState) {
		if st.aggregate != nil {
			cp := *st.aggregate
			out = &cp
		}
	})
	return out
}

func newTestFilter() *Filter {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		panic(err)
	}
	return NewFilter(evaluator, logger.NopLogger())
}

func event(source, title, text string, ts time.Time) models.Event {
	return models.Event{
		ID:         source + "/" + title,
		SourceID:   source,
		SourceName: source,
		Title:      title,
		Text:       text,
		Timestamp:  ts,
		Importance: 3,
	}
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
