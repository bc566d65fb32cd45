package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookrelay/internal/delivery"
	"hookrelay/internal/logger"
	"hookrelay/internal/pending"
	"hookrelay/internal/render"
	"hookrelay/pkg/models"
)

func newTestService(t *testing.T, clock *fakeClock) (*Service, *recordingSink, *pending.MemoryStore) {
	t.Helper()
	sink := &recordingSink{}
	store := pending.NewMemoryStore(500)
	svc, err := NewService(sink, store, logger.NopLogger(), WithClock(clock.Now))
	require.NoError(t, err)
	return svc, sink, store
}

func baseSettings() *Settings {
	return &Settings{
		DefaultDestination: "https://hooks.example.com/default",
		Render:             render.Options{UseEmbed: true, SummaryContent: true, Location: time.UTC},
	}
}

func contentOf(t *testing.T, job delivery.Job) string {
	t.Helper()
	var p struct {
		Content string `json:"content"`
		Embeds  []struct {
			Description string `json:"description"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	return p.Content
}

func descriptionOf(t *testing.T, job delivery.Job) string {
	t.Helper()
	var p struct {
		Embeds []struct {
			Description string `json:"description"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	require.NotEmpty(t, p.Embeds)
	return p.Embeds[0].Description
}

func TestService_DispatchesToEveryDestination(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	s := baseSettings()
	s.Rules = []RoutingRule{{ID: "r1", Enabled: true, DestinationURLs: []string{"https://hooks.example.com/extra"}}}

	out, err := svc.Process(context.Background(), s, event("com.example.chat", "Alice", "hi", t0))
	require.NoError(t, err)

	assert.Equal(t, OutcomeDispatched, out.Kind)
	assert.True(t, out.Handled())
	jobs := sink.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "https://hooks.example.com/default", jobs[0].DestinationURL)
	assert.Equal(t, "https://hooks.example.com/extra", jobs[1].DestinationURL)
	assert.Equal(t, jobs[0].Payload, jobs[1].Payload)
	assert.Equal(t, "com.example.chat · Alice", contentOf(t, jobs[0]))
	assert.NotEqual(t, jobs[0].ID, jobs[1].ID)
}

func TestService_NoDestinationsIsNotHandled(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)

	out, err := svc.Process(context.Background(), &Settings{}, event("s", "t", "x", t0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDropped, out.Kind)
	assert.False(t, out.Handled())
	assert.Empty(t, sink.Jobs())
}

func TestService_FilteredIsNotHandled(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	s := baseSettings()
	s.Filter = FilterConfig{Keywords: []string{"urgent"}}

	out, err := svc.Process(context.Background(), s, event("s", "t", "x", t0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFiltered, out.Kind)
	assert.False(t, out.Handled())
	assert.Empty(t, sink.Jobs())
}

func TestService_DedupSuppressesRepeat(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	s := baseSettings()
	s.Dedupe = DedupeConfig{Enabled: true, ContentHash: true, WindowSeconds: 60}
	ev := event("s", "t", "x", t0)

	_, err := svc.Process(context.Background(), s, ev)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	out, err := svc.Process(context.Background(), s, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuppressed, out.Kind)
	assert.True(t, out.Handled())
	assert.Len(t, sink.Jobs(), 1)
}

func TestService_RateLimited(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	s := baseSettings()
	s.RateLimit = RateLimitConfig{Enabled: true, MaxPerWindow: 2, WindowSeconds: 60}

	var outcomes []OutcomeKind
	for i := 0; i < 3; i++ {
		out, err := svc.Process(context.Background(), s, event("s", fmt.Sprint(i), "x", t0))
		require.NoError(t, err)
		outcomes = append(outcomes, out.Kind)
	}

	assert.Equal(t, []OutcomeKind{OutcomeDispatched, OutcomeDispatched, OutcomeRateLimited}, outcomes)
	assert.Len(t, sink.Jobs(), 2)
}

func TestService_AggregationScenario(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	s := baseSettings()
	s.Aggregate = AggregateConfig{Enabled: true, WindowSeconds: 10}
	ctx := context.Background()

	out, err := svc.Process(ctx, s, event("chat", "one", "1", clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, out.Kind)

	clock.Advance(2 * time.Second)
	out, err = svc.Process(ctx, s, event("chat", "two", "2", clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeHeld, out.Kind)

	clock.Advance(2 * time.Second)
	out, err = svc.Process(ctx, s, event("chat", "three", "3", clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeHeld, out.Kind)
	assert.Len(t, sink.Jobs(), 1)

	clock.Advance(8 * time.Second)
	out, err = svc.Process(ctx, s, event("chat", "four", "4", clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, out.Kind)

	jobs := sink.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, "chat · three [×3]", contentOf(t, jobs[1]))
	assert.Contains(t, descriptionOf(t, jobs[1]), "3 messages aggregated")
	assert.Equal(t, "chat · four", contentOf(t, jobs[2]))
}

func TestService_QuietHoursQueueThenFlush(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC))
	svc, sink, store := newTestService(t, clock)
	s := baseSettings()
	s.QuietHours = QuietHoursConfig{Enabled: true, StartMinute: 22 * 60, EndMinute: 7 * 60, Location: time.UTC}
	ctx := context.Background()

	out, err := svc.Process(ctx, s, event("chat", "late", "night", clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, out.Kind)
	assert.True(t, out.Handled())

	clock.Advance(time.Hour)
	_, err = svc.Process(ctx, s, event("chat", "later", "still night", clock.Now()))
	require.NoError(t, err)
	assert.Empty(t, sink.Jobs())

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	clock.Set(time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC))
	out, err = svc.Process(ctx, s, event("mail", "morning", "coffee", clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, out.Kind)

	jobs := sink.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "chat · later [×2]", contentOf(t, jobs[0]))
	assert.Contains(t, descriptionOf(t, jobs[0]), "2 suppressed items, latest: later — still night")
	assert.NotContains(t, descriptionOf(t, jobs[0]), "messages aggregated")
	assert.Equal(t, "mail · morning", contentOf(t, jobs[1]))

	n, err = store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_QuietHoursSkipsFilteredEvents(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC))
	svc, _, store := newTestService(t, clock)
	s := baseSettings()
	s.Filter = FilterConfig{MinImportance: 5}
	s.QuietHours = QuietHoursConfig{Enabled: true, StartMinute: 22 * 60, EndMinute: 7 * 60, Location: time.UTC}

	out, err := svc.Process(context.Background(), s, event("chat", "x", "y", clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFiltered, out.Kind)

	n, _ := store.Len(context.Background())
	assert.Zero(t, n)
}

func TestService_AttachmentOnlyForSingleSends(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	s := baseSettings()
	s.Render.Attachments = true

	ev := event("chat", "pic", "look", t0)
	ev.Image = &models.Image{Filename: "p.png", ContentType: "image/png", Data: []byte("PNG")}

	_, err := svc.Process(context.Background(), s, ev)
	require.NoError(t, err)

	jobs := sink.Jobs()
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].Attachment)
	assert.Equal(t, "p.png", jobs[0].Attachment.Filename)
}

func TestService_SweepFlushesWithoutEvent(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	s := baseSettings()
	s.Aggregate = AggregateConfig{Enabled: true, WindowSeconds: 5}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Process(ctx, s, event("chat", fmt.Sprint(i), "x", clock.Now()))
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	require.Len(t, sink.Jobs(), 1)

	jobs, err := svc.Sweep(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	clock.Advance(10 * time.Second)
	jobs, err = svc.Sweep(ctx, s)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "chat · 2 [×3]", contentOf(t, jobs[0]))
	assert.Len(t, sink.Jobs(), 2)
}

func TestService_EnqueueErrorIsReturned(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	sink.SetErr(errors.New("redis down"))

	_, err := svc.Process(context.Background(), baseSettings(), event("chat", "x", "y", t0))
	assert.Error(t, err)
}

func TestService_EnqueueFailureLeavesEventRetryable(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	s := baseSettings()
	s.Dedupe = DedupeConfig{Enabled: true, ContentHash: true, TitleLatest: true, WindowSeconds: 60}
	s.RateLimit = RateLimitConfig{Enabled: true, MaxPerWindow: 1, WindowSeconds: 60}
	s.Aggregate = AggregateConfig{Enabled: true, WindowSeconds: 10}
	ctx := context.Background()
	ev := event("chat", "Alice", "hi", t0)

	sink.SetErr(errors.New("redis down"))
	_, err := svc.Process(ctx, s, ev)
	require.Error(t, err)
	assert.Nil(t, currentWindow(svc.store, "chat"))

	sink.SetErr(nil)
	out, err := svc.Process(ctx, s, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, out.Kind)
	require.Len(t, sink.Jobs(), 1)
	assert.Equal(t, "chat · Alice", contentOf(t, sink.Jobs()[0]))

	out, err = svc.Process(ctx, s, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuppressed, out.Kind)
}

func TestService_EnqueueFailureKeepsHeldCount(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	s := baseSettings()
	s.Aggregate = AggregateConfig{Enabled: true, WindowSeconds: 10}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Process(ctx, s, event("chat", fmt.Sprint(i), "x", clock.Now()))
		require.NoError(t, err)
	}
	require.Equal(t, 2, currentWindow(svc.store, "chat").Count)

	clock.Advance(20 * time.Second)
	sink.SetErr(errors.New("redis down"))
	_, err := svc.Process(ctx, s, event("mail", "m", "x", clock.Now()))
	require.Error(t, err)

	window := currentWindow(svc.store, "chat")
	require.NotNil(t, window)
	assert.Equal(t, 2, window.Count)
	assert.Nil(t, currentWindow(svc.store, "mail"))

	sink.SetErr(nil)
	_, err = svc.Process(ctx, s, event("mail", "m", "x", clock.Now()))
	require.NoError(t, err)

	jobs := sink.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, "chat · 1 [×2]", contentOf(t, jobs[1]))
	assert.Equal(t, "mail · m", contentOf(t, jobs[2]))
}

func TestService_EnqueueFailureRequeuesParkedEvents(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC))
	svc, sink, store := newTestService(t, clock)
	s := baseSettings()
	s.QuietHours = QuietHoursConfig{Enabled: true, StartMinute: 22 * 60, EndMinute: 7 * 60, Location: time.UTC}
	ctx := context.Background()

	for _, title := range []string{"a", "b"} {
		_, err := svc.Process(ctx, s, event("chat", title, "night", clock.Now()))
		require.NoError(t, err)
	}

	clock.Set(time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC))
	sink.SetErr(errors.New("redis down"))
	_, err := svc.Process(ctx, s, event("mail", "morning", "coffee", clock.Now()))
	require.Error(t, err)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	sink.SetErr(nil)
	out, err := svc.Process(ctx, s, event("mail", "morning", "coffee", clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, out.Kind)

	jobs := sink.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "chat · b [×2]", contentOf(t, jobs[0]))
	assert.Equal(t, "mail · morning", contentOf(t, jobs[1]))
}

func TestService_ParkFailureKeepsFlushedSummary(t *testing.T) {
	clock := newFakeClock(t0)
	sink := &recordingSink{}
	store := &flakyStore{MemoryStore: pending.NewMemoryStore(10)}
	svc, err := NewService(sink, store, logger.NopLogger(), WithClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	open := baseSettings()
	open.Aggregate = AggregateConfig{Enabled: true, WindowSeconds: 10}
	quiet := baseSettings()
	quiet.Aggregate = open.Aggregate
	quiet.QuietHours = QuietHoursConfig{Enabled: true, StartMinute: 0, EndMinute: 23*60 + 59, Location: time.UTC}

	for i := 0; i < 3; i++ {
		_, err := svc.Process(ctx, open, event("app", fmt.Sprint(i), "x", clock.Now()))
		require.NoError(t, err)
	}
	require.Len(t, sink.Jobs(), 1)

	clock.Advance(20 * time.Second)
	store.appendErr = errors.New("redis down")
	_, err = svc.Process(ctx, quiet, event("other", "o", "x", clock.Now()))
	require.Error(t, err)

	jobs := sink.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "app · 2 [×3]", contentOf(t, jobs[1]))

	store.appendErr = nil
	out, err := svc.Process(ctx, quiet, event("other", "o", "x", clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, out.Kind)
	assert.Len(t, sink.Jobs(), 2)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestService_PlanFailureRestoresWindows(t *testing.T) {
	clock := newFakeClock(t0)
	sink := &recordingSink{}
	store := &flakyStore{MemoryStore: pending.NewMemoryStore(10)}
	svc, err := NewService(sink, store, logger.NopLogger(), WithClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	s := baseSettings()
	s.Aggregate = AggregateConfig{Enabled: true, WindowSeconds: 10}
	for i := 0; i < 2; i++ {
		_, err := svc.Process(ctx, s, event("app", fmt.Sprint(i), "x", clock.Now()))
		require.NoError(t, err)
	}

	clock.Advance(20 * time.Second)
	s.QuietHours = QuietHoursConfig{Enabled: true, StartMinute: 0, EndMinute: 23*60 + 59, Location: time.UTC}
	store.appendErr = errors.New("redis down")
	_, err = svc.Plan(ctx, s, event("other", "o", "x", clock.Now()))
	require.Error(t, err)

	window := currentWindow(svc.store, "app")
	require.NotNil(t, window)
	assert.Equal(t, 2, window.Count)
}

func TestService_SweepFailureRestoresState(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	s := baseSettings()
	s.Aggregate = AggregateConfig{Enabled: true, WindowSeconds: 5}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Process(ctx, s, event("chat", fmt.Sprint(i), "x", clock.Now()))
		require.NoError(t, err)
	}

	clock.Advance(10 * time.Second)
	sink.SetErr(errors.New("redis down"))
	_, err := svc.Sweep(ctx, s)
	require.Error(t, err)

	sink.SetErr(nil)
	jobs, err := svc.Sweep(ctx, s)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "chat · 1 [×2]", contentOf(t, jobs[0]))
}

func TestService_ConcurrentSourcesAreIsolated(t *testing.T) {
	clock := newFakeClock(t0)
	svc, sink, _ := newTestService(t, clock)
	s := baseSettings()
	s.RateLimit = RateLimitConfig{Enabled: true, MaxPerWindow: 5, WindowSeconds: 60}

	var wg sync.WaitGroup
	for src := 0; src < 8; src++ {
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(src, i int) {
				defer wg.Done()
				_, _ = svc.Process(context.Background(), s, event(fmt.Sprintf("src-%d", src), fmt.Sprint(i), "x", t0))
			}(src, i)
		}
	}
	wg.Wait()

	perSource := map[string]int{}
	for _, j := range sink.Jobs() {
		perSource[j.SourceID]++
	}
	assert.Len(t, perSource, 8)
	for src, n := range perSource {
		assert.Equal(t, 5, n, src)
	}
}

func TestService_CustomResolver(t *testing.T) {
	clock := newFakeClock(t0)
	sink := &recordingSink{}
	svc, err := NewService(sink, nil, logger.NopLogger(),
		WithClock(clock.Now),
		WithResolver(NewResolverWith(fixedStrategy{"https://hooks.example.com/fixed"})),
	)
	require.NoError(t, err)

	out, err := svc.Process(context.Background(), baseSettings(), event("s", "t", "x", t0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, out.Kind)
	require.Len(t, sink.Jobs(), 1)
	assert.Equal(t, "https://hooks.example.com/fixed", sink.Jobs()[0].DestinationURL)
}

func TestService_SharedStateStore(t *testing.T) {
	clock := newFakeClock(t0)
	store := NewStateStore(4)
	sink := &recordingSink{}

	first, err := NewService(sink, nil, logger.NopLogger(), WithClock(clock.Now), WithStateStore(store))
	require.NoError(t, err)
	second, err := NewService(sink, nil, logger.NopLogger(), WithClock(clock.Now), WithStateStore(store))
	require.NoError(t, err)

	s := baseSettings()
	s.Dedupe = DedupeConfig{Enabled: true, ContentHash: true, WindowSeconds: 60}
	ev := event("s", "t", "x", t0)

	_, err = first.Process(context.Background(), s, ev)
	require.NoError(t, err)
	out, err := second.Process(context.Background(), s, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuppressed, out.Kind)
	assert.Len(t, sink.Jobs(), 1)
}

type noAttachments struct{}

func (noAttachments) Extract(models.Event) *render.Attachment { return nil }

func TestService_CustomExtractor(t *testing.T) {
	clock := newFakeClock(t0)
	sink := &recordingSink{}
	svc, err := NewService(sink, nil, logger.NopLogger(), WithClock(clock.Now), WithExtractor(noAttachments{}))
	require.NoError(t, err)

	ev := event("s", "t", "x", t0)
	ev.Image = &models.Image{Filename: "a.png", ContentType: "image/png", Data: []byte{1, 2, 3}}

	s := baseSettings()
	s.Render.Attachments = true

	_, err = svc.Process(context.Background(), s, ev)
	require.NoError(t, err)
	require.Len(t, sink.Jobs(), 1)
	assert.Nil(t, sink.Jobs()[0].Attachment)
}
