package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"hookrelay/internal/constants"
	"hookrelay/internal/delivery"
	"hookrelay/internal/logger"
	"hookrelay/internal/pending"
	"hookrelay/internal/render"
	"hookrelay/pkg/cel"
	"hookrelay/pkg/logging"
	"hookrelay/pkg/metrics"
	"hookrelay/pkg/models"
	"hookrelay/pkg/tracing"
)

// JobSink accepts rendered delivery jobs, in order. A batch is stored
// whole or not at all.
type JobSink interface {
	Enqueue(ctx context.Context, jobs ...delivery.Job) error
}

// AttachmentExtractor yields the optional image of an event.
type AttachmentExtractor interface {
	Extract(ev models.Event) *render.Attachment
}

// ImageExtractor forwards the collector-supplied image, if it is small
// enough.
type ImageExtractor struct {
	MaxBytes int
}

func (x ImageExtractor) Extract(ev models.Event) *render.Attachment {
	if ev.Image == nil || len(ev.Image.Data) == 0 {
		return nil
	}
	if x.MaxBytes > 0 && len(ev.Image.Data) > x.MaxBytes {
		return nil
	}
	return &render.Attachment{
		Filename:    ev.Image.Filename,
		ContentType: ev.Image.ContentType,
		Data:        append([]byte(nil), ev.Image.Data...),
	}
}

type OutcomeKind int

const (
	OutcomeDropped OutcomeKind = iota
	OutcomeFiltered
	OutcomeQueued
	OutcomeSuppressed
	OutcomeHeld
	OutcomeRateLimited
	OutcomeDispatched
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDropped:
		return "dropped"
	case OutcomeFiltered:
		return "filtered"
	case OutcomeQueued:
		return "queued"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeHeld:
		return "held"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeDispatched:
		return "dispatched"
	default:
		return "unknown"
	}
}

// Outcome is the result of one invocation. Jobs holds every job produced,
// including summary jobs from flushed windows and the quiet-hours queue.
type Outcome struct {
	Kind OutcomeKind
	Jobs []delivery.Job

	park *models.PendingItem
}

// Handled reports whether the event was taken care of by the pipeline,
// even if nothing was sent for it right away.
func (o Outcome) Handled() bool {
	return o.Kind != OutcomeDropped && o.Kind != OutcomeFiltered
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithExtractor(x AttachmentExtractor) Option {
	return func(s *Service) { s.extractor = x }
}

func WithStateStore(store *StateStore) Option {
	return func(s *Service) { s.store = store }
}

func WithResolver(r *Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

// Service sequences the pipeline for each incoming event.
type Service struct {
	sink      JobSink
	pending   PendingStore
	extractor AttachmentExtractor
	logger    logger.Logger
	now       func() time.Time

	store      *StateStore
	filter     *Filter
	resolver   *Resolver
	dedup      *DedupGuard
	limiter    *RateLimiter
	aggregator *Aggregator
}

func NewService(sink JobSink, store PendingStore, log logger.Logger, opts ...Option) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	if store == nil {
		store = pending.NewMemoryStore(constants.PendingQueueCap)
	}

	s := &Service{
		sink:      sink,
		pending:   store,
		extractor: ImageExtractor{},
		logger:    log,
		now:       time.Now,
		filter:    NewFilter(evaluator, log),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = NewStateStore(DefaultShards)
	}
	if s.resolver == nil {
		s.resolver = NewResolver(s.filter)
	}
	s.dedup = NewDedupGuard(s.store)
	s.limiter = NewRateLimiter(s.store)
	s.aggregator = NewAggregator(s.store, log)

	return s, nil
}

// Process plans ev and hands the resulting jobs to the sink as one batch.
// When planning or the sink fails, every state change made for ev is
// reverted, so the same event can be retried as if it were new.
func (s *Service) Process(ctx context.Context, settings *Settings, ev models.Event) (Outcome, error) {
	ctx = logging.WithSourceID(logging.WithEventID(ctx, ev.ID), ev.SourceID)
	ctx, span := tracing.GetTracer("dispatch-service").Start(ctx, "dispatch.process")
	defer span.End()

	start := time.Now()
	var rb rollback
	out, err := s.plan(ctx, settings, ev, &rb)
	if err == nil {
		err = s.enqueue(ctx, out.Jobs)
	}
	if err != nil {
		rb.run()
		span.RecordError(err)
		metrics.IncDispatchEvent("error")
		return Outcome{}, err
	}

	// Parking happens after the batch is queued: a failure here leaves
	// nothing to revert, and a retry only parks ev again.
	if err := s.park(ctx, out); err != nil {
		span.RecordError(err)
		metrics.IncDispatchEvent("error")
		return out, err
	}

	span.SetAttributes(
		attribute.String("dispatch.outcome", out.Kind.String()),
		attribute.Int("dispatch.jobs", len(out.Jobs)),
	)
	metrics.IncDispatchEvent(out.Kind.String())
	metrics.ObserveDispatchDuration(time.Since(start), out.Kind.String())

	s.logger.DebugwCtx(ctx, "Event processed",
		"outcome", out.Kind.String(),
		"jobs", len(out.Jobs),
	)
	return out, nil
}

// Plan runs every decision for ev and returns the jobs to send without
// enqueueing them. An event arriving during quiet hours is parked before
// Plan returns. On error no state is left changed.
func (s *Service) Plan(ctx context.Context, settings *Settings, ev models.Event) (Outcome, error) {
	var rb rollback
	out, err := s.plan(ctx, settings, ev, &rb)
	if err == nil {
		err = s.park(ctx, out)
	}
	if err != nil {
		rb.run()
		return Outcome{}, err
	}
	return out, nil
}

func (s *Service) plan(ctx context.Context, settings *Settings, ev models.Event, rb *rollback) (Outcome, error) {
	now := s.now()

	flushed, undo := s.aggregator.flushExpired(now, settings.Aggregate.WindowSeconds)
	rb.add(undo)
	jobs, err := s.dispatchAll(settings, flushed, now, rb)
	if err != nil {
		return Outcome{}, err
	}

	destinations := s.resolver.Resolve(settings, ev)
	if len(destinations) == 0 {
		return Outcome{Kind: OutcomeDropped, Jobs: jobs}, nil
	}

	if !s.filter.Allow(ctx, settings.Filter, ev) {
		return Outcome{Kind: OutcomeFiltered, Jobs: jobs}, nil
	}

	if QuietActive(settings.QuietHours, now) {
		item := models.NewPendingItem(ev, destinations)
		return Outcome{Kind: OutcomeQueued, Jobs: jobs, park: &item}, nil
	}

	released, err := s.releasePending(ctx, settings, now, rb)
	if err != nil {
		return Outcome{}, err
	}
	jobs = append(jobs, released...)

	suppress, undo := s.dedup.suppress(settings.Dedupe, ev, now)
	rb.add(undo)
	if suppress {
		return Outcome{Kind: OutcomeSuppressed, Jobs: jobs}, nil
	}

	decision, undo := s.aggregator.decide(settings.Aggregate, ev, destinations, now)
	rb.add(undo)
	if decision.Kind == Hold {
		return Outcome{Kind: OutcomeHeld, Jobs: jobs}, nil
	}

	allowed, undo := s.limiter.allow(settings.RateLimit, ev.SourceID, now)
	rb.add(undo)
	if !allowed {
		return Outcome{Kind: OutcomeRateLimited, Jobs: jobs}, nil
	}

	own, err := s.render(settings, Dispatch{Event: ev, Destinations: destinations, Count: 1}, s.extractor.Extract(ev), now)
	if err != nil {
		return Outcome{}, err
	}
	jobs = append(jobs, own...)

	return Outcome{Kind: OutcomeDispatched, Jobs: jobs}, nil
}

func (s *Service) park(ctx context.Context, out Outcome) error {
	if out.park == nil {
		return nil
	}
	if err := s.pending.Append(ctx, *out.park); err != nil {
		return fmt.Errorf("failed to park event: %w", err)
	}
	s.recordPendingSize(ctx)
	return nil
}

// Sweep flushes expired windows and, outside quiet hours, the pending
// queue, without an incoming event. Nothing is lost if the sink fails:
// windows and parked items are restored for the next attempt.
func (s *Service) Sweep(ctx context.Context, settings *Settings) ([]delivery.Job, error) {
	now := s.now()
	var rb rollback

	jobs, err := s.sweep(ctx, settings, now, &rb)
	if err == nil {
		err = s.enqueue(ctx, jobs)
	}
	if err != nil {
		rb.run()
		return nil, err
	}

	if len(jobs) > 0 {
		s.logger.InfowCtx(ctx, "Sweep released summary jobs", "jobs", len(jobs))
	}
	return jobs, nil
}

func (s *Service) sweep(ctx context.Context, settings *Settings, now time.Time, rb *rollback) ([]delivery.Job, error) {
	flushed, undo := s.aggregator.flushExpired(now, settings.Aggregate.WindowSeconds)
	rb.add(undo)
	jobs, err := s.dispatchAll(settings, flushed, now, rb)
	if err != nil {
		return nil, err
	}

	if QuietActive(settings.QuietHours, now) {
		return jobs, nil
	}
	released, err := s.releasePending(ctx, settings, now, rb)
	if err != nil {
		return nil, err
	}
	return append(jobs, released...), nil
}

func (s *Service) releasePending(ctx context.Context, settings *Settings, now time.Time, rb *rollback) ([]delivery.Job, error) {
	items, err := s.pending.Drain(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to drain pending queue: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	metrics.SetPendingQueueSize(0)

	rb.add(func() {
		requeueCtx := context.WithoutCancel(ctx)
		if err := s.pending.Requeue(requeueCtx, items); err != nil {
			s.logger.ErrorwCtx(requeueCtx, "Failed to requeue parked events, they are lost",
				"error", err,
				"items", len(items),
			)
			return
		}
		s.recordPendingSize(requeueCtx)
	})

	s.logger.InfowCtx(ctx, "Quiet hours over, releasing parked events", "items", len(items))
	return s.dispatchAll(settings, SummarizePending(items), now, rb)
}

func (s *Service) dispatchAll(settings *Settings, dispatches []Dispatch, now time.Time, rb *rollback) ([]delivery.Job, error) {
	var jobs []delivery.Job
	for _, d := range dispatches {
		allowed, undo := s.limiter.allow(settings.RateLimit, d.Event.SourceID, now)
		rb.add(undo)
		if !allowed {
			s.logger.Debugw("Summary dispatch rate limited", "source_id", d.Event.SourceID, "count", d.Count)
			continue
		}
		out, err := s.render(settings, d, nil, now)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, out...)
	}
	return jobs, nil
}

func (s *Service) render(settings *Settings, d Dispatch, att *render.Attachment, now time.Time) ([]delivery.Job, error) {
	if d.Count > 1 {
		att = nil
	}
	opts := settings.Render
	if d.Released {
		opts.SummaryLabel = render.QuietReleaseLabel
	}
	msg := render.Render(d.Event, d.Count, opts, att)

	payload, err := render.Encode(msg)
	if err != nil {
		return nil, err
	}

	jobs := make([]delivery.Job, 0, len(d.Destinations))
	for _, dst := range d.Destinations {
		jobs = append(jobs, delivery.NewJob(dst, payload, msg.Attachment, d.Event.SourceID, now))
	}

	kind := "single"
	if d.Count > 1 {
		kind = "summary"
	}
	metrics.AddDispatchJobs(kind, len(jobs))
	return jobs, nil
}

func (s *Service) enqueue(ctx context.Context, jobs []delivery.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	if err := s.sink.Enqueue(ctx, jobs...); err != nil {
		return fmt.Errorf("failed to enqueue %d jobs: %w", len(jobs), err)
	}
	return nil
}

func (s *Service) recordPendingSize(ctx context.Context) {
	n, err := s.pending.Len(ctx)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to read pending queue size", "error", err)
		return
	}
	metrics.SetPendingQueueSize(int(n))
}
