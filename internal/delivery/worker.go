package delivery

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"hookrelay/internal/config"
	"hookrelay/internal/constants"
	"hookrelay/internal/logger"
	"hookrelay/pkg/circuitbreaker"
	"hookrelay/pkg/errors"
	"hookrelay/pkg/logging"
	"hookrelay/pkg/metrics"
	"hookrelay/pkg/models"
	"hookrelay/pkg/retry"
)

const (
	defaultPollInterval = time.Second
	failureBodyLimit    = 2048
)

// Worker drains the queue one job at a time. A job is acked once it was
// delivered, failed permanently or ran out of attempts; when ctx ends in
// the middle of a job the job stays in-flight and is replayed on restart.
type Worker struct {
	queue    Queue
	exec     Executor
	limiter  *rate.Limiter
	breakers *circuitbreaker.Registry
	policy   retry.Policy
	attempts AttemptLog
	failures FailurePublisher
	logger   logger.Logger
	poll     time.Duration
	now      func() time.Time
}

type WorkerOption func(*Worker)

func WithPolicy(p retry.Policy) WorkerOption {
	return func(w *Worker) { w.policy = p }
}

func WithLimiter(l *rate.Limiter) WorkerOption {
	return func(w *Worker) { w.limiter = l }
}

// WithBreakers guards every destination host with its own breaker.
func WithBreakers(r *circuitbreaker.Registry) WorkerOption {
	return func(w *Worker) { w.breakers = r }
}

func WithAttemptLog(l AttemptLog) WorkerOption {
	return func(w *Worker) { w.attempts = l }
}

func WithFailurePublisher(p FailurePublisher) WorkerOption {
	return func(w *Worker) { w.failures = p }
}

func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.poll = d }
}

func NewWorker(queue Queue, exec Executor, log logger.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:    queue,
		exec:     exec,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		policy:   PolicyFromConfig(config.RetryConfig{}),
		attempts: NopAttemptLog{},
		logger:   log,
		poll:     defaultPollInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PolicyFromConfig builds the delivery retry policy from the config section.
func PolicyFromConfig(cfg config.RetryConfig) retry.Policy {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = constants.DefaultRetryMaxAttempts
	}
	maxInterval := cfg.MaxInterval
	if maxInterval <= 0 {
		maxInterval = constants.DefaultRetryMaxInterval
	}
	p := retry.DeliveryPolicy(maxAttempts, maxInterval)
	if cfg.InitialInterval > 0 {
		p.InitialInterval = cfg.InitialInterval
	}
	if cfg.Multiplier > 0 {
		p.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		p.MaxElapsedTime = cfg.MaxElapsedTime
	}
	return p
}

// LimiterFromConfig returns the global send pacing limiter. A non-positive
// rate disables pacing.
func LimiterFromConfig(cfg config.DeliveryConfig) *rate.Limiter {
	if cfg.RatePerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
}

// BreakersFromConfig returns nil when circuit breaking is disabled.
func BreakersFromConfig(cfg config.CircuitBreakerConfig) *circuitbreaker.Registry {
	if !cfg.Enabled {
		return nil
	}
	tmpl := circuitbreaker.DefaultConfig("webhook")
	if cfg.MaxRequests > 0 {
		tmpl.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		tmpl.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		tmpl.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		tmpl.ReadyToTrip = circuitbreaker.RatioTrip(cfg.MinRequests, cfg.FailureRatio)
	}
	// A rejected payload says nothing about the health of the destination.
	tmpl.IsSuccessful = func(err error) bool {
		return err == nil || IsPermanent(err)
	}
	return circuitbreaker.NewRegistry(tmpl)
}

func (w *Worker) Run(ctx context.Context) error {
	ctx = logging.WithServiceName(ctx, "delivery-worker")

	if n, err := w.queue.Recover(ctx); err != nil {
		w.logger.ErrorwCtx(ctx, "Failed to recover in-flight jobs", "error", err)
	} else if n > 0 {
		w.logger.InfowCtx(ctx, "Recovered in-flight jobs", "count", n)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		job, ok, err := w.queue.Next(ctx, w.poll)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.ErrorwCtx(ctx, "Failed to read delivery queue", "error", err)
			sleep(ctx, w.poll)
			continue
		}
		if ok {
			w.Deliver(ctx, job)
		}

		if n, err := w.queue.Len(ctx); err == nil {
			metrics.SetDeliveryQueueSize(n)
		}
	}
}

// Deliver runs all attempts of job and acks it unless ctx ended first.
func (w *Worker) Deliver(ctx context.Context, job Job) {
	ctx = logging.WithSourceID(ctx, job.SourceID)
	if !job.EnqueuedAt.IsZero() {
		metrics.ObserveDeliveryQueueWait(w.now().Sub(job.EnqueuedAt))
	}

	var last Result
	err := retry.RetryWithCallback(ctx, w.policy, func() error {
		if err := w.limiter.Wait(ctx); err != nil {
			return retry.NewFatalError(err)
		}
		job.Attempts++
		res, err := w.attempt(ctx, job)
		last = res
		w.record(ctx, job, res, err)
		return err
	}, func(attempt int, err error, next time.Duration) {
		metrics.IncRetryAttempt("delivery-worker", "webhook")
		w.logger.WarnwCtx(ctx, "Delivery attempt failed, retrying",
			"job_id", job.ID,
			"attempt", attempt,
			"next_delay", next,
			"error", err,
		)
	})

	if ctx.Err() != nil {
		w.logger.InfowCtx(ctx, "Delivery interrupted, job left in flight", "job_id", job.ID)
		return
	}

	if err != nil {
		w.fail(ctx, job, last, err)
	} else {
		w.logger.DebugwCtx(ctx, "Delivered", "job_id", job.ID, "attempts", job.Attempts)
	}

	if ackErr := w.queue.Ack(ctx, job); ackErr != nil {
		w.logger.ErrorwCtx(ctx, "Failed to ack job", "job_id", job.ID, "error", ackErr)
	}
}

func (w *Worker) attempt(ctx context.Context, job Job) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.RecoverPanic(r)
		}
	}()

	if w.breakers == nil {
		return w.exec.Execute(ctx, job)
	}

	cb := w.breakers.Get(hostOf(job.DestinationURL))
	out, err := cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		r, execErr := w.exec.Execute(ctx, job)
		return r, execErr
	})
	if circuitbreaker.IsOpenError(err) {
		return Result{}, errors.ErrDestinationBlocked.
			WithCause(err).
			WithDetail("breaker", cb.Name())
	}
	if r, ok := out.(Result); ok {
		res = r
	}
	return res, err
}

func (w *Worker) record(ctx context.Context, job Job, res Result, err error) {
	status := AttemptDelivered
	switch {
	case err == nil:
		metrics.IncDelivery("success")
		metrics.ObserveDeliveryDuration("success", res.Duration)
	case IsPermanent(err):
		status = AttemptFailed
		metrics.IncDelivery("permanent_failure")
		metrics.ObserveDeliveryDuration("permanent_failure", res.Duration)
	default:
		status = AttemptRetrying
		metrics.IncDelivery("transient_failure")
		metrics.ObserveDeliveryDuration("transient_failure", res.Duration)
	}

	a := Attempt{
		JobID:          job.ID,
		SourceID:       job.SourceID,
		DestinationURL: job.DestinationURL,
		Attempt:        job.Attempts,
		Status:         status,
		StatusCode:     res.StatusCode,
		DurationMs:     res.Duration.Milliseconds(),
		CreatedAt:      w.now().UTC(),
	}
	if err != nil {
		a.Error = err.Error()
	}
	if recErr := w.attempts.Record(context.WithoutCancel(ctx), a); recErr != nil {
		w.logger.WarnwCtx(ctx, "Failed to record delivery attempt", "job_id", job.ID, "error", recErr)
	}
}

func (w *Worker) fail(ctx context.Context, job Job, last Result, err error) {
	permanent := IsPermanent(err)
	w.logger.ErrorwCtx(ctx, "Delivery failed",
		"job_id", job.ID,
		"destination", redactURL(job.DestinationURL),
		"attempts", job.Attempts,
		"permanent", permanent,
		"error", err,
	)

	if !permanent {
		a := Attempt{
			JobID:          job.ID,
			SourceID:       job.SourceID,
			DestinationURL: job.DestinationURL,
			Attempt:        job.Attempts,
			Status:         AttemptFailed,
			StatusCode:     last.StatusCode,
			Error:          fmt.Sprintf("gave up after %d attempts: %v", job.Attempts, err),
			CreatedAt:      w.now().UTC(),
		}
		a.ID = fmt.Sprintf("%s:final", job.ID)
		if recErr := w.attempts.Record(ctx, a); recErr != nil {
			w.logger.WarnwCtx(ctx, "Failed to record delivery attempt", "job_id", job.ID, "error", recErr)
		}
	}

	if w.failures == nil {
		return
	}

	payload := job.Payload
	if len(payload) > failureBodyLimit {
		payload = payload[:failureBodyLimit]
	}
	f := models.DeliveryFailure{
		JobID:          job.ID,
		SourceID:       job.SourceID,
		DestinationURL: job.DestinationURL,
		Attempts:       job.Attempts,
		StatusCode:     last.StatusCode,
		Reason:         err.Error(),
		Permanent:      permanent,
		FailedAt:       w.now().UTC(),
		Payload:        payload,
	}
	if pubErr := w.failures.PublishFailure(ctx, f); pubErr != nil {
		w.logger.ErrorwCtx(ctx, "Failed to publish delivery failure", "job_id", job.ID, "error", pubErr)
		return
	}
	metrics.IncDLQMessage("delivery-worker", "webhook", failureReason(permanent))
}

func failureReason(permanent bool) string {
	if permanent {
		return "rejected"
	}
	return "max_retries_exceeded"
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

// redactURL drops the path of a webhook URL, which usually carries its token.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid-url"
	}
	return u.Scheme + "://" + u.Host
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
