package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) IsRetryable() bool {
	return true
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func NewRetryableError(err error) RetryableError {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

type FatalError interface {
	error
	IsFatal() bool
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) IsFatal() bool {
	return true
}

func (e *fatalError) Unwrap() error {
	return e.err
}

func NewFatalError(err error) FatalError {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// ThrottledError is a retryable error carrying the minimum delay requested
// by the remote side (HTTP Retry-After).
type ThrottledError struct {
	Err   error
	After time.Duration
}

func (e *ThrottledError) Error() string {
	return e.Err.Error()
}

func (e *ThrottledError) IsRetryable() bool {
	return true
}

func (e *ThrottledError) Unwrap() error {
	return e.Err
}

func NewThrottledError(err error, after time.Duration) error {
	if err == nil {
		return nil
	}
	return &ThrottledError{Err: err, After: after}
}

// IsFatal reports whether err, or anything it wraps, was marked fatal.
func IsFatal(err error) bool {
	var fatalErr FatalError
	return errors.As(err, &fatalErr) && fatalErr.IsFatal()
}

type Policy struct {
	MaxAttempts         int
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	MaxElapsedTime      time.Duration
	RandomizationFactor float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:         3,
		InitialInterval:     1 * time.Second,
		MaxInterval:         30 * time.Second,
		Multiplier:          2.0,
		MaxElapsedTime:      5 * time.Minute,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
	}
}

// DeliveryPolicy is the webhook retry schedule: 10s doubling, no jitter, no
// elapsed-time cap so that only MaxAttempts ends the retries.
func DeliveryPolicy(maxAttempts int, maxInterval time.Duration) Policy {
	return Policy{
		MaxAttempts:     maxAttempts,
		InitialInterval: 10 * time.Second,
		MaxInterval:     maxInterval,
		Multiplier:      2.0,
	}
}

func Retry(ctx context.Context, policy Policy, fn func() error) error {
	return RetryWithCallback(ctx, policy, fn, nil)
}

// RetryWithCallback runs fn until it succeeds, returns a fatal error, the
// context ends or MaxAttempts is reached. onRetry is invoked before each
// sleep with the delay actually used.
func RetryWithCallback(ctx context.Context, policy Policy, fn func() error, onRetry func(attempt int, err error, nextDelay time.Duration)) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}

	floor := &retryAfterBackOff{BackOff: newExponential(policy)}

	var b backoff.BackOff = floor
	b = backoff.WithContext(b, ctx)
	b = backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1))

	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		floor.last = err

		if err == nil {
			return nil
		}

		if IsFatal(err) {
			return backoff.Permanent(err)
		}

		var retryableErr RetryableError
		if !errors.As(err, &retryableErr) {
			return NewRetryableError(err)
		}

		return err
	}

	var notify backoff.Notify
	if onRetry != nil {
		notify = func(err error, next time.Duration) {
			onRetry(attempt, err, next)
		}
	}

	err := backoff.RetryNotify(operation, b, notify)

	var retryableErr *retryableError
	if errors.As(err, &retryableErr) && err == error(retryableErr) {
		return retryableErr.err
	}
	return err
}

// retryAfterBackOff raises the next delay to the Retry-After hint of the
// last error when the hint is longer.
type retryAfterBackOff struct {
	backoff.BackOff
	last error
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}

	var throttled *ThrottledError
	if errors.As(b.last, &throttled) && throttled.After > next {
		return throttled.After
	}
	return next
}
