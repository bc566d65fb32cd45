package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"hookrelay/internal/config"
	"hookrelay/internal/constants"
	"hookrelay/internal/render"
	"hookrelay/pkg/errors"
	"hookrelay/pkg/retry"
	"hookrelay/pkg/tracing"
)

// Executor performs one delivery attempt of a job.
type Executor interface {
	Execute(ctx context.Context, job Job) (Result, error)
}

type Result struct {
	StatusCode int
	Duration   time.Duration
}

// HTTPExecutor POSTs jobs to their webhook URL. Errors it returns are
// classified for pkg/retry: 4xx other than 429 are fatal, 429 carries the
// Retry-After hint, everything else is retryable.
type HTTPExecutor struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	now         func() time.Time
}

func NewHTTPExecutor(cfg config.DeliveryConfig) *HTTPExecutor {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	maxBody := cfg.MaxResponseBodySize
	if maxBody <= 0 {
		maxBody = 4096
	}
	return &HTTPExecutor{
		client:      &http.Client{Timeout: timeout},
		userAgent:   cfg.UserAgent,
		maxBodySize: maxBody,
		now:         time.Now,
	}
}

func (e *HTTPExecutor) Execute(ctx context.Context, job Job) (Result, error) {
	body, contentType, err := encodeBody(job)
	if err != nil {
		return Result{}, retry.NewFatalError(err)
	}

	ctx, span := tracing.StartClientSpan(ctx, "delivery.post",
		attribute.String("job.id", job.ID),
		attribute.String("source.id", job.SourceID),
		attribute.Int("delivery.attempt", job.Attempts),
	)

	start := time.Now()
	res, err := e.post(ctx, job.DestinationURL, body, contentType)
	res.Duration = time.Since(start)
	if res.StatusCode > 0 {
		span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	}
	tracing.EndSpan(span, err)
	return res, err
}

func (e *HTTPExecutor) post(ctx context.Context, url string, body []byte, contentType string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, errors.ErrDeliveryRejected.
			WithCause(err).
			WithDetail("message", "invalid destination url")
	}
	req.Header.Set("Content-Type", contentType)
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, errors.ErrDeliveryFailed.WithCause(err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, e.maxBodySize))
	res := Result{StatusCode: resp.StatusCode}

	switch {
	case resp.StatusCode >= constants.HTTPStatusOKMin && resp.StatusCode < constants.HTTPStatusOKMax:
		return res, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		after := retry.ParseRetryAfter(resp.Header.Get("Retry-After"), e.now())
		return res, retry.NewThrottledError(
			errors.ErrDeliveryThrottled.
				WithDetail("status_code", resp.StatusCode).
				WithDetail("retry_after", after.String()),
			after,
		)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return res, errors.ErrDeliveryRejected.
			WithDetail("status_code", resp.StatusCode).
			WithDetail("response", string(snippet))
	default:
		return res, errors.ErrDeliveryFailed.
			WithDetail("status_code", resp.StatusCode).
			WithDetail("response", string(snippet))
	}
}

func encodeBody(job Job) ([]byte, string, error) {
	if job.Attachment == nil {
		return job.Payload, "application/json", nil
	}
	body, contentType, err := render.EncodeMultipart(job.Payload, job.Attachment)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	return body, contentType, nil
}

// IsPermanent reports whether a delivery error must not be retried.
func IsPermanent(err error) bool {
	return err != nil && retry.IsFatal(err)
}
