package genai

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"

	"github.com/mvidale/fablepress/internal/reliability"
)

// RetryPolicy retries a collaborator call a bounded number of times
// with exponential backoff. Sleep is injectable so tests run without
// real delays.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
	Sleep    func(time.Duration)
}

func DefaultRetryPolicy(attempts int) RetryPolicy {
	if attempts <= 0 {
		attempts = 3
	}
	return RetryPolicy{
		Attempts: attempts,
		Base:     500 * time.Millisecond,
		Cap:      5 * time.Second,
		Sleep:    time.Sleep,
	}
}

// retryableError reports whether a failed call is worth repeating.
// API errors are classified by HTTP status; a 400-class rejection
// (bad request, content policy) will fail identically every time, so
// retrying it only burns paid calls. Errors of unknown shape
// (network, timeouts) stay retryable.
func retryableError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return reliability.IsRetryableHTTPStatus(apiErr.StatusCode)
	}
	return true
}

// Do runs fn until it succeeds, attempts are exhausted, ctx is done,
// or the error is classified as non-retryable. The last error is
// returned on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 0 {
			sleep(reliability.ExponentialBackoff(attempt-1, p.Base, p.Cap))
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if !retryableError(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
