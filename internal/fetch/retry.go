package fetch

import (
	"context"
	"time"

	"github.com/ppiankov/truthlayer/internal/logging"
)

const maxBackoff = 30 * time.Second

// SleepFunc waits for d or until ctx ends
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the default SleepFunc
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryingFetcher retries transient failures with exponential backoff
type RetryingFetcher struct {
	next        Fetcher
	maxAttempts int
	backoff     time.Duration
	sleep       SleepFunc
}

// NewRetryingFetcher wraps next. maxAttempts counts the first try.
func NewRetryingFetcher(next Fetcher, maxAttempts int, initialBackoff time.Duration) *RetryingFetcher {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if initialBackoff <= 0 {
		initialBackoff = time.Second
	}
	return &RetryingFetcher{
		next:        next,
		maxAttempts: maxAttempts,
		backoff:     initialBackoff,
		sleep:       sleepContext,
	}
}

// WithSleep replaces the sleep function (tests)
func (r *RetryingFetcher) WithSleep(sleep SleepFunc) *RetryingFetcher {
	r.sleep = sleep
	return r
}

// Fetch calls the wrapped fetcher until success, a permanent failure, or attempts run out
func (r *RetryingFetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	backoff := r.backoff

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		doc, err := r.next.Fetch(ctx, url)
		if err == nil {
			doc.Attempts = attempt
			return doc, nil
		}
		lastErr = err

		fe, ok := AsFetchError(err)
		if !ok || !fe.Retryable() || attempt == r.maxAttempts {
			break
		}

		logging.New("fetch").Debug("retrying source fetch",
			"url", url, "attempt", attempt, "backoff", backoff, "error", err)

		if err := r.sleep(ctx, backoff); err != nil {
			return nil, err
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return nil, lastErr
}
