package vector

import (
	"context"
	"time"

	pkgerrors "vectorhub/pkg/errors"
	"vectorhub/pkg/logger"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy configures Retry.
type RetryPolicy struct {
	MaxTries        uint          // total attempts, 0 means until MaxElapsed
	InitialInterval time.Duration // delay before the first retry
	MaxInterval     time.Duration // cap on the exponential delay
	MaxElapsed      time.Duration // overall budget, 0 means no limit
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        5,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsed:      time.Minute,
	}
}

// Retry calls fn with exponential backoff while it fails with a retryable
// (connection) error. Any other error stops immediately and is returned
// unchanged. The core itself never retries; this is for callers.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("retrying after connection error", "error", err, "backoff", next)
		}),
	}
	if policy.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(policy.MaxTries))
	}
	if policy.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(policy.MaxElapsed))
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn(ctx)
		if err != nil && !pkgerrors.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
}
