package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	retryInitialInterval = 100 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
)

// Retry runs op with exponential backoff until it succeeds, ctx is done, or
// maxElapsed passes. Wrap an error with backoff.Permanent to stop early.
// Only use it for idempotent operations.
func Retry(ctx context.Context, maxElapsed time.Duration, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval
	b.MaxElapsedTime = maxElapsed
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// Permanent marks err as non-retryable for Retry.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
