package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agora/metrics"
	"agora/storage"
	"github.com/cenkalti/backoff/v4"
)

// ErrContention is returned when a conditional update keeps losing races
var ErrContention = errors.New("too much contention, try again")

// RetryPolicy bounds how often a lost conditional update is re-planned
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
	}
}

// retryOnConflict reruns attempt while it fails with storage.ErrConflict.
// Any other error stops immediately and is returned unchanged.
func retryOnConflict(ctx context.Context, policy RetryPolicy, operation string, attempt func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(policy.InitialInterval),
		backoff.WithMaxInterval(policy.MaxInterval),
		backoff.WithMaxElapsedTime(0),
	), policy.MaxRetries), ctx)

	tries := 0
	err := backoff.Retry(func() error {
		if tries > 0 {
			metrics.ConditionalUpdateRetries.WithLabelValues(operation).Inc()
		}
		tries++

		err := attempt()
		if err == nil || errors.Is(err, storage.ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, b)

	if errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("%s: %w", operation, ErrContention)
	}
	return err
}
