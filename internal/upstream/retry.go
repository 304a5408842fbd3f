package upstream

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultRetryBackoff is the fixed pause before the second attempt.
	DefaultRetryBackoff = 2 * time.Second

	// DefaultRetryMaxTries is the total number of attempts, first try included.
	DefaultRetryMaxTries = 2
)

// RetryPolicy retries an operation a fixed number of times with a constant
// pause between attempts.
type RetryPolicy struct {
	MaxTries uint
	Backoff  time.Duration

	// OnRetry is called before each pause with the error that caused it.
	OnRetry func(err error, wait time.Duration)
}

// DefaultRetryPolicy retries once after two seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries: DefaultRetryMaxTries,
		Backoff:  DefaultRetryBackoff,
	}
}

// NoRetry runs operations exactly once.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxTries: 1}
}

// Do runs op until it succeeds or the attempts are exhausted and returns the
// number of attempts made together with the last error. Wrap an error with
// backoff.Permanent to stop early.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	maxTries := p.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}

	attempts := 0
	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Backoff)),
		backoff.WithMaxTries(maxTries),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(p.OnRetry))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		return struct{}{}, op(ctx)
	}, opts...)

	return attempts, err
}
