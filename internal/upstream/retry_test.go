package upstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxTries: DefaultRetryMaxTries, Backoff: time.Millisecond}
}

func TestRetryPolicy_SucceedsFirstTry(t *testing.T) {
	attempts, err := fastPolicy().Do(context.Background(), func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryPolicy_FailsOnceThenSucceeds(t *testing.T) {
	var notified []error
	policy := fastPolicy()
	policy.OnRetry = func(err error, wait time.Duration) {
		notified = append(notified, err)
		assert.Equal(t, time.Millisecond, wait)
	}

	calls := 0
	attempts, err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, calls)
	assert.Len(t, notified, 1)
}

func TestRetryPolicy_GivesUpAfterMaxTries(t *testing.T) {
	failure := &Error{Category: CategoryService, StatusCode: 503}

	calls := 0
	attempts, err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return failure
	})

	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, calls)
	var upErr *Error
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, CategoryService, upErr.Category)
}

func TestRetryPolicy_PermanentStopsEarly(t *testing.T) {
	calls := 0
	attempts, err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return backoff.Permanent(errors.New("do not retry"))
	})

	assert.Equal(t, 1, attempts)
	assert.EqualError(t, err, "do not retry")
}

func TestRetryPolicy_NoRetry(t *testing.T) {
	calls := 0
	attempts, err := NoRetry().Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, uint(2), policy.MaxTries)
	assert.Equal(t, 2*time.Second, policy.Backoff)
}
