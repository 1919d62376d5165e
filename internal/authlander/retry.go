package authlander

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy defines how often and how patiently failed idempotent requests are repeated.
// Only transport failures and 5xx responses are retried.
type RetryPolicy struct {
	// MaxAttempts is the total amount of attempts including the first one; values < 1 are treated as 1
	MaxAttempts int

	// Backoff is the delay before the second attempt; it doubles for every further attempt
	Backoff time.Duration

	// MaxBackoff caps the delay between two attempts if positive
	MaxBackoff time.Duration
}

// NoRetry is the retry policy performing exactly one attempt
var NoRetry = RetryPolicy{MaxAttempts: 1}

func (policy RetryPolicy) attempts() int {
	if policy.MaxAttempts < 1 {
		return 1
	}
	return policy.MaxAttempts
}

// backOff builds the backoff schedule of the policy bound to ctx
func (policy RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = policy.Backoff
	exponential.Multiplier = 2
	exponential.RandomizationFactor = 0
	exponential.MaxElapsedTime = 0
	exponential.MaxInterval = time.Duration(math.MaxInt64)
	if policy.MaxBackoff > 0 {
		exponential.MaxInterval = policy.MaxBackoff
	}

	return backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(policy.attempts()-1)), ctx)
}
