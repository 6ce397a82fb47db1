package exec

import "time"

// RetryPolicy controls per-request retry/backoff.
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	// RetryableStatus lists HTTP status codes that trigger a retry; by
	// default (nil/empty) only transport errors and timeouts retry.
	RetryableStatus map[int]bool
}

// DefaultRetryPolicy is "no retry" (maxAttempts=1).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1, InitialDelay: 200 * time.Millisecond, BackoffMultiplier: 2.0}
}

// DelayForAttempt computes the exponential backoff delay before attempt
// (1-indexed attempt number that just failed): InitialDelay multiplied
// by BackoffMultiplier raised to attempt-1.
func (p RetryPolicy) DelayForAttempt(attempt int) time.Duration {
	if attempt <= 1 {
		return p.InitialDelay
	}
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 2.0
	}
	d := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= mult
	}
	return time.Duration(d)
}

// ShouldRetryStatus reports whether statusCode should trigger a retry
// per the policy's configured set (empty set means never retry on
// status, only on transport errors).
func (p RetryPolicy) ShouldRetryStatus(statusCode int) bool {
	return p.RetryableStatus[statusCode]
}
