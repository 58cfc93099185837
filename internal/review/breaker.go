package review

import "time"

// BreakerState is the position of the model-API circuit breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

const (
	breakerFailureThreshold = 5
	breakerCooldown         = 2 * time.Minute
)

// CircuitBreaker is explicit state passed into and out of a review generation
// call rather than held in a package-level singleton, so tests never leak
// breaker state between cases. A nil breaker disables the mechanism.
type CircuitBreaker struct {
	State           BreakerState
	FailureCount    int
	LastFailureTime time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{State: BreakerClosed}
}

// Allow reports whether a call may proceed. An open breaker transitions to
// half-open once the cooldown since the last failure has elapsed, letting a
// single probe call through.
func (b *CircuitBreaker) Allow(now time.Time) bool {
	if b.State != BreakerOpen {
		return true
	}
	if now.Sub(b.LastFailureTime) >= breakerCooldown {
		b.State = BreakerHalfOpen
		return true
	}
	return false
}

// RecordSuccess closes the breaker and clears the failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.State = BreakerClosed
	b.FailureCount = 0
}

// RecordFailure counts a terminal call failure and opens the breaker once the
// threshold is reached. Individual retry attempts inside one call do not
// count; only the call's final outcome does.
func (b *CircuitBreaker) RecordFailure(now time.Time) {
	b.FailureCount++
	b.LastFailureTime = now
	if b.FailureCount >= breakerFailureThreshold {
		b.State = BreakerOpen
	}
}
