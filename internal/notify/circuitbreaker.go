package notify

import (
	"sync"
	"time"
)

// CircuitState is the position of a CircuitBreaker. The values double as the
// circuit state gauge reading.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker stops hammering a failing sink. Closed, it counts
// consecutive failures and opens at threshold. Open, it rejects everything
// until cooldown has passed and then admits one trial delivery in the
// half-open state. The trial's outcome decides: success closes the circuit,
// failure reopens it for another cooldown.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state      CircuitState
	failures   int
	reopenAt   time.Time
	trialTaken bool
}

// NewCircuitBreaker creates a closed breaker. Non-positive arguments fall
// back to 5 failures and a one-minute cooldown.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a delivery may be attempted now. Once the cooldown
// has elapsed an open circuit moves to half-open and admits a single trial;
// further calls are rejected until that trial is recorded.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Before(cb.reopenAt) {
			return false
		}
		cb.state = CircuitHalfOpen
		cb.trialTaken = true
		return true
	default:
		if cb.trialTaken {
			return false
		}
		cb.trialTaken = true
		return true
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.trialTaken = false
}

// RecordFailure counts a failure. A closed circuit opens at threshold; a
// half-open circuit reopens on its first failure.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.trip()
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.threshold {
			cb.trip()
		}
	}
}

// trip opens the circuit. Callers hold mu.
func (cb *CircuitBreaker) trip() {
	cb.state = CircuitOpen
	cb.reopenAt = cb.now().Add(cb.cooldown)
	cb.trialTaken = false
}

// State returns the current circuit position without advancing it.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
