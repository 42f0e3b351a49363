package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(threshold int) (*CircuitBreaker, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(threshold, time.Minute)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(2)

	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State(), "one failure stays below threshold")

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	cb2, _ := newTestBreaker(2)
	cb2.RecordFailure()
	cb2.RecordSuccess()
	cb2.RecordFailure()
	assert.Equal(t, CircuitClosed, cb2.State(), "success resets the failure count")
}

func TestCircuitBreakerHalfOpenReopensOnFirstFailure(t *testing.T) {
	cb, now := newTestBreaker(3)
	for range 3 {
		cb.RecordFailure()
	}
	require.Equal(t, CircuitOpen, cb.State())

	*now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow(), "cooldown elapsed admits a trial")
	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.False(t, cb.Allow(), "only one trial while half-open")

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State(), "a single half-open failure reopens")
	assert.False(t, cb.Allow())

	*now = now.Add(30 * time.Second)
	assert.False(t, cb.Allow(), "reopening starts a fresh cooldown")
}

func TestCircuitBreakerHalfOpenClosesOnSuccess(t *testing.T) {
	cb, now := newTestBreaker(1)
	cb.RecordFailure()
	*now = now.Add(2 * time.Minute)

	require.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())
}

func TestCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker(0, 0)
	assert.Equal(t, 5, cb.threshold)
	assert.Equal(t, time.Minute, cb.cooldown)
	assert.Equal(t, "closed", cb.State().String())
	assert.Equal(t, "half_open", CircuitHalfOpen.String())
}
