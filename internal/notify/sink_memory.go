package notify

import (
	"context"
	"sync"
)

// Delivery is one event observed by MemorySink.
type Delivery struct {
	Channel string
	Payload EventPayload
}

// MemorySink records deliveries in memory. FailWith makes subsequent
// deliveries fail, which lets tests exercise retry and breaker paths.
type MemorySink struct {
	mu         sync.Mutex
	deliveries []Delivery
	attempts   int
	err        error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Deliver(_ context.Context, channel string, payload EventPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	if s.err != nil {
		return s.err
	}
	s.deliveries = append(s.deliveries, Delivery{Channel: channel, Payload: payload})
	return nil
}

// FailWith sets the error returned by Deliver; nil restores success.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Deliveries returns a copy of the successful deliveries so far.
func (s *MemorySink) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deliveries...)
}

// Attempts returns how many times Deliver was called.
func (s *MemorySink) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
