package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrBufferFull is returned by Emit when the buffer has no free slot.
	ErrBufferFull = errors.New("notify: buffer full")
	// ErrClosed is returned by Emit after Close has been called.
	ErrClosed = errors.New("notify: publisher closed")
)

const (
	defaultBufferSize    = 1024
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 200 * time.Millisecond
)

type envelope struct {
	channel string
	payload EventPayload
}

// AsyncPublisher queues events in a bounded buffer and delivers them from a
// single background worker. Emit never waits on the sink.
type AsyncPublisher struct {
	sink    Sink
	logger  *slog.Logger
	metrics *Metrics
	breaker *CircuitBreaker

	bufferSize int
	attempts   int
	backoff    time.Duration

	mu     sync.RWMutex
	closed bool
	inbox  chan envelope

	runCtx    context.Context
	cancelRun context.CancelFunc
	done      chan struct{}
}

// Option configures an AsyncPublisher.
type Option func(*AsyncPublisher)

// WithBufferSize sets how many undelivered events may be queued.
func WithBufferSize(n int) Option {
	return func(p *AsyncPublisher) {
		if n > 0 {
			p.bufferSize = n
		}
	}
}

// WithRetry sets the delivery attempts per event and the base backoff between
// them. The wait before attempt n+1 is n*backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(p *AsyncPublisher) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if backoff >= 0 {
			p.backoff = backoff
		}
	}
}

// WithCircuitBreaker guards the sink with cb.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *AsyncPublisher) {
		p.breaker = cb
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *AsyncPublisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *AsyncPublisher) {
		p.metrics = m
	}
}

// NewAsyncPublisher starts the delivery worker. Call Close to drain it.
func NewAsyncPublisher(sink Sink, opts ...Option) *AsyncPublisher {
	p := &AsyncPublisher{
		sink:       sink,
		logger:     slog.Default(),
		bufferSize: defaultBufferSize,
		attempts:   defaultRetryAttempts,
		backoff:    defaultRetryBackoff,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.inbox = make(chan envelope, p.bufferSize)
	p.runCtx, p.cancelRun = context.WithCancel(context.Background())

	go p.run()
	return p
}

// Emit queues the event and returns immediately. The error only reports
// whether the event was queued; delivery failures are handled by the worker.
func (p *AsyncPublisher) Emit(ctx context.Context, channel string, payload EventPayload) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.metrics.incDropped(channel, DropClosed)
		return ErrClosed
	}

	select {
	case p.inbox <- envelope{channel: channel, payload: payload}:
		p.metrics.incEnqueued(channel)
		return nil
	default:
		p.metrics.incDropped(channel, DropBufferFull)
		p.logger.WarnContext(ctx, "notification dropped, buffer full", "channel", channel)
		return ErrBufferFull
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
// If ctx ends first, in-flight retries are abandoned and ctx.Err is returned.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		p.cancelRun()
		return nil
	case <-ctx.Done():
		p.cancelRun()
		<-p.done
		return ctx.Err()
	}
}

// Pending returns the number of queued, undelivered events.
func (p *AsyncPublisher) Pending() int {
	return len(p.inbox)
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for env := range p.inbox {
		p.deliver(env)
	}
}

func (p *AsyncPublisher) deliver(env envelope) {
	attempts := p.attempts
	if p.breaker != nil {
		allowed := p.breaker.Allow()
		state := p.breaker.State()
		p.metrics.setCircuitState(state)
		if !allowed {
			p.metrics.incDropped(env.channel, DropCircuitOpen)
			p.logger.Warn("notification dropped, sink circuit open", "channel", env.channel)
			return
		}
		if state == CircuitHalfOpen {
			attempts = 1
		}
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = p.sink.Deliver(p.runCtx, env.channel, env.payload); err == nil {
			p.recordSuccess()
			p.metrics.incDelivered(env.channel)
			return
		}
		if attempt == attempts || !p.wait(time.Duration(attempt)*p.backoff) {
			break
		}
	}

	p.recordFailure()
	p.metrics.incFailed(env.channel)
	p.logger.Error("notification delivery failed",
		"channel", env.channel,
		"attempts", attempts,
		"error", err,
	)
}

// wait sleeps for d unless the publisher is being torn down.
func (p *AsyncPublisher) wait(d time.Duration) bool {
	if d <= 0 {
		return p.runCtx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.runCtx.Done():
		return false
	}
}

func (p *AsyncPublisher) recordSuccess() {
	if p.breaker == nil {
		return
	}
	p.breaker.RecordSuccess()
	p.metrics.setCircuitState(p.breaker.State())
}

func (p *AsyncPublisher) recordFailure() {
	if p.breaker == nil {
		return
	}
	p.breaker.RecordFailure()
	p.metrics.setCircuitState(p.breaker.State())
}
