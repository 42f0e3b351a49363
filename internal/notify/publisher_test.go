package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func samplePayload(title string) EventPayload {
	return EventPayload{
		Title:       title,
		Description: "Plants convert light to energy",
		ShareLink:   "http://localhost:3001/flashcards/share/abc",
		Attribute:   "biology",
	}
}

// gateSink blocks every delivery until release is closed.
type gateSink struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	inner   *MemorySink
}

func newGateSink() *gateSink {
	return &gateSink{started: make(chan struct{}), release: make(chan struct{}), inner: NewMemorySink()}
}

func (g *gateSink) Deliver(ctx context.Context, channel string, payload EventPayload) error {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.inner.Deliver(ctx, channel, payload)
}

func TestAsyncPublisher_DeliversInBackground(t *testing.T) {
	sink := NewMemorySink()
	pub := NewAsyncPublisher(sink, WithLogger(discardLogger()))

	require.NoError(t, pub.Emit(context.Background(), ChannelCardCreated, samplePayload("Photosynthesis")))
	require.NoError(t, pub.Close(context.Background()))

	deliveries := sink.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Equal(t, ChannelCardCreated, deliveries[0].Channel)
	assert.Equal(t, samplePayload("Photosynthesis"), deliveries[0].Payload)
}

func TestAsyncPublisher_EmitDoesNotWaitForSink(t *testing.T) {
	sink := newGateSink()
	pub := NewAsyncPublisher(sink, WithLogger(discardLogger()))

	done := make(chan error, 1)
	go func() { done <- pub.Emit(context.Background(), ChannelCardUpdated, samplePayload("t")) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a stalled sink")
	}

	close(sink.release)
	require.NoError(t, pub.Close(context.Background()))
	assert.Len(t, sink.inner.Deliveries(), 1)
}

func TestAsyncPublisher_DrainsOnClose(t *testing.T) {
	sink := NewMemorySink()
	pub := NewAsyncPublisher(sink, WithBufferSize(100), WithLogger(discardLogger()))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), ChannelCardCreated, samplePayload("t")))
	}
	require.NoError(t, pub.Close(context.Background()))

	assert.Len(t, sink.Deliveries(), 10, "all events should be drained on close")
	assert.Zero(t, pub.Pending())
}

func TestAsyncPublisher_BufferFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	sink := newGateSink()
	pub := NewAsyncPublisher(sink, WithBufferSize(1), WithLogger(discardLogger()), WithMetrics(metrics))

	require.NoError(t, pub.Emit(context.Background(), ChannelCardCreated, samplePayload("in flight")))
	<-sink.started
	require.NoError(t, pub.Emit(context.Background(), ChannelCardCreated, samplePayload("queued")))

	err := pub.Emit(context.Background(), ChannelCardCreated, samplePayload("overflow"))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Dropped.WithLabelValues(ChannelCardCreated, DropBufferFull)))

	close(sink.release)
	require.NoError(t, pub.Close(context.Background()))
	assert.Len(t, sink.inner.Deliveries(), 2)
}

func TestAsyncPublisher_EmitAfterClose(t *testing.T) {
	pub := NewAsyncPublisher(NewMemorySink(), WithLogger(discardLogger()))
	require.NoError(t, pub.Close(context.Background()))
	require.NoError(t, pub.Close(context.Background()), "close is idempotent")

	err := pub.Emit(context.Background(), ChannelCardDeleted, samplePayload("late"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAsyncPublisher_RetriesUntilAttemptsExhausted(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	sink := NewMemorySink()
	sink.FailWith(errors.New("broker unavailable"))
	pub := NewAsyncPublisher(sink,
		WithRetry(3, 0),
		WithLogger(discardLogger()),
		WithMetrics(metrics),
	)

	require.NoError(t, pub.Emit(context.Background(), ChannelCardUpdated, samplePayload("t")))
	require.NoError(t, pub.Close(context.Background()))

	assert.Equal(t, 3, sink.Attempts())
	assert.Empty(t, sink.Deliveries())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Failed.WithLabelValues(ChannelCardUpdated)))
}

func TestAsyncPublisher_CircuitBreakerDropsWhileOpen(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	sink := NewMemorySink()
	sink.FailWith(errors.New("broker unavailable"))
	pub := NewAsyncPublisher(sink,
		WithRetry(1, 0),
		WithCircuitBreaker(NewCircuitBreaker(2, time.Hour)),
		WithLogger(discardLogger()),
		WithMetrics(metrics),
	)

	for range 5 {
		require.NoError(t, pub.Emit(context.Background(), ChannelCardCreated, samplePayload("t")))
	}
	require.NoError(t, pub.Close(context.Background()))

	assert.Equal(t, 2, sink.Attempts(), "sink must not be called once the circuit opens")
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Dropped.WithLabelValues(ChannelCardCreated, DropCircuitOpen)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CircuitState))
}

// flakySink fails the first n deliveries and reports the circuit gauge seen
// at every attempt.
type flakySink struct {
	mu       sync.Mutex
	failures int
	gauge    prometheus.Gauge
	observed []float64
	inner    *MemorySink
}

func (f *flakySink) Deliver(ctx context.Context, channel string, payload EventPayload) error {
	f.mu.Lock()
	f.observed = append(f.observed, testutil.ToFloat64(f.gauge))
	fail := f.failures > 0
	f.failures--
	f.mu.Unlock()
	if fail {
		return errors.New("broker unavailable")
	}
	return f.inner.Deliver(ctx, channel, payload)
}

func TestAsyncPublisher_HalfOpenTrialDecidesCircuit(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	sink := &flakySink{failures: 4, gauge: metrics.CircuitState, inner: NewMemorySink()}

	// Every clock read moves two minutes, past the one-minute cooldown.
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	breaker := NewCircuitBreaker(1, time.Minute)
	breaker.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(2 * time.Minute)
		return now
	}

	pub := NewAsyncPublisher(sink,
		WithRetry(3, 0),
		WithCircuitBreaker(breaker),
		WithLogger(discardLogger()),
		WithMetrics(metrics),
	)
	for _, title := range []string{"opens", "trial fails", "trial succeeds", "closed"} {
		require.NoError(t, pub.Emit(context.Background(), ChannelCardCreated, samplePayload(title)))
	}
	require.NoError(t, pub.Close(context.Background()))

	assert.Equal(t, []float64{0, 0, 0, 2, 2, 0}, sink.observed,
		"half-open trials get one attempt and the gauge tracks the transition made by Allow")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Failed.WithLabelValues(ChannelCardCreated)))
	require.Len(t, sink.inner.Deliveries(), 2)
	assert.Equal(t, "trial succeeds", sink.inner.Deliveries()[0].Payload.Title)
	assert.Equal(t, CircuitClosed, breaker.State())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CircuitState))
}

func TestAsyncPublisher_CloseHonoursContext(t *testing.T) {
	sink := newGateSink()
	pub := NewAsyncPublisher(sink, WithLogger(discardLogger()))
	require.NoError(t, pub.Emit(context.Background(), ChannelCardCreated, samplePayload("stuck")))
	<-sink.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pub.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, sink.inner.Deliveries())
}
