package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeconnect/internal/events"
	"lifeconnect/internal/platform/kafka"
	"lifeconnect/internal/platform/logger"
	"lifeconnect/internal/platform/metrics"
)

// memoryOutbox mimics the Postgres outbox: events stay pending until a delivery succeeds.
type memoryOutbox struct {
	mu      sync.Mutex
	pending []events.Event
}

func (m *memoryOutbox) Claim(ctx context.Context, limit int, deliver func(context.Context, []events.Event) error) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := min(limit, len(m.pending))
	if n == 0 {
		return 0, nil
	}
	if err := deliver(ctx, m.pending[:n]); err != nil {
		return 0, err
	}
	m.pending = m.pending[n:]
	return n, nil
}

func (m *memoryOutbox) remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

type fakeProducer struct {
	mu   sync.Mutex
	msgs []kafka.Message
	fail bool
}

func (f *fakeProducer) Publish(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeProducer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func pendingEvents(n int) []events.Event {
	out := make([]events.Event, n)
	for i := range out {
		out[i] = events.Event{ID: uuid.New(), Name: events.OrganRegistered, EntityType: events.EntityOrgan, EntityID: "0"}
	}
	return out
}

func newRelay(store outboxStore, p producer, opts ...Option) *Relay {
	opts = append([]Option{WithProducer(p)}, opts...)
	return New(store, time.Hour, logger.New("error"), metrics.NewWithRegisterer(prometheus.NewRegistry()), opts...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Name() string { return "broker" }

func (s *recordingSink) Publish(_ context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func TestRelay_DrainsInBatches(t *testing.T) {
	store := &memoryOutbox{pending: pendingEvents(5)}
	producer := &fakeProducer{}
	r := newRelay(store, producer, WithBatchSize(2))

	r.drain(context.Background())

	assert.Equal(t, 5, producer.count())
	assert.Zero(t, store.remaining())
}

func TestRelay_FailedDeliveryKeepsEventsPending(t *testing.T) {
	store := &memoryOutbox{pending: pendingEvents(3)}
	producer := &fakeProducer{fail: true}
	r := newRelay(store, producer)

	r.drain(context.Background())

	assert.Equal(t, 3, store.remaining())
}

func TestRelay_WakeupTriggersDrain(t *testing.T) {
	store := &memoryOutbox{}
	producer := &fakeProducer{}
	wake := make(chan struct{}, 1)
	r := newRelay(store, producer, WithWakeup(wake))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	store.mu.Lock()
	store.pending = pendingEvents(1)
	store.mu.Unlock()
	wake <- struct{}{}

	require.Eventually(t, func() bool { return producer.count() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestRelay_FansOutInOutboxOrder(t *testing.T) {
	pending := []events.Event{
		{ID: uuid.New(), Name: events.OrganMatched, EntityType: events.EntityOrgan, EntityID: "4", Version: 2},
		{ID: uuid.New(), Name: events.OrganInTransit, EntityType: events.EntityOrgan, EntityID: "4", Version: 3},
		{ID: uuid.New(), Name: events.OrganTransplanted, EntityType: events.EntityOrgan, EntityID: "4", Version: 4},
	}
	store := &memoryOutbox{pending: pending}
	live := &recordingSink{}
	r := New(store, time.Hour, logger.New("error"), metrics.NewWithRegisterer(prometheus.NewRegistry()),
		WithFanout(events.NewPublisher(nil, nil, live)), WithBatchSize(2))

	r.drain(context.Background())

	require.Len(t, live.events, 3)
	for i, e := range live.events {
		assert.Equal(t, pending[i].Name, e.Name)
		assert.Equal(t, int64(i+2), e.Version)
	}
	assert.Zero(t, store.remaining())
}

func TestRelay_KafkaFailureHoldsBackLiveSinks(t *testing.T) {
	store := &memoryOutbox{pending: pendingEvents(2)}
	live := &recordingSink{}
	r := newRelay(store, &fakeProducer{fail: true}, WithFanout(events.NewPublisher(nil, nil, live)))

	r.drain(context.Background())

	assert.Empty(t, live.events)
	assert.Equal(t, 2, store.remaining())
}
