// Package relay moves committed outbox events to their consumers: Kafka when a
// producer is configured, then the live sinks (broker, Redis).
package relay

import (
	"context"
	"log/slog"
	"time"

	"lifeconnect/internal/events"
	"lifeconnect/internal/platform/kafka"
	"lifeconnect/internal/platform/metrics"
)

type outboxStore interface {
	Claim(ctx context.Context, limit int, deliver func(context.Context, []events.Event) error) (int, error)
}

type producer interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

type fanout interface {
	Emit(ctx context.Context, event events.Event) error
}

// Relay drains the outbox on every wakeup and on a fallback poll interval.
// Batches are claimed in commit order, so each entity's events reach every
// consumer in version order.
type Relay struct {
	store     outboxStore
	producer  producer
	fanout    fanout
	wake      <-chan struct{}
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Relay)

// WithProducer delivers every batch to Kafka. A failed produce leaves the batch
// pending for the next drain.
func WithProducer(p producer) Option {
	return func(r *Relay) { r.producer = p }
}

// WithFanout hands each delivered event to the live sinks, best effort.
func WithFanout(f fanout) Option {
	return func(r *Relay) { r.fanout = f }
}

// WithWakeup lets LISTEN/NOTIFY trigger a drain before the next poll.
func WithWakeup(wake <-chan struct{}) Option {
	return func(r *Relay) { r.wake = wake }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func New(store outboxStore, interval time.Duration, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		interval:  interval,
		batchSize: 100,
		logger:    logger,
		metrics:   m,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.interval <= 0 {
		r.interval = 2 * time.Second
	}
	return r
}

// Run blocks until ctx is cancelled. Delivery errors are logged and retried.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.drain(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

// drain delivers full batches until the outbox is empty or a batch fails.
func (r *Relay) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := r.store.Claim(ctx, r.batchSize, r.deliver)
		if err != nil {
			r.metrics.IncrementPublishFailures("relay")
			r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
			return
		}
		if n > 0 {
			r.logger.DebugContext(ctx, "outbox relay delivered batch", "count", n)
		}
		if n < r.batchSize {
			return
		}
	}
}

func (r *Relay) deliver(ctx context.Context, batch []events.Event) error {
	if r.producer != nil {
		msgs := make([]kafka.Message, 0, len(batch))
		for _, e := range batch {
			msg, err := events.ToMessage(e)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := r.producer.Publish(ctx, msgs...); err != nil {
			r.metrics.IncrementPublishFailures("kafka")
			return err
		}
		for range batch {
			r.metrics.IncrementEventsPublished("kafka")
		}
	}
	if r.fanout != nil {
		for _, e := range batch {
			_ = r.fanout.Emit(ctx, e)
		}
	}
	return nil
}
