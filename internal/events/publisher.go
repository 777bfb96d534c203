package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"lifeconnect/internal/platform/metrics"
	"lifeconnect/pkg/platform/circuit"
	"lifeconnect/pkg/requestcontext"
)

// Sink accepts events for one delivery channel (broker, Redis, outbox, Kafka).
type Sink interface {
	Name() string
	Publish(ctx context.Context, event Event) error
}

// Publisher hands events to their sinks. Services call Emit while the mutation
// that produced the event is still uncommitted: inside the Postgres transaction
// or under the in-memory entity lock.
//
// A journaled publisher writes only to its journal and returns the journal's
// error so the mutation rolls back with it. A live publisher fans out to every
// sink best effort: a failing sink is logged and counted, never surfaced.
type Publisher struct {
	journal Sink
	sinks   []Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewPublisher returns a live publisher over sinks.
func NewPublisher(logger *slog.Logger, m *metrics.Metrics, sinks ...Sink) *Publisher {
	return &Publisher{sinks: sinks, logger: logger, metrics: m}
}

// NewJournaledPublisher returns a publisher that records every event in journal.
// Observers are fed from the journal after commit, in journal order.
func NewJournaledPublisher(journal Sink, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	return &Publisher{journal: journal, logger: logger, metrics: m}
}

// Emit stamps the event and delivers it. Only a journal failure is returned.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if p.journal != nil {
		if err := p.journal.Publish(ctx, event); err != nil {
			p.metrics.IncrementPublishFailures(p.journal.Name())
			return fmt.Errorf("journal %s: %w", event.Name, err)
		}
		p.metrics.IncrementEventsPublished(p.journal.Name())
		return nil
	}

	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			if errors.Is(err, circuit.ErrOpen) {
				p.metrics.IncrementEventsDropped(sink.Name())
				continue
			}
			p.metrics.IncrementPublishFailures(sink.Name())
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "failed to publish domain event",
					"sink", sink.Name(),
					"event", string(event.Name),
					"entity_id", event.EntityID,
					"request_id", event.RequestID,
					"error", err,
				)
			}
			continue
		}
		p.metrics.IncrementEventsPublished(sink.Name())
	}
	return nil
}
