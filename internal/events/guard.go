package events

import (
	"context"
	"log/slog"

	"lifeconnect/internal/platform/metrics"
	"lifeconnect/pkg/platform/circuit"
)

// GuardedSink puts a circuit breaker in front of a remote sink. While the
// circuit is open events are dropped with circuit.ErrOpen instead of waiting on
// an unhealthy broker during every ledger mutation.
type GuardedSink struct {
	sink    Sink
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func Guard(sink Sink, breaker *circuit.Breaker, logger *slog.Logger, m *metrics.Metrics) *GuardedSink {
	return &GuardedSink{sink: sink, breaker: breaker, logger: logger, metrics: m}
}

func (g *GuardedSink) Name() string { return g.sink.Name() }

func (g *GuardedSink) Publish(ctx context.Context, event Event) error {
	if !g.breaker.Allow() {
		return circuit.ErrOpen
	}
	if err := g.sink.Publish(ctx, event); err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.metrics.SetSinkCircuitOpen(g.Name(), true)
			if g.logger != nil {
				g.logger.WarnContext(ctx, "event sink circuit opened", "sink", g.Name(), "error", err)
			}
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.metrics.SetSinkCircuitOpen(g.Name(), false)
		if g.logger != nil {
			g.logger.InfoContext(ctx, "event sink circuit closed", "sink", g.Name())
		}
	}
	return nil
}
