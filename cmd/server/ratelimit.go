package main

import (
	"log/slog"

	"lifeconnect/internal/platform/config"
	"lifeconnect/internal/platform/metrics"
	redisclient "lifeconnect/internal/platform/redis"
	rlmiddleware "lifeconnect/internal/ratelimit/middleware"
	"lifeconnect/internal/ratelimit/models"
	rlmemory "lifeconnect/internal/ratelimit/store/memory"
	rlredis "lifeconnect/internal/ratelimit/store/redis"
	"lifeconnect/pkg/platform/circuit"
)

// newRateLimiter shares budgets through Redis when it is configured and falls
// back to per-process windows while Redis is failing.
func newRateLimiter(cfg config.RateLimitConfig, rdb *redisclient.Client, log *slog.Logger, m *metrics.Metrics) *rlmiddleware.Middleware {
	limits := map[models.Class]models.Limit{
		models.ClassRead:  {Requests: cfg.ReadRequests, Window: cfg.Window},
		models.ClassWrite: {Requests: cfg.WriteRequests, Window: cfg.Window},
	}
	opts := []rlmiddleware.Option{
		rlmiddleware.WithMetrics(m),
		rlmiddleware.WithDisabled(cfg.Disabled),
	}
	if rdb == nil {
		return rlmiddleware.New(rlmemory.New(), limits, log, opts...)
	}
	opts = append(opts, rlmiddleware.WithFallback(rlmemory.New(),
		circuit.New("ratelimit", circuit.WithSuccessThreshold(3))))
	return rlmiddleware.New(rlredis.New(rdb), limits, log, opts...)
}
