// Package middleware enforces per-caller request budgets on the ledger API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"lifeconnect/internal/platform/metrics"
	"lifeconnect/internal/ratelimit/models"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/circuit"
	"lifeconnect/pkg/platform/httputil"
	"lifeconnect/pkg/requestcontext"
)

//go:generate mockgen -source=ratelimit.go -destination=mocks/ratelimit-mocks.go -package=mocks Store

// Store admits or refuses one request under a bucket key.
type Store interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

type Middleware struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	limits   map[models.Class]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithFallback routes checks to fallback while breaker is open or the primary
// store errors. Without it, primary errors fail open.
func WithFallback(fallback Store, breaker *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.fallback = fallback
		m.breaker = breaker
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

// WithDisabled turns the middleware into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(primary Store, limits map[models.Class]models.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		limits:  limits,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit must run after RequireAuth; requests without a caller pass through.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		caller := requestcontext.CallerFrom(ctx)
		class := models.ClassForMethod(r.Method)
		limit, ok := m.limits[class]
		if caller.IsNil() || !ok || limit.Requests <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		result, degraded, err := m.check(ctx, models.Key(caller.ID.String(), class), limit)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed, allowing request",
				"error", err,
				"caller", caller.ID,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if degraded {
			w.Header().Set("X-RateLimit-Status", "degraded")
		}
		if !result.Allowed {
			m.metrics.IncrementRateLimited(string(class))
			m.logger.WarnContext(ctx, "caller exceeded request budget",
				"caller", caller.ID,
				"class", class,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter(requestcontext.Now(ctx)).Seconds())))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "request budget exhausted, retry later"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.Result, bool, error) {
	if m.fallback == nil {
		result, err := m.primary.Allow(ctx, key, limit)
		return result, false, err
	}
	if !m.breaker.Allow() {
		result, err := m.fallback.Allow(ctx, key, limit)
		return result, true, err
	}

	result, err := m.primary.Allow(ctx, key, limit)
	if err != nil {
		if _, change := m.breaker.RecordFailure(); change.Opened {
			m.logger.WarnContext(ctx, "rate limit store circuit opened, using in-memory fallback", "error", err)
		}
		result, err = m.fallback.Allow(ctx, key, limit)
		return result, true, err
	}
	if _, change := m.breaker.RecordSuccess(); change.Closed {
		m.logger.InfoContext(ctx, "rate limit store circuit closed")
	}
	return result, false, nil
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
