// Package sweeper proactively expires organs whose viability window has
// closed. It only calls the organ ledger's public operations, so a sweep is
// indistinguishable from any other caller invoking MarkExpired.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lifeconnect/internal/organ/models"
	"lifeconnect/internal/platform/metrics"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/requestcontext"
)

// SystemCaller is the identity sweeps run as.
var SystemCaller = requestcontext.Caller{
	ID:    "system:expiry-sweeper",
	Roles: []domain.Role{domain.RoleSystem},
}

type Organs interface {
	DueForExpiry(ctx context.Context) ([]domain.OrganID, error)
	MarkExpired(ctx context.Context, id domain.OrganID) (*models.Organ, error)
}

type Sweeper struct {
	organs   Organs
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(organs Organs, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{organs: organs, interval: interval, logger: logger, metrics: m}
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// disables the loop; SweepOnce can still be triggered on demand.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce expires every organ currently due and returns how many moved to
// Expired. Organs that changed state between listing and expiry are skipped.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ctx = requestcontext.WithCaller(ctx, SystemCaller)
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
	if requestcontext.RequestID(ctx) == "" {
		ctx = requestcontext.WithRequestID(ctx, "sweep-"+uuid.NewString())
	}

	due, err := s.organs.DueForExpiry(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range due {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.organs.MarkExpired(ctx, id); err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvalidStateTransition) {
				continue
			}
			s.logger.WarnContext(ctx, "failed to expire organ", "organ_id", id, "error", err)
			continue
		}
		expired++
	}

	s.metrics.AddExpiredBySweep(expired)
	if expired > 0 {
		s.logger.InfoContext(ctx, "expiry sweep completed", "expired", expired, "due", len(due))
	}
	return expired, nil
}
