// Package stats serves read-only ledger aggregates: registry sizes, organs per
// lifecycle status, custody events awaiting verification and recent activity.
package stats

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"lifeconnect/internal/authz"
	"lifeconnect/internal/events"
	organModels "lifeconnect/internal/organ/models"
	"lifeconnect/internal/platform/metrics"
	"lifeconnect/pkg/requestcontext"
)

const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = events.RecentCapacity
)

type DonorCounter interface {
	CountDonors(ctx context.Context) (int, error)
}

type RecipientCounter interface {
	CountRecipients(ctx context.Context) (int, error)
}

type OrganCounter interface {
	CountByStatus(ctx context.Context) (map[organModels.Status]int, error)
}

type CustodyCounter interface {
	CountUnverified(ctx context.Context) (int, error)
}

// ActivityFeed holds the most recent ledger events, newest first.
type ActivityFeed interface {
	Recent(limit int) []events.Event
}

type Service struct {
	donors     DonorCounter
	recipients RecipientCounter
	organs     OrganCounter
	custody    CustodyCounter
	feed       ActivityFeed
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(donors DonorCounter, recipients RecipientCounter, organs OrganCounter, custody CustodyCounter, feed ActivityFeed, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		donors:     donors,
		recipients: recipients,
		organs:     organs,
		custody:    custody,
		feed:       feed,
		logger:     logger,
		metrics:    m,
	}
}

// Snapshot counts each registry concurrently. Counts are read independently,
// so a snapshot taken during writes may mix states from adjacent instants.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}

	var (
		snap     Snapshot
		byStatus map[organModels.Status]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Donors, err = s.donors.CountDonors(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Recipients, err = s.recipients.CountRecipients(gctx)
		return err
	})
	g.Go(func() (err error) {
		byStatus, err = s.organs.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.CustodyPendingVerification, err = s.custody.CountUnverified(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.OrgansByStatus = make(map[string]int, len(allStatuses))
	for _, st := range allStatuses {
		n := byStatus[st]
		snap.OrgansByStatus[string(st)] = n
		snap.Organs += n
	}
	snap.GeneratedAt = requestcontext.Now(ctx)
	return &snap, nil
}

// RecentActivity returns up to limit recent events whose name contains action.
// limit is clamped to [1, MaxActivityLimit]; zero means DefaultActivityLimit.
func (s *Service) RecentActivity(ctx context.Context, limit int, action string) (*Activity, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	var recent []events.Event
	if s.feed != nil {
		recent = s.feed.Recent(MaxActivityLimit)
	}
	out := make([]events.Event, 0, limit)
	for _, e := range recent {
		if len(out) == limit {
			break
		}
		if action != "" && !strings.Contains(string(e.Name), action) {
			continue
		}
		out = append(out, e)
	}
	return &Activity{
		Activities: out,
		Total:      len(out),
		Filters:    ActivityFilters{Action: action, Limit: limit},
	}, nil
}

func (s *Service) authorize(ctx context.Context) error {
	if _, err := authz.FromContext(ctx, authz.OpRead, ""); err != nil {
		s.metrics.IncrementAuthorizationDenied(string(authz.OpRead))
		return err
	}
	return nil
}

func clampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultActivityLimit
	case limit < 1:
		return 1
	case limit > MaxActivityLimit:
		return MaxActivityLimit
	}
	return limit
}

var allStatuses = []organModels.Status{
	organModels.StatusAvailable,
	organModels.StatusMatched,
	organModels.StatusInTransit,
	organModels.StatusTransplanted,
	organModels.StatusExpired,
	organModels.StatusRejected,
}

// Snapshot is the ledger-wide count at GeneratedAt.
type Snapshot struct {
	Donors                     int            `json:"donors"`
	Recipients                 int            `json:"recipients"`
	Organs                     int            `json:"organs"`
	OrgansByStatus             map[string]int `json:"organs_by_status"`
	CustodyPendingVerification int            `json:"custody_pending_verification"`
	GeneratedAt                time.Time      `json:"generated_at"`
}

type ActivityFilters struct {
	Action string `json:"action,omitempty"`
	Limit  int    `json:"limit"`
}

type Activity struct {
	Activities []events.Event  `json:"activities"`
	Total      int             `json:"total_count"`
	Filters    ActivityFilters `json:"filters_applied"`
}
