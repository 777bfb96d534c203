package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeconnect/internal/events"
	organModels "lifeconnect/internal/organ/models"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/testutil"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type stubCounters struct {
	donors     int
	recipients int
	organs     map[organModels.Status]int
	unverified int
	err        error
}

func (s *stubCounters) CountDonors(context.Context) (int, error)     { return s.donors, s.err }
func (s *stubCounters) CountRecipients(context.Context) (int, error) { return s.recipients, nil }
func (s *stubCounters) CountUnverified(context.Context) (int, error) { return s.unverified, nil }

func (s *stubCounters) CountByStatus(context.Context) (map[organModels.Status]int, error) {
	return s.organs, nil
}

func newService(counters *stubCounters, feed ActivityFeed) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(counters, counters, counters, counters, feed, logger, nil)
}

func callerCtx() context.Context {
	return testutil.AtTime(testutil.CallerContext(context.Background(), "regulator-r", domain.RoleRegulator), t0)
}

func TestSnapshot(t *testing.T) {
	t.Run("aggregates every registry", func(t *testing.T) {
		svc := newService(&stubCounters{
			donors:     4,
			recipients: 2,
			organs: map[organModels.Status]int{
				organModels.StatusAvailable: 3,
				organModels.StatusInTransit: 1,
			},
			unverified: 5,
		}, nil)

		snap, err := svc.Snapshot(callerCtx())
		require.NoError(t, err)
		assert.Equal(t, 4, snap.Donors)
		assert.Equal(t, 2, snap.Recipients)
		assert.Equal(t, 4, snap.Organs)
		assert.Equal(t, 5, snap.CustodyPendingVerification)
		assert.Equal(t, 3, snap.OrgansByStatus["Available"])
		assert.Equal(t, 1, snap.OrgansByStatus["InTransit"])
		assert.Len(t, snap.OrgansByStatus, 6, "every status is reported, zero or not")
		assert.Zero(t, snap.OrgansByStatus["Transplanted"])
		assert.True(t, snap.GeneratedAt.Equal(t0))
	})

	t.Run("requires a caller", func(t *testing.T) {
		_, err := newService(&stubCounters{}, nil).Snapshot(context.Background())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("counter failure fails the snapshot", func(t *testing.T) {
		_, err := newService(&stubCounters{err: errors.New("db down")}, nil).Snapshot(callerCtx())
		assert.Error(t, err)
	})
}

func TestRecentActivity(t *testing.T) {
	broker := events.NewBroker()
	for _, name := range []events.Name{events.OrganRegistered, events.OrganMatched, events.CustodyEventLogged, events.OrganInTransit} {
		require.NoError(t, broker.Publish(context.Background(), events.Event{Name: name}))
	}
	svc := newService(&stubCounters{}, broker)

	t.Run("newest first within limit", func(t *testing.T) {
		activity, err := svc.RecentActivity(callerCtx(), 2, "")
		require.NoError(t, err)
		require.Equal(t, 2, activity.Total)
		assert.Equal(t, events.OrganInTransit, activity.Activities[0].Name)
		assert.Equal(t, events.CustodyEventLogged, activity.Activities[1].Name)
		assert.Equal(t, 2, activity.Filters.Limit)
	})

	t.Run("action filters by partial name", func(t *testing.T) {
		activity, err := svc.RecentActivity(callerCtx(), 0, "organ_")
		require.NoError(t, err)
		assert.Equal(t, 3, activity.Total)
		assert.Equal(t, DefaultActivityLimit, activity.Filters.Limit)
		for _, e := range activity.Activities {
			assert.Contains(t, string(e.Name), "organ_")
		}
	})

	t.Run("no feed yields empty activity", func(t *testing.T) {
		activity, err := newService(&stubCounters{}, nil).RecentActivity(callerCtx(), 10, "")
		require.NoError(t, err)
		assert.Empty(t, activity.Activities)
		assert.NotNil(t, activity.Activities)
	})

	t.Run("requires a caller", func(t *testing.T) {
		_, err := svc.RecentActivity(context.Background(), 10, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
