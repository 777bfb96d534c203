package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeconnect/internal/organ/models"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/sentinel"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newOrgan(t *testing.T, hours int) *models.Organ {
	t.Helper()
	o, err := models.NewOrgan("donor-a", domain.OrganLiver, hours, "hospital-a", t0)
	require.NoError(t, err)
	return o
}

func TestInMemory_CreateAssignsDenseIDsFromZero(t *testing.T) {
	ctx := context.Background()
	s := New()
	for want := range 3 {
		id, err := s.Create(ctx, newOrgan(t, 4), nil)
		require.NoError(t, err)
		assert.Equal(t, domain.OrganID(want), id)
	}

	_, err := s.FindByID(ctx, 3)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.FindByID(ctx, -1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemory_ExecuteLeavesStateOnValidationFailure(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Create(ctx, newOrgan(t, 4), nil)
	require.NoError(t, err)

	_, err = s.Execute(ctx, id,
		func(*models.Organ) error { return dErrors.New(dErrors.CodeInvalidStateTransition, "no") },
		func(o *models.Organ) { o.Status = models.StatusExpired },
		nil,
	)
	require.Error(t, err)

	o, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, o.Status)
}

func TestInMemory_ConcurrentExecuteHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Create(ctx, newOrgan(t, 4), nil)
	require.NoError(t, err)

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	now := t0.Add(time.Hour)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recipient := domain.Identity("recipient-" + string(rune('a'+i)))
			_, err := s.Execute(ctx, id,
				func(o *models.Organ) error { return o.CanMatch(now) },
				func(o *models.Organ) { o.ApplyMatch(recipient, i, "matcher", now) },
				nil,
			)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestInMemory_ListAndExpiryQueries(t *testing.T) {
	ctx := context.Background()
	s := New()
	short, _ := s.Create(ctx, newOrgan(t, 1), nil)
	long, _ := s.Create(ctx, newOrgan(t, 48), nil)
	done, _ := s.Create(ctx, newOrgan(t, 1), nil)

	now := t0.Add(2 * time.Hour)
	_, err := s.Execute(ctx, done, func(*models.Organ) error { return nil }, func(o *models.Organ) {
		o.ApplyMatch("recipient-x", 50, "matcher", t0)
		o.ApplyStartTransport("doc", t0)
		o.ApplyTransplant(t0)
	}, nil)
	require.NoError(t, err)

	due, err := s.ListDueForExpiry(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []domain.OrganID{short}, due)

	available := models.StatusAvailable
	list, err := s.List(ctx, &available)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, short, list[0].ID)
	assert.Equal(t, long, list[1].ID)

	all, err := s.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	has, err := s.HasTransplant(ctx, "recipient-x")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = s.HasTransplant(ctx, "recipient-y")
	require.NoError(t, err)
	assert.False(t, has)

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.Status]int{
		models.StatusAvailable:    2,
		models.StatusTransplanted: 1,
	}, counts)
}

func TestInMemory_RecordFailureRollsBackTransition(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Create(ctx, newOrgan(t, 4), nil)
	require.NoError(t, err)

	_, err = s.Execute(ctx, id,
		func(*models.Organ) error { return nil },
		func(o *models.Organ) { o.ApplyMatch("recipient-a", 70, "matcher", t0) },
		func(context.Context, *models.Organ) error { return errors.New("journal unavailable") },
	)
	require.Error(t, err)

	o, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, o.Status)
	assert.Equal(t, int64(1), o.Version)
}

func TestInMemory_RecordFailureOnCreateStoresNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Create(ctx, newOrgan(t, 4), func(context.Context, *models.Organ) error { return errors.New("journal unavailable") })
	require.Error(t, err)

	id, err := s.Create(ctx, newOrgan(t, 4), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.OrganID(0), id)
}

func TestInMemory_RecordSeesTransitionsInVersionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Create(ctx, newOrgan(t, 4), nil)
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		recorded []int64
		wg       sync.WaitGroup
	)
	record := func(_ context.Context, o *models.Organ) error {
		// Hold the slot long enough for the other writers to queue behind it.
		time.Sleep(time.Millisecond)
		mu.Lock()
		recorded = append(recorded, o.Version)
		mu.Unlock()
		return nil
	}
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Execute(ctx, id, func(*models.Organ) error { return nil }, func(o *models.Organ) { o.UpdatedAt = t0 }, record)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, []int64{2, 3, 4, 5, 6, 7, 8, 9}, recorded)
}
