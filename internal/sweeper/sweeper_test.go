package sweeper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	donorModels "lifeconnect/internal/donor/models"
	donorService "lifeconnect/internal/donor/service"
	donorMemory "lifeconnect/internal/donor/store/memory"
	"lifeconnect/internal/organ/models"
	organService "lifeconnect/internal/organ/service"
	organMemory "lifeconnect/internal/organ/store/memory"
	recipientService "lifeconnect/internal/recipient/service"
	recipientMemory "lifeconnect/internal/recipient/store/memory"
	"lifeconnect/internal/platform/metrics"
	"lifeconnect/pkg/domain"
	pkgtestutil "lifeconnect/pkg/testutil"
)

func TestSweepOnceExpiresOnlyDueOrgans(t *testing.T) {
	registeredAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	hospital := pkgtestutil.AtTime(pkgtestutil.CallerContext(context.Background(), "hospital-h", domain.RoleHospital), registeredAt)

	donors := donorService.New(donorMemory.New())
	organs := organService.New(organMemory.New(), donors, recipientService.New(recipientMemory.New()))

	donorCtx := pkgtestutil.CallerContext(context.Background(), "donor-d")
	_, err := donors.RegisterDonor(donorCtx, &donorModels.RegisterDonorRequest{
		Name: "Dana", Age: 30, BloodType: "A-", OrganTypes: []string{"kidney"},
	})
	require.NoError(t, err)
	_, err = donors.UpdateConsent(donorCtx, true)
	require.NoError(t, err)

	short, err := organs.RegisterOrgan(hospital, "donor-d", "kidney", 1)
	require.NoError(t, err)
	long, err := organs.RegisterOrgan(hospital, "donor-d", "kidney", 48)
	require.NoError(t, err)

	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	s := New(organs, 0, slog.New(slog.NewTextHandler(io.Discard, nil)), m)

	later := pkgtestutil.AtTime(context.Background(), registeredAt.Add(2*time.Hour))
	n, err := s.SweepOnce(later)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OrgansExpiredBySweep))

	got, err := organs.GetOrgan(hospital, short.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)

	got, err = organs.GetOrgan(hospital, long.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, got.Status)

	n, err = s.SweepOnce(later)
	require.NoError(t, err)
	assert.Zero(t, n, "already expired organs are not swept twice")
}

func TestRunDisabledReturnsImmediately(t *testing.T) {
	s := New(nil, 0, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	assert.NoError(t, s.Run(context.Background()))
}
