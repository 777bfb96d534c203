//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"lifeconnect/internal/donor/models"
	"lifeconnect/pkg/domain"
	"lifeconnect/pkg/platform/sentinel"
	"lifeconnect/pkg/testutil/containers"
)

type DonorPostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
	ctx   context.Context
}

func TestDonorPostgresSuite(t *testing.T) {
	suite.Run(t, new(DonorPostgresSuite))
}

func (s *DonorPostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = New(s.pg.DB)
	s.ctx = context.Background()
}

func (s *DonorPostgresSuite) SetupTest() {
	s.pg.Truncate(s.T())
}

func (s *DonorPostgresSuite) newDonor(id string) *models.Donor {
	d, err := models.NewDonor(domain.Identity(id), "Ada", 30, "AB-", []string{"kidney", "liver"}, "cid", time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return d
}

func (s *DonorPostgresSuite) TestRoundTrip() {
	d := s.newDonor("donor-pg")
	s.Require().NoError(s.store.Create(s.ctx, d, nil))

	found, err := s.store.FindByID(s.ctx, "donor-pg")
	s.Require().NoError(err)
	s.Equal(d.OrganTypes, found.OrganTypes)
	s.Equal(domain.BloodType("AB-"), found.BloodType)
	s.True(found.RegisteredAt.Equal(d.RegisteredAt))
}

func (s *DonorPostgresSuite) TestDuplicateIsAlreadyExists() {
	s.Require().NoError(s.store.Create(s.ctx, s.newDonor("donor-dup"), nil))
	s.ErrorIs(s.store.Create(s.ctx, s.newDonor("donor-dup"), nil), sentinel.ErrAlreadyExists)
}

func (s *DonorPostgresSuite) TestExecuteUpdatesConsent() {
	s.Require().NoError(s.store.Create(s.ctx, s.newDonor("donor-c"), nil))

	_, err := s.store.Execute(s.ctx, "donor-c",
		func(*models.Donor) error { return nil },
		func(d *models.Donor) { d.ApplyConsent(true, time.Now()) },
		nil,
	)
	s.Require().NoError(err)

	found, err := s.store.FindByID(s.ctx, "donor-c")
	s.Require().NoError(err)
	s.True(found.Consent)
	s.Equal(int64(2), found.Version)

	_, err = s.store.Execute(s.ctx, "missing", func(*models.Donor) error { return nil }, func(*models.Donor) {}, nil)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *DonorPostgresSuite) TestListAllInRegistrationOrder() {
	for _, id := range []string{"donor-z", "donor-a", "donor-m"} {
		s.Require().NoError(s.store.Create(s.ctx, s.newDonor(id), nil))
	}
	err := s.store.Create(s.ctx, s.newDonor("donor-q"), func(context.Context, *models.Donor) error {
		return errors.New("journal unavailable")
	})
	s.Require().Error(err)

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(domain.Identity("donor-z"), all[0].ID)
	s.Equal(domain.Identity("donor-a"), all[1].ID)
	s.Equal(domain.Identity("donor-m"), all[2].ID)

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
}
