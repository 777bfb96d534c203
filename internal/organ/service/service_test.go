package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	donorModels "lifeconnect/internal/donor/models"
	donorService "lifeconnect/internal/donor/service"
	donorMemory "lifeconnect/internal/donor/store/memory"
	"lifeconnect/internal/events"
	"lifeconnect/internal/organ/models"
	"lifeconnect/internal/organ/store/memory"
	recipientModels "lifeconnect/internal/recipient/models"
	recipientService "lifeconnect/internal/recipient/service"
	recipientMemory "lifeconnect/internal/recipient/store/memory"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error

	// holdName parks the first matching Emit until release is closed.
	holdName events.Name
	entered  chan struct{}
	release  chan struct{}
}

func (p *recordingPublisher) Emit(_ context.Context, e events.Event) error {
	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return p.err
	}
	if e.Name == p.holdName && p.entered != nil {
		entered := p.entered
		p.entered = nil
		p.mu.Unlock()
		close(entered)
		<-p.release
		p.mu.Lock()
	}
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) hold(name events.Name) (entered, release chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holdName = name
	p.entered = make(chan struct{})
	p.release = make(chan struct{})
	return p.entered, p.release
}

func (p *recordingPublisher) names() []events.Name {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Name, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}

type OrganServiceSuite struct {
	suite.Suite
	service   *Service
	publisher *recordingPublisher
	now       time.Time
}

func TestOrganServiceSuite(t *testing.T) {
	suite.Run(t, new(OrganServiceSuite))
}

func (s *OrganServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s.publisher = &recordingPublisher{}

	donors := donorService.New(donorMemory.New())
	recipients := recipientService.New(recipientMemory.New())
	s.service = New(memory.New(), donors, recipients, WithEventPublisher(s.publisher))

	_, err := donors.RegisterDonor(s.as("donor-d"), &donorModels.RegisterDonorRequest{
		Name: "Dana", Age: 30, BloodType: "O-", OrganTypes: []string{"kidney", "liver"},
	})
	s.Require().NoError(err)
	_, err = donors.UpdateConsent(s.as("donor-d"), true)
	s.Require().NoError(err)

	_, err = donors.RegisterDonor(s.as("donor-n"), &donorModels.RegisterDonorRequest{
		Name: "Noor", Age: 40, BloodType: "A+", OrganTypes: []string{"kidney"},
	})
	s.Require().NoError(err)

	for _, id := range []string{"recipient-1", "recipient-2"} {
		_, err = recipients.RegisterRecipient(s.as(id), &recipientModels.RegisterRecipientRequest{
			Name: id, BloodType: "O-", OrganNeeded: "kidney", Urgency: 70,
		})
		s.Require().NoError(err)
	}
}

func (s *OrganServiceSuite) as(id string, roles ...domain.Role) context.Context {
	return s.asAt(s.now, id, roles...)
}

func (s *OrganServiceSuite) asAt(at time.Time, id string, roles ...domain.Role) context.Context {
	return testutil.AtTime(testutil.CallerContext(context.Background(), id, roles...), at)
}

func (s *OrganServiceSuite) hospital() context.Context {
	return s.as("hospital-h", domain.RoleHospital)
}

func (s *OrganServiceSuite) registered(hours int) *models.Organ {
	o, err := s.service.RegisterOrgan(s.hospital(), "donor-d", "kidney", hours)
	s.Require().NoError(err)
	return o
}

func (s *OrganServiceSuite) TestRegisterOrgan() {
	s.Run("first organ gets id 0 and is available", func() {
		o := s.registered(24)
		s.Equal(domain.OrganID(0), o.ID)
		s.Equal(models.StatusAvailable, o.Status)
		s.Equal(s.now.Add(24*time.Hour), o.ExpiresAt)
		s.Equal(domain.Identity("hospital-h"), o.RegisteredBy)
		s.Equal([]events.Name{events.OrganRegistered}, s.publisher.names())
	})

	s.Run("ids increase", func() {
		s.Equal(domain.OrganID(1), s.registered(24).ID)
	})

	s.Run("non hospital caller is unauthorized", func() {
		_, err := s.service.RegisterOrgan(s.as("donor-d", domain.RoleDonor), "donor-d", "kidney", 24)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown donor is not found", func() {
		_, err := s.service.RegisterOrgan(s.hospital(), "ghost", "kidney", 24)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("donor without consent is refused", func() {
		_, err := s.service.RegisterOrgan(s.hospital(), "donor-n", "kidney", 24)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("organ the donor did not offer is refused", func() {
		_, err := s.service.RegisterOrgan(s.hospital(), "donor-d", "heart", 24)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("viability outside bounds is refused", func() {
		_, err := s.service.RegisterOrgan(s.hospital(), "donor-d", "kidney", 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}

func (s *OrganServiceSuite) TestMatchOrgan() {
	s.Run("records recipient, score and matcher", func() {
		o := s.registered(24)
		matched, err := s.service.MatchOrgan(s.as("matcher-m", domain.RoleMatcher), o.ID, "recipient-1", 87)
		s.Require().NoError(err)
		s.Equal(models.StatusMatched, matched.Status)
		s.Require().NotNil(matched.RecipientID)
		s.Equal(domain.Identity("recipient-1"), *matched.RecipientID)
		s.Require().NotNil(matched.MatchScore)
		s.Equal(87, *matched.MatchScore)
		s.Equal(domain.Identity("matcher-m"), matched.MatchedBy)
	})

	s.Run("unknown recipient is not found", func() {
		o := s.registered(24)
		_, err := s.service.MatchOrgan(s.hospital(), o.ID, "ghost", 50)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown organ is not found", func() {
		_, err := s.service.MatchOrgan(s.hospital(), 999, "recipient-1", 50)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("expired window is refused", func() {
		o := s.registered(1)
		_, err := s.service.MatchOrgan(s.asAt(s.now.Add(2*time.Hour), "hospital-h", domain.RoleHospital), o.ID, "recipient-1", 50)
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})

	s.Run("transporter may not match", func() {
		o := s.registered(24)
		_, err := s.service.MatchOrgan(s.as("t-1", domain.RoleTransporter), o.ID, "recipient-1", 50)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *OrganServiceSuite) TestConcurrentMatchHasExactlyOneWinner() {
	o := s.registered(24)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, recipient := range []domain.Identity{"recipient-1", "recipient-2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.service.MatchOrgan(s.hospital(), o.ID, recipient, 60+i)
		}()
	}
	wg.Wait()

	succeeded, refused := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case dErrors.HasCode(err, dErrors.CodeInvalidStateTransition):
			refused++
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, refused)

	final, err := s.service.GetOrgan(s.hospital(), o.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusMatched, final.Status)
}

func (s *OrganServiceSuite) TestFullLifecycle() {
	o := s.registered(12)
	_, err := s.service.MatchOrgan(s.hospital(), o.ID, "recipient-1", 90)
	s.Require().NoError(err)

	inTransit, err := s.service.StartTransport(s.as("t-1", domain.RoleTransporter), o.ID, "bafy-transport")
	s.Require().NoError(err)
	s.Equal(models.StatusInTransit, inTransit.Status)
	s.Equal("bafy-transport", inTransit.TransportDocRef)

	done, err := s.service.CompleteTransplant(s.asAt(s.now.Add(3*time.Hour), "hospital-h", domain.RoleHospital), o.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusTransplanted, done.Status)

	s.Equal([]events.Name{
		events.OrganRegistered, events.OrganMatched, events.OrganInTransit, events.OrganTransplanted,
	}, s.publisher.names())

	has, err := s.service.HasTransplant(context.Background(), "recipient-1")
	s.Require().NoError(err)
	s.True(has)

	_, err = s.service.MarkExpired(s.asAt(s.now.Add(24*time.Hour), "anyone"), o.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
}

func (s *OrganServiceSuite) TestEventsFollowTransitionOrder() {
	o := s.registered(12)
	entered, release := s.publisher.hold(events.OrganMatched)

	matched := make(chan error, 1)
	go func() {
		_, err := s.service.MatchOrgan(s.hospital(), o.ID, "recipient-1", 80)
		matched <- err
	}()
	<-entered

	transported := make(chan error, 1)
	go func() {
		_, err := s.service.StartTransport(s.as("t-1", domain.RoleTransporter), o.ID, "doc")
		transported <- err
	}()
	select {
	case err := <-transported:
		s.Failf("transport finished while the match was still recording", "err=%v", err)
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	s.Require().NoError(<-matched)
	s.Require().NoError(<-transported)

	s.Equal([]events.Name{events.OrganRegistered, events.OrganMatched, events.OrganInTransit}, s.publisher.names())
	for i, e := range s.publisher.events {
		s.Equal(int64(i+1), e.Version, e.Name)
	}
}

func (s *OrganServiceSuite) TestPublisherFailureAbortsTransition() {
	o := s.registered(12)
	s.publisher.err = errors.New("outbox insert failed")

	_, err := s.service.MatchOrgan(s.hospital(), o.ID, "recipient-1", 80)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	s.publisher.err = nil
	got, err := s.service.GetOrgan(s.hospital(), o.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAvailable, got.Status)
	s.Equal(int64(1), got.Version)
}

func (s *OrganServiceSuite) TestOutOfOrderTransitions() {
	o := s.registered(12)

	_, err := s.service.StartTransport(s.hospital(), o.ID, "doc")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))

	_, err = s.service.CompleteTransplant(s.hospital(), o.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))

	got, err := s.service.GetOrgan(s.hospital(), o.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAvailable, got.Status)
	s.Nil(got.RecipientID)
}

func (s *OrganServiceSuite) TestExpiredInTransit() {
	o := s.registered(1)
	_, err := s.service.MatchOrgan(s.hospital(), o.ID, "recipient-1", 90)
	s.Require().NoError(err)
	_, err = s.service.StartTransport(s.hospital(), o.ID, "doc")
	s.Require().NoError(err)

	late := s.asAt(s.now.Add(2*time.Hour), "hospital-h", domain.RoleHospital)
	_, err = s.service.CompleteTransplant(late, o.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired))

	expired, err := s.service.MarkExpired(late, o.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, expired.Status)
	s.NotNil(expired.RecipientID, "match details survive expiry")
}

func (s *OrganServiceSuite) TestMarkExpired() {
	s.Run("two hours after a one hour window", func() {
		o := s.registered(1)
		got, err := s.service.MarkExpired(s.asAt(s.now.Add(2*time.Hour), "anyone"), o.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusExpired, got.Status)

		last := s.publisher.events[len(s.publisher.events)-1]
		s.Equal(events.OrganExpired, last.Name)
		s.Equal(models.StatusAvailable, last.Changes["previous_status"])
	})

	s.Run("window still open is refused", func() {
		o := s.registered(1)
		_, err := s.service.MarkExpired(s.asAt(s.now.Add(30*time.Minute), "anyone"), o.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
	})

	s.Run("second expiry is refused", func() {
		o := s.registered(1)
		late := s.asAt(s.now.Add(2*time.Hour), "anyone")
		_, err := s.service.MarkExpired(late, o.ID)
		s.Require().NoError(err)
		_, err = s.service.MarkExpired(late, o.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
	})

	s.Run("anonymous caller is unauthorized", func() {
		o := s.registered(1)
		_, err := s.service.MarkExpired(testutil.AtTime(context.Background(), s.now.Add(2*time.Hour)), o.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *OrganServiceSuite) TestListAndDueForExpiry() {
	short := s.registered(1)
	long := s.registered(48)
	_, err := s.service.MatchOrgan(s.hospital(), long.ID, "recipient-2", 40)
	s.Require().NoError(err)

	later := s.asAt(s.now.Add(2*time.Hour), "anyone")
	due, err := s.service.DueForExpiry(later)
	s.Require().NoError(err)
	s.Equal([]domain.OrganID{short.ID}, due)

	matched, err := s.service.ListOrgans(later, "Matched")
	s.Require().NoError(err)
	s.Require().Len(matched, 1)
	s.Equal(long.ID, matched[0].ID)

	_, err = s.service.ListOrgans(later, "Lost")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}

func (s *OrganServiceSuite) TestOrganExists() {
	o := s.registered(4)
	ok, err := s.service.OrganExists(context.Background(), o.ID)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.service.OrganExists(context.Background(), o.ID+1)
	s.Require().NoError(err)
	s.False(ok)
}
