package service

import (
	"context"
	"errors"
	"log/slog"

	"lifeconnect/internal/authz"
	"lifeconnect/internal/donor/models"
	"lifeconnect/internal/events"
	"lifeconnect/internal/platform/metrics"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/sentinel"
	"lifeconnect/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, d *models.Donor, record func(context.Context, *models.Donor) error) error
	FindByID(ctx context.Context, id domain.Identity) (*models.Donor, error)
	ListAll(ctx context.Context) ([]*models.Donor, error)
	Count(ctx context.Context) (int, error)
	Execute(ctx context.Context, id domain.Identity, validate func(*models.Donor) error, mutate func(*models.Donor), record func(context.Context, *models.Donor) error) (*models.Donor, error)
}

type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service is the donor registry.
type Service struct {
	store     Store
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterDonor creates the caller's donor record. An identity registers once.
func (s *Service) RegisterDonor(ctx context.Context, req *models.RegisterDonorRequest) (*models.Donor, error) {
	caller := requestcontext.CallerFrom(ctx)
	if err := s.authorize(ctx, caller, authz.OpRegisterDonor); err != nil {
		return nil, err
	}

	d, err := models.NewDonor(caller.ID, req.Name, req.Age, req.BloodType, req.OrganTypes, req.HealthRecordRef, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	err = s.store.Create(ctx, d, func(ctx context.Context, d *models.Donor) error {
		return s.emit(ctx, events.DonorRegistered, d, caller.ID, map[string]any{
			"blood_type":  d.BloodType,
			"organ_types": d.OrganTypes,
			"consent":     d.Consent,
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "donor is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register donor")
	}

	s.metrics.IncrementDonorsRegistered()
	s.logAudit(ctx, string(events.DonorRegistered), "donor_id", d.ID)
	return d, nil
}

// UpdateConsent sets the consent flag on the caller's own record.
func (s *Service) UpdateConsent(ctx context.Context, consent bool) (*models.Donor, error) {
	caller := requestcontext.CallerFrom(ctx)
	if err := s.authorize(ctx, caller, authz.OpUpdateConsent); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	d, err := s.store.Execute(ctx, caller.ID,
		func(*models.Donor) error { return nil },
		func(d *models.Donor) { d.ApplyConsent(consent, now) },
		func(ctx context.Context, d *models.Donor) error {
			return s.emit(ctx, events.DonorConsentUpdated, d, caller.ID, map[string]any{"consent": consent})
		},
	)
	if err != nil {
		return nil, wrapDonorErr(err, "failed to update consent")
	}

	s.logAudit(ctx, string(events.DonorConsentUpdated), "donor_id", d.ID, "consent", consent)
	return d, nil
}

// UpdateHealthRecordRef replaces the caller's health record reference. The
// reference is opaque and is not resolved.
func (s *Service) UpdateHealthRecordRef(ctx context.Context, ref string) (*models.Donor, error) {
	caller := requestcontext.CallerFrom(ctx)
	if err := s.authorize(ctx, caller, authz.OpUpdateHealthRecordRef); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	d, err := s.store.Execute(ctx, caller.ID,
		func(*models.Donor) error { return nil },
		func(d *models.Donor) { d.ApplyHealthRecordRef(ref, now) },
		func(ctx context.Context, d *models.Donor) error {
			return s.emit(ctx, events.DonorHealthRecordUpdated, d, caller.ID, map[string]any{"health_record_ref": d.HealthRecordRef})
		},
	)
	if err != nil {
		return nil, wrapDonorErr(err, "failed to update health record reference")
	}

	s.logAudit(ctx, string(events.DonorHealthRecordUpdated), "donor_id", d.ID)
	return d, nil
}

// ListDonors returns every registered donor in registration order.
func (s *Service) ListDonors(ctx context.Context) ([]*models.Donor, error) {
	if err := s.authorize(ctx, requestcontext.CallerFrom(ctx), authz.OpRead); err != nil {
		return nil, err
	}
	donors, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donors")
	}
	return donors, nil
}

// CountDonors feeds the ledger statistics.
func (s *Service) CountDonors(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count donors")
	}
	return n, nil
}

func (s *Service) GetDonor(ctx context.Context, id domain.Identity) (*models.Donor, error) {
	if err := s.authorize(ctx, requestcontext.CallerFrom(ctx), authz.OpRead); err != nil {
		return nil, err
	}
	return s.FindDonor(ctx, id)
}

// FindDonor is the unguarded lookup used by the organ ledger to validate a
// registration against the donor's consent.
func (s *Service) FindDonor(ctx context.Context, id domain.Identity) (*models.Donor, error) {
	d, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapDonorErr(err, "failed to load donor")
	}
	return d, nil
}

// authorize checks the caller acts on its own record; donor keys are the caller identity.
func (s *Service) authorize(ctx context.Context, caller requestcontext.Caller, op authz.Operation) error {
	if err := authz.Check(caller, op, caller.ID); err != nil {
		s.metrics.IncrementAuthorizationDenied(string(op))
		return err
	}
	return nil
}

func (s *Service) emit(ctx context.Context, name events.Name, d *models.Donor, actor domain.Identity, changes map[string]any) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Emit(ctx, events.Event{
		Name:       name,
		EntityType: events.EntityDonor,
		EntityID:   d.ID.String(),
		Version:    d.Version,
		Changes:    changes,
		Actor:      actor.String(),
	})
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit", "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, event, args...)
}

func wrapDonorErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "donor not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
