package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lifeconnect/internal/authz"
	donorModels "lifeconnect/internal/donor/models"
	"lifeconnect/internal/events"
	"lifeconnect/internal/organ/models"
	"lifeconnect/internal/platform/metrics"
	"lifeconnect/internal/platform/tracing"
	recipientModels "lifeconnect/internal/recipient/models"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/sentinel"
	"lifeconnect/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, o *models.Organ, record func(context.Context, *models.Organ) error) (domain.OrganID, error)
	FindByID(ctx context.Context, id domain.OrganID) (*models.Organ, error)
	Execute(ctx context.Context, id domain.OrganID, validate func(*models.Organ) error, mutate func(*models.Organ), record func(context.Context, *models.Organ) error) (*models.Organ, error)
	List(ctx context.Context, status *models.Status) ([]*models.Organ, error)
	ListDueForExpiry(ctx context.Context, now time.Time) ([]domain.OrganID, error)
	HasTransplant(ctx context.Context, recipient domain.Identity) (bool, error)
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
}

// DonorLookup reads donors for validation. Donor fields are never copied onto organs.
type DonorLookup interface {
	FindDonor(ctx context.Context, id domain.Identity) (*donorModels.Donor, error)
}

type RecipientLookup interface {
	FindRecipient(ctx context.Context, id domain.Identity) (*recipientModels.Recipient, error)
}

type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service is the organ ledger. Every write goes through Store.Execute, which
// serialises transitions per organ. Events are emitted from the store's record
// callback, so each one is journaled with its transition and in version order.
type Service struct {
	store      Store
	donors     DonorLookup
	recipients RecipientLookup
	publisher  EventPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
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

func New(store Store, donors DonorLookup, recipients RecipientLookup, opts ...Option) *Service {
	s := &Service{
		store:      store,
		donors:     donors,
		recipients: recipients,
		tracer:     tracing.Tracer("organ"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterOrgan enters a harvested organ for a consenting donor. The organ is
// Available and expires viabilityHours after now.
func (s *Service) RegisterOrgan(ctx context.Context, donorID domain.Identity, organType string, viabilityHours int) (o *models.Organ, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organ.register", attribute.String("donor_id", donorID.String()))
	defer func() { s.finish(span, authz.OpRegisterOrgan, err) }()

	caller, err := s.authorize(ctx, authz.OpRegisterOrgan)
	if err != nil {
		return nil, err
	}
	ot, err := domain.ParseOrganType(organType)
	if err != nil {
		return nil, err
	}
	donor, err := s.donors.FindDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if err := donor.CanDonate(ot); err != nil {
		return nil, err
	}

	o, err = models.NewOrgan(donor.ID, ot, viabilityHours, caller.ID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	_, err = s.store.Create(ctx, o, func(ctx context.Context, o *models.Organ) error {
		return s.emit(ctx, events.OrganRegistered, o, caller.ID, map[string]any{
			"status":     o.Status,
			"donor_id":   o.DonorID,
			"organ_type": o.OrganType,
			"expires_at": o.ExpiresAt,
		})
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register organ")
	}
	span.SetAttributes(attribute.Int64("organ_id", int64(o.ID)))

	s.metrics.IncrementOrgansRegistered()
	s.logAudit(ctx, string(events.OrganRegistered), "organ_id", o.ID, "donor_id", o.DonorID, "organ_type", o.OrganType)
	return o, nil
}

// MatchOrgan records the recipient and score an external matcher chose. At most
// one caller wins the Available to Matched transition.
func (s *Service) MatchOrgan(ctx context.Context, id domain.OrganID, recipientID domain.Identity, score int) (o *models.Organ, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organ.match",
		attribute.Int64("organ_id", int64(id)), attribute.String("recipient_id", recipientID.String()))
	defer func() { s.finish(span, authz.OpMatchOrgan, err) }()

	caller, err := s.authorize(ctx, authz.OpMatchOrgan)
	if err != nil {
		return nil, err
	}
	if _, err := s.recipients.FindRecipient(ctx, recipientID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	o, err = s.store.Execute(ctx, id,
		func(o *models.Organ) error { return o.CanMatch(now) },
		func(o *models.Organ) { o.ApplyMatch(recipientID, score, caller.ID, now) },
		func(ctx context.Context, o *models.Organ) error {
			return s.emit(ctx, events.OrganMatched, o, caller.ID, map[string]any{
				"status":       o.Status,
				"recipient_id": recipientID,
				"match_score":  score,
				"matched_by":   caller.ID,
			})
		},
	)
	if err != nil {
		return nil, wrapOrganErr(err, "failed to match organ")
	}

	s.transitioned(ctx, events.OrganMatched, o, caller.ID)
	return o, nil
}

// StartTransport moves a Matched organ into transit. Expiry is not re-checked here.
func (s *Service) StartTransport(ctx context.Context, id domain.OrganID, transportDocRef string) (o *models.Organ, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organ.start_transport", attribute.Int64("organ_id", int64(id)))
	defer func() { s.finish(span, authz.OpStartTransport, err) }()

	caller, err := s.authorize(ctx, authz.OpStartTransport)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	o, err = s.store.Execute(ctx, id,
		func(o *models.Organ) error { return o.CanStartTransport() },
		func(o *models.Organ) { o.ApplyStartTransport(transportDocRef, now) },
		func(ctx context.Context, o *models.Organ) error {
			return s.emit(ctx, events.OrganInTransit, o, caller.ID, map[string]any{
				"status":            o.Status,
				"transport_doc_ref": transportDocRef,
			})
		},
	)
	if err != nil {
		return nil, wrapOrganErr(err, "failed to start transport")
	}

	s.transitioned(ctx, events.OrganInTransit, o, caller.ID)
	return o, nil
}

// CompleteTransplant is refused with Expired if the window closed while in transit.
func (s *Service) CompleteTransplant(ctx context.Context, id domain.OrganID) (o *models.Organ, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organ.complete_transplant", attribute.Int64("organ_id", int64(id)))
	defer func() { s.finish(span, authz.OpCompleteTransplant, err) }()

	caller, err := s.authorize(ctx, authz.OpCompleteTransplant)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	o, err = s.store.Execute(ctx, id,
		func(o *models.Organ) error { return o.CanCompleteTransplant(now) },
		func(o *models.Organ) { o.ApplyTransplant(now) },
		func(ctx context.Context, o *models.Organ) error {
			return s.emit(ctx, events.OrganTransplanted, o, caller.ID, map[string]any{"status": o.Status})
		},
	)
	if err != nil {
		return nil, wrapOrganErr(err, "failed to complete transplant")
	}

	s.transitioned(ctx, events.OrganTransplanted, o, caller.ID)
	return o, nil
}

// MarkExpired closes a non-terminal organ whose window has passed. Any
// authenticated caller may trigger it, including the background sweeper.
func (s *Service) MarkExpired(ctx context.Context, id domain.OrganID) (o *models.Organ, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "organ.mark_expired", attribute.Int64("organ_id", int64(id)))
	defer func() { s.finish(span, authz.OpMarkExpired, err) }()

	caller, err := s.authorize(ctx, authz.OpMarkExpired)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var previous models.Status
	o, err = s.store.Execute(ctx, id,
		func(o *models.Organ) error {
			previous = o.Status
			return o.CanMarkExpired(now)
		},
		func(o *models.Organ) { o.ApplyExpired(now) },
		func(ctx context.Context, o *models.Organ) error {
			return s.emit(ctx, events.OrganExpired, o, caller.ID, map[string]any{
				"status":          o.Status,
				"previous_status": previous,
			})
		},
	)
	if err != nil {
		return nil, wrapOrganErr(err, "failed to mark organ expired")
	}

	s.transitioned(ctx, events.OrganExpired, o, caller.ID)
	return o, nil
}

func (s *Service) GetOrgan(ctx context.Context, id domain.OrganID) (*models.Organ, error) {
	if _, err := s.authorize(ctx, authz.OpRead); err != nil {
		return nil, err
	}
	o, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapOrganErr(err, "failed to load organ")
	}
	return o, nil
}

// ListOrgans returns organs in ID order. An empty status lists every organ.
func (s *Service) ListOrgans(ctx context.Context, status string) ([]*models.Organ, error) {
	if _, err := s.authorize(ctx, authz.OpRead); err != nil {
		return nil, err
	}
	var filter *models.Status
	if status != "" {
		st, err := models.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter = &st
	}
	organs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organs")
	}
	return organs, nil
}

// DueForExpiry lists organs a MarkExpired call would currently accept.
func (s *Service) DueForExpiry(ctx context.Context) ([]domain.OrganID, error) {
	if _, err := s.authorize(ctx, authz.OpRead); err != nil {
		return nil, err
	}
	ids, err := s.store.ListDueForExpiry(ctx, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organs due for expiry")
	}
	return ids, nil
}

// OrganExists is the unguarded existence check used by the custody log.
func (s *Service) OrganExists(ctx context.Context, id domain.OrganID) (bool, error) {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// HasTransplant lets the recipient registry refuse updates after a transplant.
// CountByStatus feeds the ledger statistics.
func (s *Service) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count organs")
	}
	return counts, nil
}

func (s *Service) HasTransplant(ctx context.Context, recipient domain.Identity) (bool, error) {
	return s.store.HasTransplant(ctx, recipient)
}

func (s *Service) authorize(ctx context.Context, op authz.Operation) (requestcontext.Caller, error) {
	caller, err := authz.FromContext(ctx, op, "")
	if err != nil {
		s.metrics.IncrementAuthorizationDenied(string(op))
		return caller, err
	}
	return caller, nil
}

func (s *Service) transitioned(ctx context.Context, name events.Name, o *models.Organ, actor domain.Identity) {
	s.metrics.IncrementTransition(string(o.Status))
	s.logAudit(ctx, string(name), "organ_id", o.ID, "status", o.Status, "version", o.Version, "actor", actor)
}

// finish records the outcome of a ledger operation on its span and in metrics.
func (s *Service) finish(span trace.Span, op authz.Operation, err error) {
	if err != nil {
		code := dErrors.CodeOf(err)
		if code != dErrors.CodeUnauthorized {
			s.metrics.IncrementRejected(string(op), string(code))
		}
	}
	tracing.End(span, err)
}

// emit runs inside the store's record callback. A returned error aborts the
// transition.
func (s *Service) emit(ctx context.Context, name events.Name, o *models.Organ, actor domain.Identity, changes map[string]any) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Emit(ctx, events.Event{
		Name:       name,
		EntityType: events.EntityOrgan,
		EntityID:   o.ID.String(),
		Version:    o.Version,
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

func wrapOrganErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "organ not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
