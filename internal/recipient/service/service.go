package service

import (
	"context"
	"errors"
	"log/slog"

	"lifeconnect/internal/authz"
	"lifeconnect/internal/events"
	"lifeconnect/internal/platform/metrics"
	"lifeconnect/internal/recipient/models"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/sentinel"
	"lifeconnect/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, r *models.Recipient, record func(context.Context, *models.Recipient) error) error
	FindByID(ctx context.Context, id domain.Identity) (*models.Recipient, error)
	ListIDs(ctx context.Context) ([]domain.Identity, error)
	Count(ctx context.Context) (int, error)
	Execute(ctx context.Context, id domain.Identity, validate func(*models.Recipient) error, mutate func(*models.Recipient), record func(context.Context, *models.Recipient) error) (*models.Recipient, error)
}

// TransplantLookup answers whether a recipient has already received an organ.
// The organ ledger implements it; the registry only reads through it.
type TransplantLookup interface {
	HasTransplant(ctx context.Context, recipient domain.Identity) (bool, error)
}

type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service is the recipient registry.
type Service struct {
	store       Store
	transplants TransplantLookup
	publisher   EventPublisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
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

// WithTransplantLookup enables the terminal-state check on urgency updates.
func WithTransplantLookup(l TransplantLookup) Option {
	return func(s *Service) { s.transplants = l }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) RegisterRecipient(ctx context.Context, req *models.RegisterRecipientRequest) (*models.Recipient, error) {
	caller := requestcontext.CallerFrom(ctx)
	if err := s.authorize(caller, authz.OpRegisterRecipient, caller.ID); err != nil {
		return nil, err
	}

	r, err := models.NewRecipient(caller.ID, req.Name, req.BloodType, req.OrganNeeded, req.Urgency, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	err = s.store.Create(ctx, r, func(ctx context.Context, r *models.Recipient) error {
		return s.emit(ctx, events.RecipientRegistered, r, caller.ID, map[string]any{
			"organ_needed": r.OrganNeeded,
			"blood_type":   r.BloodType,
			"urgency":      r.Urgency,
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "recipient is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register recipient")
	}

	s.metrics.IncrementRecipientsRegistered()
	s.logAudit(ctx, string(events.RecipientRegistered), "recipient_id", r.ID)
	return r, nil
}

// UpdateUrgency may be called by the recipient or by a hospital or regulator.
// It is refused once the recipient has received a transplant. The transplant
// check runs while the recipient record is locked, so a transplant committed
// before the update takes the lock always wins.
func (s *Service) UpdateUrgency(ctx context.Context, id domain.Identity, score int) (*models.Recipient, error) {
	caller := requestcontext.CallerFrom(ctx)
	if err := s.authorize(caller, authz.OpUpdateUrgency, id); err != nil {
		return nil, err
	}
	if err := models.ValidateUrgency(score); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var previous int
	r, err := s.store.Execute(ctx, id,
		func(r *models.Recipient) error {
			previous = r.Urgency
			return s.checkNoTransplant(ctx, r.ID)
		},
		func(r *models.Recipient) { r.ApplyUrgency(score, now) },
		func(ctx context.Context, r *models.Recipient) error {
			return s.emit(ctx, events.RecipientUrgencyUpdated, r, caller.ID, map[string]any{"urgency": score})
		},
	)
	if err != nil {
		return nil, wrapRecipientErr(err, "failed to update urgency")
	}

	s.logAudit(ctx, string(events.RecipientUrgencyUpdated), "recipient_id", r.ID, "urgency", score, "previous", previous)
	return r, nil
}

func (s *Service) checkNoTransplant(ctx context.Context, id domain.Identity) error {
	if s.transplants == nil {
		return nil
	}
	done, err := s.transplants.HasTransplant(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check transplant status")
	}
	if done {
		return dErrors.New(dErrors.CodeInvalidStateTransition, "recipient has already received a transplant")
	}
	return nil
}

func (s *Service) GetRecipient(ctx context.Context, id domain.Identity) (*models.Recipient, error) {
	if err := s.authorize(requestcontext.CallerFrom(ctx), authz.OpRead, ""); err != nil {
		return nil, err
	}
	return s.FindRecipient(ctx, id)
}

// FindRecipient is the unguarded lookup used by the organ ledger when matching.
func (s *Service) FindRecipient(ctx context.Context, id domain.Identity) (*models.Recipient, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRecipientErr(err, "failed to load recipient")
	}
	return r, nil
}

// ListAll returns recipient identities in registration order.
func (s *Service) ListAll(ctx context.Context) ([]domain.Identity, error) {
	if err := s.authorize(requestcontext.CallerFrom(ctx), authz.OpRead, ""); err != nil {
		return nil, err
	}
	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list recipients")
	}
	return ids, nil
}

// CountRecipients feeds the ledger statistics.
func (s *Service) CountRecipients(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count recipients")
	}
	return n, nil
}

func (s *Service) authorize(caller requestcontext.Caller, op authz.Operation, owner domain.Identity) error {
	if err := authz.Check(caller, op, owner); err != nil {
		s.metrics.IncrementAuthorizationDenied(string(op))
		return err
	}
	return nil
}

func (s *Service) emit(ctx context.Context, name events.Name, r *models.Recipient, actor domain.Identity, changes map[string]any) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Emit(ctx, events.Event{
		Name:       name,
		EntityType: events.EntityRecipient,
		EntityID:   r.ID.String(),
		Version:    r.Version,
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

func wrapRecipientErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "recipient not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
