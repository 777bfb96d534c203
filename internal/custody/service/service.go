package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lifeconnect/internal/authz"
	"lifeconnect/internal/custody/models"
	"lifeconnect/internal/events"
	"lifeconnect/internal/platform/metrics"
	"lifeconnect/internal/platform/tracing"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/sentinel"
	"lifeconnect/pkg/requestcontext"
)

// Store record callbacks receive the organ's custody revision, which increases
// by one per append or verification of that organ's chain.
type Store interface {
	Append(ctx context.Context, e *models.Event, record func(context.Context, *models.Event, int64) error) (*models.Event, error)
	List(ctx context.Context, organID domain.OrganID) ([]*models.Event, error)
	Latest(ctx context.Context, organID domain.OrganID) (*models.Event, error)
	Verify(ctx context.Context, organID domain.OrganID, seq int64, by domain.Identity, now time.Time, record func(context.Context, *models.Event, int64) error) (*models.Event, bool, error)
	CountUnverified(ctx context.Context) (int, error)
}

// OrganLookup confirms an organ exists. Custody never reads or changes organ status.
type OrganLookup interface {
	OrganExists(ctx context.Context, id domain.OrganID) (bool, error)
}

type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service is the custody log: an append-only chain per organ with a
// log-then-verify workflow.
type Service struct {
	store     Store
	organs    OrganLookup
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
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

func New(store Store, organs OrganLookup, opts ...Option) *Service {
	s := &Service{
		store:  store,
		organs: organs,
		tracer: tracing.Tracer("custody"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LogEvent appends to the organ's chain in any organ status, including after
// expiry, and returns the event with its assigned sequence number.
func (s *Service) LogEvent(ctx context.Context, organID domain.OrganID, kind, location, notes, documentRef string) (e *models.Event, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "custody.log_event", attribute.Int64("organ_id", int64(organID)))
	defer func() { s.finish(span, authz.OpLogEvent, err) }()

	caller, err := s.authorize(ctx, authz.OpLogEvent)
	if err != nil {
		return nil, err
	}
	k, err := models.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, models.NewEvent(organID, k, caller.ID, location, notes, documentRef, requestcontext.Now(ctx)), events.CustodyEventLogged)
}

// EmergencyStop appends an Emergency event. Organ status is left unchanged.
func (s *Service) EmergencyStop(ctx context.Context, organID domain.OrganID, reason string) (e *models.Event, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "custody.emergency_stop", attribute.Int64("organ_id", int64(organID)))
	defer func() { s.finish(span, authz.OpEmergencyStop, err) }()

	caller, err := s.authorize(ctx, authz.OpEmergencyStop)
	if err != nil {
		return nil, err
	}
	ev := models.NewEvent(organID, models.KindEmergency, caller.ID, models.EmergencyStopLocation, reason, "", requestcontext.Now(ctx))
	return s.append(ctx, ev, events.CustodyEmergencyStop)
}

func (s *Service) append(ctx context.Context, ev *models.Event, name events.Name) (*models.Event, error) {
	if err := s.requireOrgan(ctx, ev.OrganID); err != nil {
		return nil, err
	}
	stored, err := s.store.Append(ctx, ev, func(ctx context.Context, e *models.Event, revision int64) error {
		return s.emit(ctx, name, e, revision, map[string]any{
			"seq":          e.Seq,
			"kind":         e.Kind,
			"location":     e.Location,
			"notes":        e.Notes,
			"document_ref": e.DocumentRef,
		})
	})
	if err != nil {
		return nil, wrapCustodyErr(err, "organ not found", "failed to append custody event")
	}

	s.metrics.IncrementCustodyAppended(string(stored.Kind))
	s.logAudit(ctx, string(name), "organ_id", stored.OrganID, "seq", stored.Seq, "kind", stored.Kind, "actor", stored.Actor)
	return stored, nil
}

// VerifyEvent is idempotent: re-verifying succeeds without a second event.
func (s *Service) VerifyEvent(ctx context.Context, organID domain.OrganID, seq int64) (e *models.Event, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "custody.verify_event",
		attribute.Int64("organ_id", int64(organID)), attribute.Int64("seq", seq))
	defer func() { s.finish(span, authz.OpVerifyEvent, err) }()

	caller, err := s.authorize(ctx, authz.OpVerifyEvent)
	if err != nil {
		return nil, err
	}
	e, changed, err := s.store.Verify(ctx, organID, seq, caller.ID, requestcontext.Now(ctx),
		func(ctx context.Context, e *models.Event, revision int64) error {
			return s.emit(ctx, events.CustodyEventVerified, e, revision, map[string]any{
				"seq":         seq,
				"verified":    true,
				"verified_by": caller.ID,
			})
		},
	)
	if err != nil {
		return nil, wrapCustodyErr(err, "custody event not found", "failed to verify custody event")
	}
	if !changed {
		return e, nil
	}

	s.logAudit(ctx, string(events.CustodyEventVerified), "organ_id", organID, "seq", seq, "actor", caller.ID)
	return e, nil
}

// GetChain returns the organ's events in sequence order; a known organ with no
// events has an empty chain.
func (s *Service) GetChain(ctx context.Context, organID domain.OrganID) ([]*models.Event, error) {
	if _, err := s.authorize(ctx, authz.OpRead); err != nil {
		return nil, err
	}
	if err := s.requireOrgan(ctx, organID); err != nil {
		return nil, err
	}
	chain, err := s.store.List(ctx, organID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody chain")
	}
	return chain, nil
}

func (s *Service) GetLatestEvent(ctx context.Context, organID domain.OrganID) (*models.Event, error) {
	if _, err := s.authorize(ctx, authz.OpRead); err != nil {
		return nil, err
	}
	if err := s.requireOrgan(ctx, organID); err != nil {
		return nil, err
	}
	e, err := s.store.Latest(ctx, organID)
	if err != nil {
		return nil, wrapCustodyErr(err, "custody chain is empty", "failed to load latest custody event")
	}
	return e, nil
}

// CountUnverified feeds the ledger statistics.
func (s *Service) CountUnverified(ctx context.Context) (int, error) {
	n, err := s.store.CountUnverified(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count unverified custody events")
	}
	return n, nil
}

func (s *Service) requireOrgan(ctx context.Context, organID domain.OrganID) error {
	ok, err := s.organs.OrganExists(ctx, organID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up organ")
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "organ not found")
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, op authz.Operation) (requestcontext.Caller, error) {
	caller, err := authz.FromContext(ctx, op, "")
	if err != nil {
		s.metrics.IncrementAuthorizationDenied(string(op))
	}
	return caller, err
}

func (s *Service) finish(span trace.Span, op authz.Operation, err error) {
	if err != nil && !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
		s.metrics.IncrementRejected(string(op), string(dErrors.CodeOf(err)))
	}
	tracing.End(span, err)
}

func (s *Service) emit(ctx context.Context, name events.Name, e *models.Event, revision int64, changes map[string]any) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Emit(ctx, events.Event{
		Name:       name,
		EntityType: events.EntityCustody,
		EntityID:   e.OrganID.String(),
		Version:    revision,
		Changes:    changes,
		Actor:      requestcontext.CallerFrom(ctx).ID.String(),
	})
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit", "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, event, args...)
}

func wrapCustodyErr(err error, notFound, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFound)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
