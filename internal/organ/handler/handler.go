package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifeconnect/internal/organ/models"
	"lifeconnect/internal/platform/middleware"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/httputil"
)

// Service defines the organ ledger operations exposed over HTTP.
type Service interface {
	RegisterOrgan(ctx context.Context, donorID domain.Identity, organType string, viabilityHours int) (*models.Organ, error)
	MatchOrgan(ctx context.Context, id domain.OrganID, recipientID domain.Identity, score int) (*models.Organ, error)
	StartTransport(ctx context.Context, id domain.OrganID, transportDocRef string) (*models.Organ, error)
	CompleteTransplant(ctx context.Context, id domain.OrganID) (*models.Organ, error)
	MarkExpired(ctx context.Context, id domain.OrganID) (*models.Organ, error)
	GetOrgan(ctx context.Context, id domain.OrganID) (*models.Organ, error)
	ListOrgans(ctx context.Context, status string) ([]*models.Organ, error)
}

type Handler struct {
	organs Service
	logger *slog.Logger
}

func New(organs Service, logger *slog.Logger) *Handler {
	return &Handler{organs: organs, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/organs", h.handleRegister)
	r.Get("/organs", h.handleList)
	r.Get("/organs/{organID}", h.handleGet)
	r.Post("/organs/{organID}/match", h.handleMatch)
	r.Post("/organs/{organID}/transport", h.handleStartTransport)
	r.Post("/organs/{organID}/transplant", h.handleCompleteTransplant)
	r.Post("/organs/{organID}/expire", h.handleMarkExpired)
}

type listResponse struct {
	Organs []*models.Organ `json:"organs"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterOrganRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "register organ", err)
		return
	}
	donorID, err := domain.ParseIdentity(req.DonorID)
	if err != nil {
		h.writeError(ctx, w, "register organ", err)
		return
	}
	o, err := h.organs.RegisterOrgan(ctx, donorID, req.OrganType, req.ViabilityHours)
	if err != nil {
		h.writeError(ctx, w, "register organ", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organs, err := h.organs.ListOrgans(ctx, r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(ctx, w, "list organs", err)
		return
	}
	if organs == nil {
		organs = []*models.Organ{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Organs: organs})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.withOrganID(w, r, "get organ", func(ctx context.Context, id domain.OrganID) (*models.Organ, error) {
		return h.organs.GetOrgan(ctx, id)
	})
}

func (h *Handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req models.MatchOrganRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(r.Context(), w, "match organ", err)
		return
	}
	if req.Score == nil {
		h.writeError(r.Context(), w, "match organ", dErrors.New(dErrors.CodeInvalidArgument, "score is required"))
		return
	}
	recipientID, err := domain.ParseIdentity(req.RecipientID)
	if err != nil {
		h.writeError(r.Context(), w, "match organ", err)
		return
	}
	h.withOrganID(w, r, "match organ", func(ctx context.Context, id domain.OrganID) (*models.Organ, error) {
		return h.organs.MatchOrgan(ctx, id, recipientID, *req.Score)
	})
}

func (h *Handler) handleStartTransport(w http.ResponseWriter, r *http.Request) {
	var req models.StartTransportRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(r.Context(), w, "start transport", err)
		return
	}
	h.withOrganID(w, r, "start transport", func(ctx context.Context, id domain.OrganID) (*models.Organ, error) {
		return h.organs.StartTransport(ctx, id, req.TransportDocRef)
	})
}

func (h *Handler) handleCompleteTransplant(w http.ResponseWriter, r *http.Request) {
	h.withOrganID(w, r, "complete transplant", func(ctx context.Context, id domain.OrganID) (*models.Organ, error) {
		return h.organs.CompleteTransplant(ctx, id)
	})
}

func (h *Handler) handleMarkExpired(w http.ResponseWriter, r *http.Request) {
	h.withOrganID(w, r, "mark expired", func(ctx context.Context, id domain.OrganID) (*models.Organ, error) {
		return h.organs.MarkExpired(ctx, id)
	})
}

// withOrganID parses {organID}, runs fn and renders the resulting organ.
func (h *Handler) withOrganID(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, domain.OrganID) (*models.Organ, error)) {
	ctx := r.Context()
	id, err := domain.ParseOrganID(chi.URLParam(r, "organID"))
	if err != nil {
		h.writeError(ctx, w, op, err)
		return
	}
	o, err := fn(ctx, id)
	if err != nil {
		h.writeError(ctx, w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, op+" failed",
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
