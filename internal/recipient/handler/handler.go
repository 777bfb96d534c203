package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifeconnect/internal/platform/middleware"
	"lifeconnect/internal/recipient/models"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/httputil"
)

// Service defines the recipient registry operations exposed over HTTP.
type Service interface {
	RegisterRecipient(ctx context.Context, req *models.RegisterRecipientRequest) (*models.Recipient, error)
	UpdateUrgency(ctx context.Context, id domain.Identity, score int) (*models.Recipient, error)
	GetRecipient(ctx context.Context, id domain.Identity) (*models.Recipient, error)
	ListAll(ctx context.Context) ([]domain.Identity, error)
}

type Handler struct {
	recipients Service
	logger     *slog.Logger
}

func New(recipients Service, logger *slog.Logger) *Handler {
	return &Handler{recipients: recipients, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/recipients", h.handleRegister)
	r.Get("/recipients", h.handleList)
	r.Get("/recipients/{id}", h.handleGet)
	r.Put("/recipients/{id}/urgency", h.handleUpdateUrgency)
}

type listResponse struct {
	Recipients []domain.Identity `json:"recipients"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterRecipientRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "register recipient", err)
		return
	}
	rec, err := h.recipients.RegisterRecipient(ctx, &req)
	if err != nil {
		h.writeError(ctx, w, "register recipient", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ids, err := h.recipients.ListAll(ctx)
	if err != nil {
		h.writeError(ctx, w, "list recipients", err)
		return
	}
	if ids == nil {
		ids = []domain.Identity{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Recipients: ids})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseIdentity(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "get recipient", err)
		return
	}
	rec, err := h.recipients.GetRecipient(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "get recipient", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleUpdateUrgency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseIdentity(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "update urgency", err)
		return
	}
	var req models.UpdateUrgencyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "update urgency", err)
		return
	}
	rec, err := h.recipients.UpdateUrgency(ctx, id, req.Urgency)
	if err != nil {
		h.writeError(ctx, w, "update urgency", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
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
