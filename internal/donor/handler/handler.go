package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifeconnect/internal/donor/models"
	"lifeconnect/internal/platform/middleware"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/httputil"
)

// Service defines the donor registry operations exposed over HTTP.
type Service interface {
	RegisterDonor(ctx context.Context, req *models.RegisterDonorRequest) (*models.Donor, error)
	UpdateConsent(ctx context.Context, consent bool) (*models.Donor, error)
	UpdateHealthRecordRef(ctx context.Context, ref string) (*models.Donor, error)
	GetDonor(ctx context.Context, id domain.Identity) (*models.Donor, error)
	ListDonors(ctx context.Context) ([]*models.Donor, error)
}

type Handler struct {
	donors Service
	logger *slog.Logger
}

func New(donors Service, logger *slog.Logger) *Handler {
	return &Handler{donors: donors, logger: logger}
}

// Register mounts the donor routes. The router is expected to run RequireAuth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/donors", h.handleRegister)
	r.Get("/donors", h.handleList)
	r.Put("/donors/me/consent", h.handleUpdateConsent)
	r.Put("/donors/me/health-record", h.handleUpdateHealthRecord)
	r.Get("/donors/{id}", h.handleGet)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterDonorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "register donor", err)
		return
	}
	d, err := h.donors.RegisterDonor(ctx, &req)
	if err != nil {
		h.writeError(ctx, w, "register donor", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleUpdateConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.UpdateConsentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "update consent", err)
		return
	}
	if req.Consent == nil {
		h.writeError(ctx, w, "update consent", dErrors.New(dErrors.CodeInvalidArgument, "consent is required"))
		return
	}
	d, err := h.donors.UpdateConsent(ctx, *req.Consent)
	if err != nil {
		h.writeError(ctx, w, "update consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleUpdateHealthRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.UpdateHealthRecordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "update health record", err)
		return
	}
	d, err := h.donors.UpdateHealthRecordRef(ctx, req.HealthRecordRef)
	if err != nil {
		h.writeError(ctx, w, "update health record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseIdentity(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "get donor", err)
		return
	}
	d, err := h.donors.GetDonor(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "get donor", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

type listResponse struct {
	Donors []*models.Donor `json:"donors"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donors, err := h.donors.ListDonors(ctx)
	if err != nil {
		h.writeError(ctx, w, "list donors", err)
		return
	}
	if donors == nil {
		donors = []*models.Donor{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Donors: donors})
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
