package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lifeconnect/internal/custody/models"
	"lifeconnect/internal/platform/middleware"
	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/httputil"
)

// Service defines the custody log operations exposed over HTTP.
type Service interface {
	LogEvent(ctx context.Context, organID domain.OrganID, kind, location, notes, documentRef string) (*models.Event, error)
	VerifyEvent(ctx context.Context, organID domain.OrganID, seq int64) (*models.Event, error)
	EmergencyStop(ctx context.Context, organID domain.OrganID, reason string) (*models.Event, error)
	GetChain(ctx context.Context, organID domain.OrganID) ([]*models.Event, error)
	GetLatestEvent(ctx context.Context, organID domain.OrganID) (*models.Event, error)
}

type Handler struct {
	custody Service
	logger  *slog.Logger
}

func New(custody Service, logger *slog.Logger) *Handler {
	return &Handler{custody: custody, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/organs/{organID}/custody", func(r chi.Router) {
		r.Post("/", h.handleLogEvent)
		r.Get("/", h.handleGetChain)
		r.Get("/latest", h.handleGetLatest)
		r.Post("/emergency-stop", h.handleEmergencyStop)
		r.Post("/{seq}/verify", h.handleVerify)
	})
}

type chainResponse struct {
	Events []*models.Event `json:"events"`
}

func (h *Handler) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organID, ok := h.organID(w, r, "log custody event")
	if !ok {
		return
	}
	var req models.LogEventRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "log custody event", err)
		return
	}
	e, err := h.custody.LogEvent(ctx, organID, req.Kind, req.Location, req.Notes, req.DocumentRef)
	if err != nil {
		h.writeError(ctx, w, "log custody event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organID, ok := h.organID(w, r, "emergency stop")
	if !ok {
		return
	}
	var req models.EmergencyStopRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "emergency stop", err)
		return
	}
	e, err := h.custody.EmergencyStop(ctx, organID, req.Reason)
	if err != nil {
		h.writeError(ctx, w, "emergency stop", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organID, ok := h.organID(w, r, "verify custody event")
	if !ok {
		return
	}
	seq, err := strconv.ParseInt(chi.URLParam(r, "seq"), 10, 64)
	if err != nil || seq < 0 {
		h.writeError(ctx, w, "verify custody event", dErrors.New(dErrors.CodeInvalidArgument, "invalid sequence number"))
		return
	}
	e, err := h.custody.VerifyEvent(ctx, organID, seq)
	if err != nil {
		h.writeError(ctx, w, "verify custody event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) handleGetChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organID, ok := h.organID(w, r, "get custody chain")
	if !ok {
		return
	}
	chain, err := h.custody.GetChain(ctx, organID)
	if err != nil {
		h.writeError(ctx, w, "get custody chain", err)
		return
	}
	if chain == nil {
		chain = []*models.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, chainResponse{Events: chain})
}

func (h *Handler) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organID, ok := h.organID(w, r, "get latest custody event")
	if !ok {
		return
	}
	e, err := h.custody.GetLatestEvent(ctx, organID)
	if err != nil {
		h.writeError(ctx, w, "get latest custody event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) organID(w http.ResponseWriter, r *http.Request, op string) (domain.OrganID, bool) {
	id, err := domain.ParseOrganID(chi.URLParam(r, "organID"))
	if err != nil {
		h.writeError(r.Context(), w, op, err)
		return 0, false
	}
	return id, true
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
