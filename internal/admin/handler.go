// Package admin exposes operator endpoints. Routes are mounted behind
// middleware.RequireAdminToken.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lifeconnect/internal/platform/middleware"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/httputil"
)

// Sweeper runs one expiry sweep.
type Sweeper interface {
	SweepOnce(ctx context.Context) (int, error)
}

type Handler struct {
	sweeper Sweeper
	logger  *slog.Logger
}

func New(sweeper Sweeper, logger *slog.Logger) *Handler {
	return &Handler{sweeper: sweeper, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/expiry-sweep", h.handleSweep)
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.sweeper.SweepOnce(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "admin expiry sweep failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "expiry sweep failed"))
		return
	}
	h.logger.InfoContext(ctx, "admin expiry sweep",
		"request_id", middleware.GetRequestID(ctx),
		"expired", n,
	)
	httputil.WriteJSON(w, http.StatusOK, SweepResponse{Expired: n, CompletedAt: time.Now().UTC()})
}
