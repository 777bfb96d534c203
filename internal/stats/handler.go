package stats

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lifeconnect/internal/platform/middleware"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/platform/httputil"
)

type Reader interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	RecentActivity(ctx context.Context, limit int, action string) (*Activity, error)
}

type Handler struct {
	stats  Reader
	logger *slog.Logger
}

func NewHandler(stats Reader, logger *slog.Logger) *Handler {
	return &Handler{stats: stats, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/stats", h.handleStats)
	r.Get("/recent-activity", h.handleRecentActivity)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := h.stats.Snapshot(ctx)
	if err != nil {
		h.writeError(ctx, w, "ledger stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxActivityLimit {
			h.writeError(ctx, w, "recent activity", dErrors.New(dErrors.CodeInvalidArgument, "limit must be between 1 and "+strconv.Itoa(MaxActivityLimit)))
			return
		}
		limit = n
	}
	activity, err := h.stats.RecentActivity(ctx, limit, q.Get("action"))
	if err != nil {
		h.writeError(ctx, w, "recent activity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, activity)
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
