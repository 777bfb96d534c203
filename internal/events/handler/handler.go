// Package handler streams domain events to dashboards over server-sent events.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lifeconnect/internal/authz"
	"lifeconnect/internal/events"
	"lifeconnect/pkg/platform/httputil"
)

type subscriber interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

type Handler struct {
	broker    subscriber
	logger    *slog.Logger
	keepAlive time.Duration
}

func New(broker subscriber, logger *slog.Logger) *Handler {
	return &Handler{broker: broker, logger: logger, keepAlive: 15 * time.Second}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/events/stream", h.HandleStream)
}

// HandleStream writes every event as an SSE message until the client goes away.
// ?entity=organ limits the stream to one entity type.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := authz.FromContext(ctx, authz.OpRead, ""); err != nil {
		httputil.WriteError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	// The server's WriteTimeout would otherwise cut long-lived streams.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	entity := r.URL.Query().Get("entity")

	ch, cancel := h.broker.Subscribe(64)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, ok := <-ch:
			if !ok {
				return
			}
			if entity != "" && e.EntityType != entity {
				continue
			}
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.ErrorContext(ctx, "failed to encode event for stream", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Name, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
