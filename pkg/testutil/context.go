package testutil

import (
	"context"
	"net/http"
	"time"

	"lifeconnect/pkg/domain"
	"lifeconnect/pkg/requestcontext"
)

// CallerContext builds the context a service sees after authentication.
func CallerContext(ctx context.Context, id string, roles ...domain.Role) context.Context {
	return requestcontext.WithCaller(ctx, requestcontext.Caller{ID: domain.Identity(id), Roles: roles})
}

// AtTime pins the request clock so expiry comparisons are deterministic.
func AtTime(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}

// WithCaller attaches an authenticated caller to req, as RequireAuth would.
func WithCaller(req *http.Request, id string, roles ...domain.Role) *http.Request {
	return req.WithContext(CallerContext(req.Context(), id, roles...))
}
