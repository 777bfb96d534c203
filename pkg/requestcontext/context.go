// Package requestcontext provides HTTP-independent accessors for request-scoped values.
//
// Middleware sets the caller and request metadata; services read them. Keeping
// this package free of net/http lets workers and tests build the same context:
//
//	ctx = requestcontext.WithCaller(ctx, requestcontext.Caller{ID: "hospital-a", Roles: []domain.Role{domain.RoleHospital}})
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"slices"
	"time"

	"lifeconnect/pkg/domain"
)

type (
	callerKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyCaller      = callerKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Caller is the explicit authorization context of an operation: who is acting
// and with which roles. Services never infer identity from anything else.
type Caller struct {
	ID    domain.Identity
	Roles []domain.Role
}

// IsNil reports whether no identity was presented.
func (c Caller) IsNil() bool { return c.ID.IsNil() }

// HasRole reports whether the caller carries any of roles.
func (c Caller) HasRole(roles ...domain.Role) bool {
	for _, r := range roles {
		if slices.Contains(c.Roles, r) {
			return true
		}
	}
	return false
}

// WithCaller injects the authorization context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// CallerFrom returns the caller, or the zero Caller if none was set.
func CallerFrom(ctx context.Context) Caller {
	if c, ok := ctx.Value(ContextKeyCaller).(Caller); ok {
		return c
	}
	return Caller{}
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() when unset (workers, CLI, most tests).
//
// Expiry checks read the clock exclusively through Now, so a transition is
// judged against a single instant even if it spans several store calls.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request time.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
