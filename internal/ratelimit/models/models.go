package models

import (
	"net/http"
	"time"
)

// Class groups endpoints that share a per-caller budget.
type Class string

const (
	// ClassRead covers lookups and listings.
	ClassRead Class = "read"
	// ClassWrite covers registrations, transitions and custody appends.
	ClassWrite Class = "write"
)

// ClassForMethod picks the budget an HTTP method draws from.
func ClassForMethod(method string) Class {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ClassRead
	default:
		return ClassWrite
	}
}

// Limit is the number of requests a caller may make per Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long a rejected caller should wait, rounded up to a second.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return time.Second
	}
	return d.Truncate(time.Second) + time.Second
}

// Key builds the bucket key for a caller and class.
func Key(callerID string, class Class) string {
	return "ratelimit:" + string(class) + ":" + callerID
}
