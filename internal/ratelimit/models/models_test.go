package models

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassForMethod(t *testing.T) {
	assert.Equal(t, ClassRead, ClassForMethod(http.MethodGet))
	assert.Equal(t, ClassRead, ClassForMethod(http.MethodHead))
	assert.Equal(t, ClassWrite, ClassForMethod(http.MethodPost))
	assert.Equal(t, ClassWrite, ClassForMethod(http.MethodDelete))
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("rounds up to the next second", func(t *testing.T) {
		r := Result{ResetAt: now.Add(2500 * time.Millisecond)}
		assert.Equal(t, 3*time.Second, r.RetryAfter(now))
	})

	t.Run("never below one second", func(t *testing.T) {
		r := Result{ResetAt: now.Add(-time.Minute)}
		assert.Equal(t, time.Second, r.RetryAfter(now))
	})
}

func TestKey(t *testing.T) {
	assert.Equal(t, "ratelimit:write:hospital-a", Key("hospital-a", ClassWrite))
}
