// Package domainerrors defines the typed error taxonomy returned by ledger services.
//
// Services return *Error values built with New or Wrap. Transport layers map the
// Code to a status via ToHTTPStatus; callers branch on HasCode.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies the failure class of an operation.
type Code string

const (
	CodeNotFound               Code = "not_found"
	CodeAlreadyExists          Code = "already_exists"
	CodeInvalidArgument        Code = "invalid_argument"
	CodeUnauthorized           Code = "unauthorized"
	CodeInvalidStateTransition Code = "invalid_state_transition"
	CodeExpired                Code = "expired"
	CodeTimeout                Code = "timeout"
	CodeRateLimited            Code = "rate_limited"
	CodeInternal               Code = "internal"
)

// Error carries a Code and a client-safe message. The wrapped error, if any, is
// kept for logs and errors.Is/As chains but never rendered to callers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without a cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap builds an Error around an underlying cause.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a Code to the status returned by the HTTP binding.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidStateTransition:
		return http.StatusConflict
	case CodeExpired:
		return http.StatusGone
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
