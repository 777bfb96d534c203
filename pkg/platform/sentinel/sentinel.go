package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped) and
// services translate them into domain errors:
//   - ErrNotFound: no donor, recipient, organ, or custody event under that key
//   - ErrAlreadyExists: the identity is already registered
//   - ErrInvalidState: a guarded mutation found the record in the wrong state
//   - ErrUnavailable: the backing store could not be reached
//
// Field-level validation failures use pkg/domain-errors directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidState  = errors.New("invalid state")
	ErrUnavailable   = errors.New("unavailable")
)
