package domain

import (
	"strconv"
	"strings"
	"unicode"

	dErrors "lifeconnect/pkg/domain-errors"
)

// maxIdentityLength bounds caller handles so they fit the Postgres key columns.
const maxIdentityLength = 128

// Identity is the pre-established, unique handle of a caller (donor, recipient,
// hospital, transporter...). Donor and recipient records are keyed by it.
//
// Invariant: non-empty, at most 128 printable characters, no whitespace.
type Identity string

// ParseIdentity validates an identity at a trust boundary.
func ParseIdentity(s string) (Identity, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "identity is required")
	}
	if len(s) > maxIdentityLength {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "identity is too long")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", dErrors.New(dErrors.CodeInvalidArgument, "identity contains invalid characters")
		}
	}
	return Identity(s), nil
}

func (i Identity) String() string { return string(i) }

// IsNil reports whether the identity is unset.
func (i Identity) IsNil() bool { return i == "" }

// OrganID is the monotonically assigned numeric identity of an organ record.
// The first organ is 0.
type OrganID int64

// ParseOrganID parses a decimal organ identity from a path segment.
func ParseOrganID(s string) (OrganID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidArgument, "invalid organ id")
	}
	return OrganID(n), nil
}

func (id OrganID) String() string { return strconv.FormatInt(int64(id), 10) }
