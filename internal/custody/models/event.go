package models

import (
	"strings"
	"time"

	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
)

// Kind classifies a physical handling action.
type Kind string

const (
	KindPickup     Kind = "Pickup"
	KindHandover   Kind = "Handover"
	KindCheckpoint Kind = "Checkpoint"
	KindDelivery   Kind = "Delivery"
	KindEmergency  Kind = "Emergency"
)

var kinds = []Kind{KindPickup, KindHandover, KindCheckpoint, KindDelivery, KindEmergency}

// ParseKind accepts kind names case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range kinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidArgument, "unknown custody event kind: "+s)
}

// EmergencyStopLocation is the location recorded by an emergency stop.
const EmergencyStopLocation = "Emergency Stop"

// Event is one entry of an organ's custody chain, identified by (OrganID, Seq).
// Seq is assigned by the store: 0 for the first event of an organ, then +1
// with no gaps. Only the verification fields change after append, and only
// from unverified to verified.
type Event struct {
	OrganID     domain.OrganID  `json:"organ_id"`
	Seq         int64           `json:"seq"`
	Kind        Kind            `json:"kind"`
	Actor       domain.Identity `json:"actor"`
	Location    string          `json:"location"`
	Notes       string          `json:"notes"`
	DocumentRef string          `json:"document_ref,omitempty"`
	RecordedAt  time.Time       `json:"recorded_at"`
	Verified    bool            `json:"verified"`
	VerifiedBy  domain.Identity `json:"verified_by,omitempty"`
	VerifiedAt  *time.Time      `json:"verified_at,omitempty"`
}

func NewEvent(organID domain.OrganID, kind Kind, actor domain.Identity, location, notes, documentRef string, now time.Time) *Event {
	return &Event{
		OrganID:     organID,
		Kind:        kind,
		Actor:       actor,
		Location:    location,
		Notes:       notes,
		DocumentRef: documentRef,
		RecordedAt:  now,
	}
}

// ApplyVerify flips the verified flag. It reports false, and leaves the event
// untouched, when the event was already verified.
func (e *Event) ApplyVerify(by domain.Identity, now time.Time) bool {
	if e.Verified {
		return false
	}
	e.Verified = true
	e.VerifiedBy = by
	e.VerifiedAt = &now
	return true
}

func (e *Event) Clone() *Event {
	c := *e
	if e.VerifiedAt != nil {
		at := *e.VerifiedAt
		c.VerifiedAt = &at
	}
	return &c
}

// Requests

type LogEventRequest struct {
	Kind        string `json:"kind"`
	Location    string `json:"location"`
	Notes       string `json:"notes"`
	DocumentRef string `json:"document_ref"`
}

type EmergencyStopRequest struct {
	Reason string `json:"reason"`
}
