package models

import (
	"time"

	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
)

// Status is the lifecycle position of an organ:
//
//	Available -> Matched -> InTransit -> Transplanted
//
// with Expired reachable from any non-terminal status once the viability window
// has closed. Status only moves forward.
type Status string

const (
	StatusAvailable    Status = "Available"
	StatusMatched      Status = "Matched"
	StatusInTransit    Status = "InTransit"
	StatusTransplanted Status = "Transplanted"
	StatusExpired      Status = "Expired"
	// StatusRejected is reserved. No operation produces it yet.
	StatusRejected Status = "Rejected"
)

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusTransplanted || s == StatusExpired || s == StatusRejected
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusAvailable, StatusMatched, StatusInTransit, StatusTransplanted, StatusExpired, StatusRejected:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidArgument, "unknown organ status: "+s)
}

// Viability window bounds in hours.
const (
	MinViabilityHours = 1
	MaxViabilityHours = 720
)

// Organ is the atomic unit of the ledger. Donor and recipient are referenced by
// identity only.
//
// Invariants:
//   - ExpiresAt is fixed at creation
//   - Matched, InTransit and Transplanted imply RecipientID and MatchScore are set
//   - RecipientID and MatchScore are written once, by ApplyMatch
//   - Version starts at 1 and the store bumps it on every committed transition
type Organ struct {
	ID              domain.OrganID   `json:"id"`
	DonorID         domain.Identity  `json:"donor_id"`
	OrganType       domain.OrganType `json:"organ_type"`
	Status          Status           `json:"status"`
	HarvestedAt     time.Time        `json:"harvested_at"`
	ExpiresAt       time.Time        `json:"expires_at"`
	RegisteredBy    domain.Identity  `json:"registered_by"`
	RecipientID     *domain.Identity `json:"recipient_id,omitempty"`
	MatchScore      *int             `json:"match_score,omitempty"`
	MatchedBy       domain.Identity  `json:"matched_by,omitempty"`
	TransportDocRef string           `json:"transport_doc_ref,omitempty"`
	Version         int64            `json:"version"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewOrgan builds an Available organ harvested at now. The store assigns ID.
func NewOrgan(donorID domain.Identity, organType domain.OrganType, viabilityHours int, registeredBy domain.Identity, now time.Time) (*Organ, error) {
	if viabilityHours < MinViabilityHours || viabilityHours > MaxViabilityHours {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "viability hours must be between 1 and 720")
	}
	return &Organ{
		DonorID:      donorID,
		OrganType:    organType,
		Status:       StatusAvailable,
		HarvestedAt:  now,
		ExpiresAt:    now.Add(time.Duration(viabilityHours) * time.Hour),
		RegisteredBy: registeredBy,
		Version:      1,
		UpdatedAt:    now,
	}, nil
}

// IsExpiredAt reports whether the viability window has closed at now.
func (o *Organ) IsExpiredAt(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

func (o *Organ) CanMatch(now time.Time) error {
	if o.Status != StatusAvailable {
		return invalidTransition(o.Status, StatusMatched)
	}
	if o.IsExpiredAt(now) {
		return dErrors.New(dErrors.CodeExpired, "organ viability window has closed")
	}
	return nil
}

func (o *Organ) ApplyMatch(recipient domain.Identity, score int, matchedBy domain.Identity, now time.Time) {
	o.RecipientID = &recipient
	o.MatchScore = &score
	o.MatchedBy = matchedBy
	o.Status = StatusMatched
	o.UpdatedAt = now
}

// CanStartTransport does not re-check expiry; a Matched organ was viable when matched.
func (o *Organ) CanStartTransport() error {
	if o.Status != StatusMatched {
		return invalidTransition(o.Status, StatusInTransit)
	}
	return nil
}

func (o *Organ) ApplyStartTransport(docRef string, now time.Time) {
	o.TransportDocRef = docRef
	o.Status = StatusInTransit
	o.UpdatedAt = now
}

func (o *Organ) CanCompleteTransplant(now time.Time) error {
	if o.Status != StatusInTransit {
		return invalidTransition(o.Status, StatusTransplanted)
	}
	if o.IsExpiredAt(now) {
		return dErrors.New(dErrors.CodeExpired, "organ expired in transit")
	}
	return nil
}

func (o *Organ) ApplyTransplant(now time.Time) {
	o.Status = StatusTransplanted
	o.UpdatedAt = now
}

// CanMarkExpired allows expiry from any non-terminal status once the window has closed.
func (o *Organ) CanMarkExpired(now time.Time) error {
	if o.Status.IsTerminal() {
		return invalidTransition(o.Status, StatusExpired)
	}
	if !o.IsExpiredAt(now) {
		return dErrors.New(dErrors.CodeInvalidStateTransition, "organ has not reached its expiry time")
	}
	return nil
}

func (o *Organ) ApplyExpired(now time.Time) {
	o.Status = StatusExpired
	o.UpdatedAt = now
}

func (o *Organ) Clone() *Organ {
	c := *o
	if o.RecipientID != nil {
		r := *o.RecipientID
		c.RecipientID = &r
	}
	if o.MatchScore != nil {
		sc := *o.MatchScore
		c.MatchScore = &sc
	}
	return &c
}

func invalidTransition(from, to Status) error {
	return dErrors.New(dErrors.CodeInvalidStateTransition, "organ cannot move from "+string(from)+" to "+string(to))
}

// Requests

type RegisterOrganRequest struct {
	DonorID        string `json:"donor_id"`
	OrganType      string `json:"organ_type"`
	ViabilityHours int    `json:"viability_hours"`
}

type MatchOrganRequest struct {
	RecipientID string `json:"recipient_id"`
	Score       *int   `json:"score"`
}

type StartTransportRequest struct {
	TransportDocRef string `json:"transport_doc_ref"`
}
