package models

import (
	"strings"
	"time"

	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
)

// Urgency bounds. Higher is more urgent.
const (
	MinUrgency = 1
	MaxUrgency = 100
)

// Recipient is keyed by the identity that registered it.
type Recipient struct {
	ID           domain.Identity  `json:"id"`
	Name         string           `json:"name"`
	BloodType    domain.BloodType `json:"blood_type"`
	OrganNeeded  domain.OrganType `json:"organ_needed"`
	Urgency      int              `json:"urgency"`
	Active       bool             `json:"active"`
	Version      int64            `json:"version"`
	RegisteredAt time.Time        `json:"registered_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func NewRecipient(id domain.Identity, name, bloodType, organType string, urgency int, now time.Time) (*Recipient, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "recipient identity is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "name is required")
	}
	bt, err := domain.ParseBloodType(bloodType)
	if err != nil {
		return nil, err
	}
	ot, err := domain.ParseOrganType(organType)
	if err != nil {
		return nil, err
	}
	if err := ValidateUrgency(urgency); err != nil {
		return nil, err
	}
	return &Recipient{
		ID:           id,
		Name:         name,
		BloodType:    bt,
		OrganNeeded:  ot,
		Urgency:      urgency,
		Active:       true,
		Version:      1,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

func ValidateUrgency(score int) error {
	if score < MinUrgency || score > MaxUrgency {
		return dErrors.New(dErrors.CodeInvalidArgument, "urgency must be between 1 and 100")
	}
	return nil
}

func (r *Recipient) ApplyUrgency(score int, now time.Time) {
	r.Urgency = score
	r.UpdatedAt = now
}

func (r *Recipient) Clone() *Recipient {
	c := *r
	return &c
}

type RegisterRecipientRequest struct {
	Name        string `json:"name"`
	BloodType   string `json:"blood_type"`
	OrganNeeded string `json:"organ_needed"`
	Urgency     int    `json:"urgency"`
}

type UpdateUrgencyRequest struct {
	Urgency int `json:"urgency"`
}
