package models

import (
	"slices"
	"strings"
	"time"

	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	pstrings "lifeconnect/pkg/platform/strings"
)

// MinAge is the youngest a donor may self-register.
const MinAge = 18

// Donor is keyed by the identity that registered it. Records are never deleted;
// withdrawing consent is how a donor stops offering organs.
type Donor struct {
	ID              domain.Identity    `json:"id"`
	Name            string             `json:"name"`
	Age             int                `json:"age"`
	BloodType       domain.BloodType   `json:"blood_type"`
	OrganTypes      []domain.OrganType `json:"organ_types"`
	HealthRecordRef string             `json:"health_record_ref"`
	Consent         bool               `json:"consent"`
	Active          bool               `json:"active"`
	Version         int64              `json:"version"`
	RegisteredAt    time.Time          `json:"registered_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// NewDonor validates a registration. Consent starts false.
func NewDonor(id domain.Identity, name string, age int, bloodType string, organTypes []string, healthRecordRef string, now time.Time) (*Donor, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "donor identity is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "name is required")
	}
	if age < MinAge {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "donor must be at least 18 years old")
	}
	bt, err := domain.ParseBloodType(bloodType)
	if err != nil {
		return nil, err
	}
	organs, err := ParseOrganTypes(organTypes)
	if err != nil {
		return nil, err
	}
	return &Donor{
		ID:              id,
		Name:            name,
		Age:             age,
		BloodType:       bt,
		OrganTypes:      organs,
		HealthRecordRef: strings.TrimSpace(healthRecordRef),
		Active:          true,
		Version:         1,
		RegisteredAt:    now,
		UpdatedAt:       now,
	}, nil
}

// ParseOrganTypes normalises and de-duplicates the offered organs. At least one is required.
func ParseOrganTypes(raw []string) ([]domain.OrganType, error) {
	cleaned := pstrings.DedupeAndTrimLower(raw)
	if len(cleaned) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "at least one organ type is required")
	}
	out := make([]domain.OrganType, 0, len(cleaned))
	for _, v := range cleaned {
		ot, err := domain.ParseOrganType(v)
		if err != nil {
			return nil, err
		}
		out = append(out, ot)
	}
	return out, nil
}

// Offers reports whether the donor listed organType at registration.
func (d *Donor) Offers(organType domain.OrganType) bool {
	return slices.Contains(d.OrganTypes, organType)
}

// CanDonate is checked before an organ is entered against this donor.
func (d *Donor) CanDonate(organType domain.OrganType) error {
	if !d.Active || !d.Consent {
		return dErrors.New(dErrors.CodeInvalidArgument, "donor has not consented to donation")
	}
	if !d.Offers(organType) {
		return dErrors.New(dErrors.CodeInvalidArgument, "donor did not offer organ type "+string(organType))
	}
	return nil
}

func (d *Donor) ApplyConsent(consent bool, now time.Time) {
	d.Consent = consent
	d.UpdatedAt = now
}

func (d *Donor) ApplyHealthRecordRef(ref string, now time.Time) {
	d.HealthRecordRef = strings.TrimSpace(ref)
	d.UpdatedAt = now
}

// Clone returns a copy that shares no slices with d.
func (d *Donor) Clone() *Donor {
	c := *d
	c.OrganTypes = slices.Clone(d.OrganTypes)
	return &c
}
