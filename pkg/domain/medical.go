package domain

import (
	"strings"

	dErrors "lifeconnect/pkg/domain-errors"
)

// BloodType is an ABO/Rh blood group such as "O+" or "AB-".
type BloodType string

var validBloodTypes = map[BloodType]bool{
	"O+": true, "O-": true,
	"A+": true, "A-": true,
	"B+": true, "B-": true,
	"AB+": true, "AB-": true,
}

// ParseBloodType normalises case and rejects unknown groups.
func ParseBloodType(s string) (BloodType, error) {
	bt := BloodType(strings.ToUpper(strings.TrimSpace(s)))
	if !validBloodTypes[bt] {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "invalid blood type: "+s)
	}
	return bt, nil
}

// OrganType names a transplantable organ. Values are lower case.
type OrganType string

const (
	OrganHeart     OrganType = "heart"
	OrganKidney    OrganType = "kidney"
	OrganLiver     OrganType = "liver"
	OrganLung      OrganType = "lung"
	OrganPancreas  OrganType = "pancreas"
	OrganIntestine OrganType = "intestine"
	OrganCornea    OrganType = "cornea"
)

var validOrganTypes = map[OrganType]bool{
	OrganHeart:     true,
	OrganKidney:    true,
	OrganLiver:     true,
	OrganLung:      true,
	OrganPancreas:  true,
	OrganIntestine: true,
	OrganCornea:    true,
}

// ParseOrganType normalises case and rejects organs the ledger does not track.
func ParseOrganType(s string) (OrganType, error) {
	ot := OrganType(strings.ToLower(strings.TrimSpace(s)))
	if !validOrganTypes[ot] {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "invalid organ type: "+s)
	}
	return ot, nil
}

// Role is a capability carried by a caller's authorization context.
type Role string

const (
	RoleDonor       Role = "donor"
	RoleRecipient   Role = "recipient"
	RoleHospital    Role = "hospital"
	RoleTransporter Role = "transporter"
	RoleRegulator   Role = "regulator"
	RoleMatcher     Role = "matcher"
	RoleSystem      Role = "system"
)

var validRoles = map[Role]bool{
	RoleDonor:       true,
	RoleRecipient:   true,
	RoleHospital:    true,
	RoleTransporter: true,
	RoleRegulator:   true,
	RoleMatcher:     true,
	RoleSystem:      true,
}

// ParseRole rejects unknown role names.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !validRoles[r] {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "unknown role: "+s)
	}
	return r, nil
}
