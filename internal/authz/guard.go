// Package authz is the authorization guard consulted by every ledger operation.
//
// Check is a pure function of the caller, the identity that owns the addressed
// record (if any) and the requested operation. Services call it before any
// store mutation; current-state preconditions live on the models.
package authz

import (
	"context"

	"lifeconnect/pkg/domain"
	dErrors "lifeconnect/pkg/domain-errors"
	"lifeconnect/pkg/requestcontext"
)

// Operation names a guarded ledger operation.
type Operation string

const (
	OpRegisterDonor         Operation = "registerDonor"
	OpUpdateConsent         Operation = "updateConsent"
	OpUpdateHealthRecordRef Operation = "updateHealthRecordRef"
	OpRegisterRecipient     Operation = "registerRecipient"
	OpUpdateUrgency         Operation = "updateUrgency"
	OpRegisterOrgan         Operation = "registerOrgan"
	OpMatchOrgan            Operation = "matchOrgan"
	OpStartTransport        Operation = "startTransport"
	OpCompleteTransplant    Operation = "completeTransplant"
	OpMarkExpired           Operation = "markExpired"
	OpLogEvent              Operation = "logEvent"
	OpVerifyEvent           Operation = "verifyEvent"
	OpEmergencyStop         Operation = "emergencyStop"
	OpRead                  Operation = "read"
)

type rule struct {
	self  bool          // the caller acting on its own record
	roles []domain.Role // any of these roles
	any   bool          // any authenticated caller
}

var rules = map[Operation]rule{
	OpRegisterDonor:         {self: true},
	OpUpdateConsent:         {self: true},
	OpUpdateHealthRecordRef: {self: true},
	OpRegisterRecipient:     {self: true},
	OpUpdateUrgency:         {self: true, roles: []domain.Role{domain.RoleHospital, domain.RoleRegulator}},
	OpRegisterOrgan:         {roles: []domain.Role{domain.RoleHospital}},
	OpMatchOrgan:            {roles: []domain.Role{domain.RoleHospital, domain.RoleMatcher}},
	OpStartTransport:        {roles: []domain.Role{domain.RoleHospital, domain.RoleTransporter}},
	OpCompleteTransplant:    {roles: []domain.Role{domain.RoleHospital}},
	OpMarkExpired:           {any: true},
	OpLogEvent:              {roles: []domain.Role{domain.RoleHospital, domain.RoleTransporter, domain.RoleRegulator}},
	OpEmergencyStop:         {roles: []domain.Role{domain.RoleHospital, domain.RoleTransporter, domain.RoleRegulator}},
	OpVerifyEvent:           {roles: []domain.Role{domain.RoleHospital, domain.RoleRegulator}},
	OpRead:                  {any: true},
}

// Check returns an Unauthorized error unless caller may perform op on a record
// owned by owner. owner is empty for operations that address no owned record.
func Check(caller requestcontext.Caller, op Operation, owner domain.Identity) error {
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	r, ok := rules[op]
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "operation is not permitted")
	}
	if r.any {
		return nil
	}
	if r.self && !owner.IsNil() && caller.ID == owner {
		return nil
	}
	if len(r.roles) > 0 && caller.HasRole(r.roles...) {
		return nil
	}
	if r.self && len(r.roles) == 0 {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owning identity may "+string(op))
	}
	return dErrors.New(dErrors.CodeUnauthorized, "caller lacks a role permitted to "+string(op))
}

// FromContext runs Check against the caller carried by ctx.
func FromContext(ctx context.Context, op Operation, owner domain.Identity) (requestcontext.Caller, error) {
	caller := requestcontext.CallerFrom(ctx)
	return caller, Check(caller, op, owner)
}
