// Package events carries the domain events recorded with every successful ledger
// mutation. Observers consume them; nothing here feeds back into the ledger.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Name identifies what happened.
type Name string

const (
	DonorRegistered          Name = "donor_registered"
	DonorConsentUpdated      Name = "donor_consent_updated"
	DonorHealthRecordUpdated Name = "donor_health_record_updated"

	RecipientRegistered     Name = "recipient_registered"
	RecipientUrgencyUpdated Name = "recipient_urgency_updated"

	OrganRegistered   Name = "organ_registered"
	OrganMatched      Name = "organ_matched"
	OrganInTransit    Name = "organ_in_transit"
	OrganTransplanted Name = "organ_transplanted"
	OrganExpired      Name = "organ_expired"

	CustodyEventLogged   Name = "custody_event_logged"
	CustodyEventVerified Name = "custody_event_verified"
	CustodyEmergencyStop Name = "custody_emergency_stop"
)

// Entity types double as Redis channel suffixes and Kafka key prefixes.
const (
	EntityDonor     = "donor"
	EntityRecipient = "recipient"
	EntityOrgan     = "organ"
	EntityCustody   = "custody"
)

// Event is transport-agnostic so every sink can fan it out unchanged.
//
// Version is the entity's revision after the mutation. It increases by one per
// event for a given Key, so consumers can order and deduplicate per entity.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Name       Name           `json:"name"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Version    int64          `json:"version"`
	Changes    map[string]any `json:"changes"`
	Actor      string         `json:"actor"`
	RequestID  string         `json:"request_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Key partitions events so one entity's history stays ordered downstream.
func (e Event) Key() string {
	return e.EntityType + ":" + e.EntityID
}
