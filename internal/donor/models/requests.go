package models

// RegisterDonorRequest is the self-registration payload. The identity comes
// from the caller, never from the body.
type RegisterDonorRequest struct {
	Name            string   `json:"name"`
	Age             int      `json:"age"`
	BloodType       string   `json:"blood_type"`
	OrganTypes      []string `json:"organ_types"`
	HealthRecordRef string   `json:"health_record_ref"`
}

type UpdateConsentRequest struct {
	Consent *bool `json:"consent"`
}

type UpdateHealthRecordRequest struct {
	HealthRecordRef string `json:"health_record_ref"`
}
