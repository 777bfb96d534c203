package admin

import "time"

// SweepResponse reports the outcome of an on-demand expiry sweep.
type SweepResponse struct {
	Expired     int       `json:"expired"`
	CompletedAt time.Time `json:"completed_at"`
}
