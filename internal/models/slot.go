package models

import "time"

// Slot is a candidate appointment window derived from a template.
// Slots are computed on demand and never persisted.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// Reasons a slot listing can come back empty without being an error.
const (
	SlotsReasonOutOfRange      = "out_of_range"
	SlotsReasonClosed          = "closed"
	SlotsReasonBookingDisabled = "booking_disabled"
)

// SlotsResult is the slot listing returned for one service and date.
// Reason is set when Slots is empty for a non-error cause.
type SlotsResult struct {
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`
	Slots     []Slot `json:"slots"`
	Reason    string `json:"reason,omitempty"`
}
