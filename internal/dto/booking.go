package dto

import (
	"time"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
)

// ReserveBookingRequest is the payload for booking a slot. Duration is
// never taken from the caller; it is re-derived from the listing.
type ReserveBookingRequest struct {
	ServiceID   string    `json:"service_id" validate:"required"`
	Start       time.Time `json:"start" validate:"required"`
	ClientName  string    `json:"client_name" validate:"required,max=120"`
	ClientPhone *string   `json:"client_phone" validate:"omitempty,min=5,max=32"`
	ClientEmail *string   `json:"client_email" validate:"omitempty,email"`
	Notes       *string   `json:"notes" validate:"omitempty,max=1000"`
}

// TransitionRequest asks for a booking lifecycle change.
type TransitionRequest struct {
	Status models.BookingStatus `json:"status" validate:"required"`
}

// AgendaQuery captures the provider agenda filters.
type AgendaQuery struct {
	From   string
	To     string
	Status string
	Page   int
	Limit  int
}
