package models

import "time"

// ServiceListing is a bookable offering owned by a provider. The
// scheduling core only reads listings; they are managed by the
// listing collaborator outside this service.
type ServiceListing struct {
	ID                   string    `db:"id" json:"id"`
	ProviderID           string    `db:"provider_id" json:"provider_id"`
	Title                string    `db:"title" json:"title"`
	DurationMinutes      int       `db:"duration_minutes" json:"duration_minutes"`
	BookingAdvanceDays   int       `db:"booking_advance_days" json:"booking_advance_days"`
	AcceptsOnlineBooking bool      `db:"accepts_online_booking" json:"accepts_online_booking"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}
