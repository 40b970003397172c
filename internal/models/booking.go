package models

import "time"

// BookingStatus enumerates the lifecycle states of a reservation.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingNoShow    BookingStatus = "NO_SHOW"
)

// ActiveStatuses are the statuses that occupy calendar time and
// participate in the no-overlap invariant.
var ActiveStatuses = []BookingStatus{BookingPending, BookingConfirmed}

// IsTerminal reports whether no further transitions are permitted.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingCancelled, BookingCompleted, BookingNoShow:
		return true
	}
	return false
}

// Valid reports whether the status is a known lifecycle state.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted, BookingNoShow:
		return true
	}
	return false
}

// Booking is a persisted reservation of one slot for one client.
// Duration is copied from the listing at creation time so later
// listing edits never retroactively change existing bookings.
type Booking struct {
	ID              string        `db:"id" json:"id"`
	ServiceID       string        `db:"service_id" json:"service_id"`
	ProviderID      string        `db:"provider_id" json:"provider_id"`
	ClientID        string        `db:"client_id" json:"client_id"`
	ClientName      string        `db:"client_name" json:"client_name"`
	ClientPhone     *string       `db:"client_phone" json:"client_phone,omitempty"`
	ClientEmail     *string       `db:"client_email" json:"client_email,omitempty"`
	BookingStart    time.Time     `db:"booking_start" json:"booking_start"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	Status          BookingStatus `db:"status" json:"status"`
	Notes           *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	StatusChangedAt time.Time     `db:"status_changed_at" json:"status_changed_at"`
}

// End returns the exclusive end of the reserved interval.
func (b Booking) End() time.Time {
	return b.BookingStart.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Overlaps reports whether the booking interval intersects [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.End()) && b.BookingStart.Before(end)
}

// BookingFilter captures criteria for agenda and client booking listings.
type BookingFilter struct {
	ProviderID string
	ClientID   string
	ServiceID  string
	From       *time.Time
	To         *time.Time
	Status     *BookingStatus
	Page       int
	PageSize   int
}
