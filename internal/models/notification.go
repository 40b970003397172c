package models

import "time"

// NotificationType enumerates events emitted to the notification
// collaborator on booking lifecycle changes.
type NotificationType string

const (
	NotifyBookingCreated   NotificationType = "booking.created"
	NotifyBookingConfirmed NotificationType = "booking.confirmed"
	NotifyBookingCancelled NotificationType = "booking.cancelled"
	NotifyBookingCompleted NotificationType = "booking.completed"
	NotifyBookingNoShow    NotificationType = "booking.no_show"
)

// ClientContact is the contact snapshot denormalised onto a booking at
// creation time. It is never re-resolved against the identity service.
type ClientContact struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
}

// NotificationEvent is the fire-and-forget payload dispatched after a
// successful reserve or transition. Delivery failures never roll back
// the booking state.
type NotificationEvent struct {
	Type         NotificationType `json:"type"`
	BookingID    string           `json:"booking_id"`
	ServiceID    string           `json:"service_id"`
	ProviderID   string           `json:"provider_id"`
	ClientID     string           `json:"client_id"`
	Contact      ClientContact    `json:"contact"`
	BookingStart time.Time        `json:"booking_start"`
	OccurredAt   time.Time        `json:"occurred_at"`
}
