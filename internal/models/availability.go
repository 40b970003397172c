package models

import "time"

// MinutesPerDay bounds template open/close values.
const MinutesPerDay = 24 * 60

// DayWindow describes one weekday entry of an availability template.
// Open and Close are minutes since midnight; Close is exclusive.
type DayWindow struct {
	Weekday      int       `db:"weekday" json:"weekday"`
	OpenMinutes  int       `db:"open_minutes" json:"open_minutes"`
	CloseMinutes int       `db:"close_minutes" json:"close_minutes"`
	Closed       bool      `db:"closed" json:"closed"`
	ServiceID    string    `db:"service_id" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

// AvailabilityTemplate is a provider's recurring weekly open/close
// configuration for one listing, keyed by weekday (0=Sunday .. 6=Saturday,
// matching time.Weekday).
type AvailabilityTemplate struct {
	ServiceID string            `json:"service_id"`
	Days      map[int]DayWindow `json:"days"`
}

// Window returns the entry for the given weekday. Missing weekdays are
// treated as closed.
func (t AvailabilityTemplate) Window(day time.Weekday) DayWindow {
	if w, ok := t.Days[int(day)]; ok {
		return w
	}
	return DayWindow{Weekday: int(day), Closed: true}
}
