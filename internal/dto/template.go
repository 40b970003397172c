package dto

// DayWindowPayload is one weekday entry of an availability template.
// Open and close are minutes since midnight.
type DayWindowPayload struct {
	Weekday      int  `json:"weekday" validate:"min=0,max=6"`
	OpenMinutes  int  `json:"open_minutes" validate:"min=0,max=1440"`
	CloseMinutes int  `json:"close_minutes" validate:"min=0,max=1440"`
	Closed       bool `json:"closed"`
}

// SetTemplateRequest replaces a listing's weekly availability.
type SetTemplateRequest struct {
	Days []DayWindowPayload `json:"days" validate:"required,min=1,max=7,dive"`
}

// TemplateResponse renders a stored template ordered by weekday.
type TemplateResponse struct {
	ServiceID string             `json:"service_id"`
	Days      []DayWindowPayload `json:"days"`
}
