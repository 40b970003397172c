package dto

import "github.com/RobertBecaria/ZION.2.0-sub002/internal/models"

// ExportRequest asks for an asynchronous agenda export.
type ExportRequest struct {
	From   string              `json:"from" validate:"required,datetime=2006-01-02"`
	To     string              `json:"to" validate:"required,datetime=2006-01-02"`
	Status *string             `json:"status" validate:"omitempty,oneof=PENDING CONFIRMED CANCELLED COMPLETED NO_SHOW"`
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse reports export job state to the caller.
type ExportJobResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
