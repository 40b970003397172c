package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/response"
)

// SlotLister is the slot discovery surface consumed by the handler.
type SlotLister interface {
	AvailableSlots(ctx context.Context, serviceID string, date time.Time) (*models.SlotsResult, error)
	ParseDate(value string) (time.Time, error)
}

// SlotHandler exposes slot availability endpoints.
type SlotHandler struct {
	slots SlotLister
}

// NewSlotHandler constructs a slot handler.
func NewSlotHandler(slots SlotLister) *SlotHandler {
	return &SlotHandler{slots: slots}
}

// List godoc
// @Summary List bookable slots for a listing on a date
// @Tags Slots
// @Produce json
// @Param id path string true "Service listing ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /services/{id}/slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	rawDate := strings.TrimSpace(c.Query("date"))
	if rawDate == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	date, err := h.slots.ParseDate(rawDate)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}
	result, err := h.slots.AvailableSlots(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
