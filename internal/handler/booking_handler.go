package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/dto"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/response"
)

// BookingManager is the reservation surface consumed by the handler.
type BookingManager interface {
	Reserve(ctx context.Context, req dto.ReserveBookingRequest, claims *models.JWTClaims) (*models.Booking, error)
	Get(ctx context.Context, bookingID string, claims *models.JWTClaims) (*models.Booking, error)
	Transition(ctx context.Context, bookingID string, target models.BookingStatus, claims *models.JWTClaims) (*models.Booking, error)
	Agenda(ctx context.Context, providerID string, query dto.AgendaQuery) ([]models.Booking, *models.Pagination, error)
	ClientBookings(ctx context.Context, clientID string, query dto.AgendaQuery) ([]models.Booking, *models.Pagination, error)
}

// BookingHandler exposes the reservation and lifecycle endpoints.
type BookingHandler struct {
	bookings BookingManager
}

// NewBookingHandler constructs a booking handler.
func NewBookingHandler(bookings BookingManager) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// Reserve godoc
// @Summary Reserve a slot
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.ReserveBookingRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Reserve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ReserveBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.bookings.Reserve(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// Get godoc
// @Summary Get booking detail
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Transition godoc
// @Summary Change booking status
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.TransitionRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/status [patch]
func (h *BookingHandler) Transition(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.bookings.Transition(c.Request.Context(), c.Param("id"), req.Status, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Agenda godoc
// @Summary Provider agenda for a date range
// @Tags Bookings
// @Produce json
// @Param id path string true "Provider ID"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /providers/{id}/agenda [get]
func (h *BookingHandler) Agenda(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	providerID := c.Param("id")
	if claims.Role != models.RoleAdmin && claims.UserID != providerID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	bookings, pagination, err := h.bookings.Agenda(c.Request.Context(), providerID, agendaQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// MyBookings godoc
// @Summary Authenticated client's bookings
// @Tags Bookings
// @Produce json
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings/mine [get]
func (h *BookingHandler) MyBookings(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	bookings, pagination, err := h.bookings.ClientBookings(c.Request.Context(), claims.UserID, agendaQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

func agendaQueryFromContext(c *gin.Context) dto.AgendaQuery {
	query := dto.AgendaQuery{
		From:   strings.TrimSpace(c.Query("from")),
		To:     strings.TrimSpace(c.Query("to")),
		Status: strings.TrimSpace(c.Query("status")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		query.Limit = limit
	}
	return query
}
