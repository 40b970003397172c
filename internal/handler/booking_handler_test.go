package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/dto"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/middleware"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
)

type bookingServiceMock struct {
	reserveResp    *models.Booking
	reserveErr     error
	getResp        *models.Booking
	getErr         error
	transitionResp *models.Booking
	transitionErr  error
	agendaResp     []models.Booking
	agendaErr      error
	lastQuery      dto.AgendaQuery
	lastTarget     models.BookingStatus
	reserveCalled  bool
	agendaCalled   bool
}

func (m *bookingServiceMock) Reserve(ctx context.Context, req dto.ReserveBookingRequest, claims *models.JWTClaims) (*models.Booking, error) {
	m.reserveCalled = true
	return m.reserveResp, m.reserveErr
}

func (m *bookingServiceMock) Get(ctx context.Context, bookingID string, claims *models.JWTClaims) (*models.Booking, error) {
	return m.getResp, m.getErr
}

func (m *bookingServiceMock) Transition(ctx context.Context, bookingID string, target models.BookingStatus, claims *models.JWTClaims) (*models.Booking, error) {
	m.lastTarget = target
	return m.transitionResp, m.transitionErr
}

func (m *bookingServiceMock) Agenda(ctx context.Context, providerID string, query dto.AgendaQuery) ([]models.Booking, *models.Pagination, error) {
	m.agendaCalled = true
	m.lastQuery = query
	return m.agendaResp, &models.Pagination{Page: 1, PageSize: 50, TotalCount: len(m.agendaResp)}, m.agendaErr
}

func (m *bookingServiceMock) ClientBookings(ctx context.Context, clientID string, query dto.AgendaQuery) ([]models.Booking, *models.Pagination, error) {
	m.lastQuery = query
	return m.agendaResp, &models.Pagination{Page: 1, PageSize: 50, TotalCount: len(m.agendaResp)}, m.agendaErr
}

func testBooking() *models.Booking {
	return &models.Booking{
		ID:              "bk-1",
		ServiceID:       "svc-1",
		ProviderID:      "prov-1",
		ClientID:        "client-1",
		ClientName:      "Ana",
		BookingStart:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          models.BookingPending,
	}
}

func TestBookingHandlerReserve(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &bookingServiceMock{reserveResp: testBooking()}
	handler := NewBookingHandler(mockSvc)

	payload, _ := json.Marshal(dto.ReserveBookingRequest{
		ServiceID:  "svc-1",
		Start:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		ClientName: "Ana",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/bookings", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "client-1", Role: models.RoleClient})

	handler.Reserve(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.reserveCalled)
}

func TestBookingHandlerReserveUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &bookingServiceMock{}
	handler := NewBookingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Reserve(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, mockSvc.reserveCalled)
}

func TestBookingHandlerReserveInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&bookingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString(`{"service_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "client-1", Role: models.RoleClient})

	handler.Reserve(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerReserveConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &bookingServiceMock{reserveErr: appErrors.ErrSlotConflict}
	handler := NewBookingHandler(mockSvc)

	payload, _ := json.Marshal(dto.ReserveBookingRequest{
		ServiceID:  "svc-1",
		Start:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		ClientName: "Ana",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/bookings", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "client-1", Role: models.RoleClient})

	handler.Reserve(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandlerTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	confirmed := testBooking()
	confirmed.Status = models.BookingConfirmed
	mockSvc := &bookingServiceMock{transitionResp: confirmed}
	handler := NewBookingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/bookings/bk-1/status", bytes.NewBufferString(`{"status":"CONFIRMED"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "bk-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prov-1", Role: models.RoleProvider})

	handler.Transition(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.BookingConfirmed, mockSvc.lastTarget)
}

func TestBookingHandlerTransitionInvalid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &bookingServiceMock{transitionErr: appErrors.ErrInvalidTransition}
	handler := NewBookingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/bookings/bk-1/status", bytes.NewBufferString(`{"status":"COMPLETED"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "bk-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prov-1", Role: models.RoleProvider})

	handler.Transition(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandlerAgendaOwnership(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &bookingServiceMock{agendaResp: []models.Booking{*testBooking()}}
	handler := NewBookingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/providers/prov-1/agenda?from=2026-03-02&to=2026-03-08&status=CONFIRMED", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "prov-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prov-1", Role: models.RoleProvider})

	handler.Agenda(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.agendaCalled)
	assert.Equal(t, "2026-03-02", mockSvc.lastQuery.From)
	assert.Equal(t, "CONFIRMED", mockSvc.lastQuery.Status)
}

func TestBookingHandlerAgendaForbiddenForOtherProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &bookingServiceMock{}
	handler := NewBookingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/providers/prov-1/agenda", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "prov-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prov-2", Role: models.RoleProvider})

	handler.Agenda(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, mockSvc.agendaCalled)
}

func TestBookingHandlerMyBookings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &bookingServiceMock{agendaResp: []models.Booking{*testBooking()}}
	handler := NewBookingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/bookings/mine?page=2&limit=10", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "client-1", Role: models.RoleClient})

	handler.MyBookings(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, mockSvc.lastQuery.Page)
	assert.Equal(t, 10, mockSvc.lastQuery.Limit)
}
