package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
)

type slotListerMock struct {
	result   *models.SlotsResult
	err      error
	lastDate time.Time
	called   bool
}

func (m *slotListerMock) AvailableSlots(ctx context.Context, serviceID string, date time.Time) (*models.SlotsResult, error) {
	m.called = true
	m.lastDate = date
	return m.result, m.err
}

func (m *slotListerMock) ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, time.UTC)
}

func TestSlotHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &slotListerMock{result: &models.SlotsResult{ServiceID: "svc-1", Date: "2026-03-02"}}
	handler := NewSlotHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/services/svc-1/slots?date=2026-03-02", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "svc-1"}}

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.called)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), mockSvc.lastDate)
}

func TestSlotHandlerListMissingDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &slotListerMock{}
	handler := NewSlotHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/services/svc-1/slots", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "svc-1"}}

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.called)
}

func TestSlotHandlerListMalformedDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSlotHandler(&slotListerMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/services/svc-1/slots?date=03-02-2026", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "svc-1"}}

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
