package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/dto"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/middleware"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
)

type templateManagerMock struct {
	getResp   *dto.TemplateResponse
	getErr    error
	setResp   *dto.TemplateResponse
	setErr    error
	lastReq   dto.SetTemplateRequest
	setCalled bool
}

func (m *templateManagerMock) Get(ctx context.Context, serviceID string, claims *models.JWTClaims) (*dto.TemplateResponse, error) {
	return m.getResp, m.getErr
}

func (m *templateManagerMock) Set(ctx context.Context, serviceID string, req dto.SetTemplateRequest, claims *models.JWTClaims) (*dto.TemplateResponse, error) {
	m.setCalled = true
	m.lastReq = req
	return m.setResp, m.setErr
}

func TestTemplateHandlerSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &templateManagerMock{setResp: &dto.TemplateResponse{ServiceID: "svc-1"}}
	handler := NewTemplateHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := `{"days":[{"weekday":1,"open_minutes":540,"close_minutes":720}]}`
	req, _ := http.NewRequest(http.MethodPut, "/services/svc-1/availability", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "svc-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prov-1", Role: models.RoleProvider})

	handler.Set(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.setCalled)
	require.Len(t, mockSvc.lastReq.Days, 1)
	assert.Equal(t, 540, mockSvc.lastReq.Days[0].OpenMinutes)
}

func TestTemplateHandlerSetInvalidTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &templateManagerMock{setErr: appErrors.ErrInvalidTemplate}
	handler := NewTemplateHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := `{"days":[{"weekday":1,"open_minutes":720,"close_minutes":540}]}`
	req, _ := http.NewRequest(http.MethodPut, "/services/svc-1/availability", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "svc-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prov-1", Role: models.RoleProvider})

	handler.Set(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTemplateHandlerGetNotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &templateManagerMock{getErr: appErrors.ErrNotConfigured}
	handler := NewTemplateHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/services/svc-1/availability", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "svc-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prov-1", Role: models.RoleProvider})

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplateHandlerRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &templateManagerMock{}
	handler := NewTemplateHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/services/svc-1/availability", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "svc-1"}}

	handler.Get(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
