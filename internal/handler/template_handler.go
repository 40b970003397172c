package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RobertBecaria/ZION.2.0-sub002/internal/dto"
	"github.com/RobertBecaria/ZION.2.0-sub002/internal/models"
	appErrors "github.com/RobertBecaria/ZION.2.0-sub002/pkg/errors"
	"github.com/RobertBecaria/ZION.2.0-sub002/pkg/response"
)

// TemplateManager is the availability template surface consumed by the
// handler.
type TemplateManager interface {
	Get(ctx context.Context, serviceID string, claims *models.JWTClaims) (*dto.TemplateResponse, error)
	Set(ctx context.Context, serviceID string, req dto.SetTemplateRequest, claims *models.JWTClaims) (*dto.TemplateResponse, error)
}

// TemplateHandler exposes weekly availability template endpoints.
type TemplateHandler struct {
	templates TemplateManager
}

// NewTemplateHandler constructs a template handler.
func NewTemplateHandler(templates TemplateManager) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// Get godoc
// @Summary Get a listing's weekly availability template
// @Tags Availability
// @Produce json
// @Param id path string true "Service listing ID"
// @Success 200 {object} response.Envelope
// @Router /services/{id}/availability [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	template, err := h.templates.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// Set godoc
// @Summary Replace a listing's weekly availability template
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Service listing ID"
// @Param payload body dto.SetTemplateRequest true "Template payload"
// @Success 200 {object} response.Envelope
// @Router /services/{id}/availability [put]
func (h *TemplateHandler) Set(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SetTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.templates.Set(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}
