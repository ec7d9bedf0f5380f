package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/middleware"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

type schemeService interface {
	Create(ctx context.Context, caller string, req dto.CreateSchemeRequest) (*models.Scheme, error)
	List(ctx context.Context, query dto.SchemeQuery) ([]models.Scheme, error)
	Get(ctx context.Context, id string) (*models.Scheme, error)
	Deactivate(ctx context.Context, caller, id string) (*models.Scheme, error)
	Register(ctx context.Context, caller, id string) (*models.SchemeRegistration, error)
	Registrations(ctx context.Context, caller string) ([]models.SchemeRegistration, error)
}

// SchemeHandler exposes the scheme catalogue.
type SchemeHandler struct {
	service schemeService
}

// NewSchemeHandler constructs the handler.
func NewSchemeHandler(service schemeService) *SchemeHandler {
	return &SchemeHandler{service: service}
}

// List godoc
// @Summary List schemes
// @Tags Schemes
// @Produce json
// @Param active query bool false "Only active schemes"
// @Param q query string false "Name search"
// @Success 200 {object} response.Envelope
// @Router /schemes [get]
func (h *SchemeHandler) List(c *gin.Context) {
	var query dto.SchemeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	schemes, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schemes, map[string]interface{}{"count": len(schemes)})
}

// Create godoc
// @Summary Create a scheme
// @Tags Schemes
// @Accept json
// @Produce json
// @Param payload body dto.CreateSchemeRequest true "Scheme"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schemes [post]
func (h *SchemeHandler) Create(c *gin.Context) {
	var req dto.CreateSchemeRequest
	if !bindJSON(c, &req, "invalid scheme payload") {
		return
	}
	scheme, err := h.service.Create(c.Request.Context(), middleware.Caller(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, scheme)
}

// Get godoc
// @Summary Scheme detail
// @Tags Schemes
// @Produce json
// @Param id path string true "Scheme ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schemes/{id} [get]
func (h *SchemeHandler) Get(c *gin.Context) {
	scheme, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scheme)
}

// Deactivate godoc
// @Summary Close a scheme
// @Tags Schemes
// @Produce json
// @Param id path string true "Scheme ID"
// @Success 200 {object} response.Envelope
// @Router /schemes/{id} [delete]
func (h *SchemeHandler) Deactivate(c *gin.Context) {
	scheme, err := h.service.Deactivate(c.Request.Context(), middleware.Caller(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scheme)
}

// Register godoc
// @Summary Register the caller for a scheme
// @Tags Schemes
// @Produce json
// @Param id path string true "Scheme ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schemes/{id}/register [post]
func (h *SchemeHandler) Register(c *gin.Context) {
	reg, err := h.service.Register(c.Request.Context(), middleware.Caller(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// Registrations godoc
// @Summary Schemes the caller registered for
// @Tags Schemes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schemes/registrations/mine [get]
func (h *SchemeHandler) Registrations(c *gin.Context) {
	regs, err := h.service.Registrations(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regs, map[string]interface{}{"count": len(regs)})
}
