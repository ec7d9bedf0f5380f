package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/middleware"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

type applicationService interface {
	Submit(ctx context.Context, caller string, req dto.SubmitApplicationRequest) (*models.Application, *models.Operation, error)
	Verify(ctx context.Context, caller string, id int64) (*models.Application, *models.Operation, error)
	Approve(ctx context.Context, caller string, id int64) (*models.Application, *models.Operation, error)
	Disburse(ctx context.Context, caller string, id int64) (*models.Application, *models.Operation, error)
	Votes(ctx context.Context, caller string, id int64, stage models.VoteStage) (*dto.ApplicationVotesResponse, error)
	HasVoted(ctx context.Context, caller string, id int64, stage models.VoteStage, address string) (*dto.VoteStatusResponse, error)
	Get(ctx context.Context, caller string, id int64) (*models.Application, error)
	Mine(ctx context.Context, caller string) ([]models.Application, error)
	ByStatus(ctx context.Context, caller string, status models.ApplicationStatus) ([]models.Application, error)
	All(ctx context.Context, caller string) ([]models.Application, error)
	Export(ctx context.Context, caller string, format dto.ExportFormat) (*dto.ExportFile, error)
	Dashboard(ctx context.Context, caller string) (*models.DashboardSummary, error)
}

type documentResolver interface {
	Resolve(references string) []models.ResolvedDocument
}

// ApplicationHandler exposes the application workflow and its role-gated views.
type ApplicationHandler struct {
	service        applicationService
	documents      documentResolver
	exportsEnabled bool
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service applicationService, documents documentResolver, exportsEnabled bool) *ApplicationHandler {
	return &ApplicationHandler{service: service, documents: documents, exportsEnabled: exportsEnabled}
}

// Submit godoc
// @Summary Submit a scholarship application
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.SubmitApplicationRequest true "Application"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var req dto.SubmitApplicationRequest
	if !bindJSON(c, &req, "invalid application payload") {
		return
	}
	app, op, err := h.service.Submit(c.Request.Context(), middleware.Caller(c), req)
	respondMutation(c, http.StatusCreated, app, op, err)
}

// Verify godoc
// @Summary Record a SAG bureau verification vote
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/verify [post]
func (h *ApplicationHandler) Verify(c *gin.Context) {
	id, ok := applicationID(c)
	if !ok {
		return
	}
	app, op, err := h.service.Verify(c.Request.Context(), middleware.Caller(c), id)
	respondMutation(c, http.StatusOK, app, op, err)
}

// Approve godoc
// @Summary Record an admin approval vote
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/approve [post]
func (h *ApplicationHandler) Approve(c *gin.Context) {
	id, ok := applicationID(c)
	if !ok {
		return
	}
	app, op, err := h.service.Approve(c.Request.Context(), middleware.Caller(c), id)
	respondMutation(c, http.StatusOK, app, op, err)
}

// Disburse godoc
// @Summary Pay out an approved application from the pool
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/disburse [post]
func (h *ApplicationHandler) Disburse(c *gin.Context) {
	id, ok := applicationID(c)
	if !ok {
		return
	}
	app, op, err := h.service.Disburse(c.Request.Context(), middleware.Caller(c), id)
	respondMutation(c, http.StatusOK, app, op, err)
}

// Get godoc
// @Summary Application detail
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := applicationID(c)
	if !ok {
		return
	}
	app, err := h.service.Get(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app)
}

// Documents godoc
// @Summary Resolve the documents attached to an application
// @Description Each reference resolves to a URL or a per-document error
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/documents [get]
func (h *ApplicationHandler) Documents(c *gin.Context) {
	id, ok := applicationID(c)
	if !ok {
		return
	}
	app, err := h.service.Get(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.documents.Resolve(app.DocumentsReference))
}

// Votes godoc
// @Summary Voters of an application at a stage
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Param stage path string true "SAG or ADMIN"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/votes/{stage} [get]
func (h *ApplicationHandler) Votes(c *gin.Context) {
	id, ok := applicationID(c)
	if !ok {
		return
	}
	stage, err := models.ParseVoteStage(c.Param("stage"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	votes, err := h.service.Votes(c.Request.Context(), middleware.Caller(c), id, stage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, votes)
}

// HasVoted godoc
// @Summary Whether an address voted on an application at a stage
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Param stage path string true "SAG or ADMIN"
// @Param address path string true "Voter wallet address"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/votes/{stage}/{address} [get]
func (h *ApplicationHandler) HasVoted(c *gin.Context) {
	id, ok := applicationID(c)
	if !ok {
		return
	}
	stage, err := models.ParseVoteStage(c.Param("stage"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	status, err := h.service.HasVoted(c.Request.Context(), middleware.Caller(c), id, stage, c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// Mine godoc
// @Summary Applications of the caller
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /applications/mine [get]
func (h *ApplicationHandler) Mine(c *gin.Context) {
	apps, err := h.service.Mine(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, map[string]interface{}{"count": len(apps)})
}

// ByStatus godoc
// @Summary Applications in a status
// @Tags Applications
// @Produce json
// @Param status path string true "APPLIED, SAG_VERIFIED, ADMIN_APPROVED or DISBURSED"
// @Success 200 {object} response.Envelope
// @Router /applications/status/{status} [get]
func (h *ApplicationHandler) ByStatus(c *gin.Context) {
	status, err := models.ParseApplicationStatus(c.Param("status"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	apps, err := h.service.ByStatus(c.Request.Context(), middleware.Caller(c), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, map[string]interface{}{"count": len(apps)})
}

// List godoc
// @Summary All applications
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	apps, err := h.service.All(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, map[string]interface{}{"count": len(apps)})
}

// Export godoc
// @Summary Download the application register
// @Tags Applications
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /applications/export [get]
func (h *ApplicationHandler) Export(c *gin.Context) {
	if !h.exportsEnabled {
		featureDisabled(c, "exports")
		return
	}
	format := dto.ExportFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))
	file, err := h.service.Export(c.Request.Context(), middleware.Caller(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}

// Dashboard godoc
// @Summary Aggregate counts and payouts
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *ApplicationHandler) Dashboard(c *gin.Context) {
	summary, err := h.service.Dashboard(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "generated_at", summary.GeneratedAt)
	response.JSON(c, http.StatusOK, summary, middleware.ExtractMeta(c))
}
