package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/middleware"
	"github.com/noah-isme/scholarship-api/internal/models"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

type identityService interface {
	RegisterStudent(ctx context.Context, caller string) (*models.Identity, *models.Operation, error)
	AssignRole(ctx context.Context, caller, address string, req dto.AssignRoleRequest) (*models.Identity, *models.Operation, error)
	RevokeRole(ctx context.Context, caller, address string) (*models.Identity, *models.Operation, error)
	TransferOwnership(ctx context.Context, caller string, req dto.TransferOwnershipRequest) (*models.Ownership, *models.Operation, error)
	GetUserRole(ctx context.Context, address string) (*dto.UserRoleResponse, error)
	Owner(ctx context.Context) (*models.Ownership, error)
	List(ctx context.Context, caller string) ([]models.Identity, error)
}

// IdentityHandler manages role records and ownership.
type IdentityHandler struct {
	service identityService
}

// NewIdentityHandler constructs the handler.
func NewIdentityHandler(service identityService) *IdentityHandler {
	return &IdentityHandler{service: service}
}

// RegisterStudent godoc
// @Summary Register the caller as a student
// @Tags Roles
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/register [post]
func (h *IdentityHandler) RegisterStudent(c *gin.Context) {
	identity, op, err := h.service.RegisterStudent(c.Request.Context(), middleware.Caller(c))
	respondMutation(c, http.StatusCreated, identity, op, err)
}

// GetRole godoc
// @Summary Role of an address
// @Tags Roles
// @Produce json
// @Param address path string true "Wallet address"
// @Success 200 {object} response.Envelope
// @Router /roles/{address} [get]
func (h *IdentityHandler) GetRole(c *gin.Context) {
	role, err := h.service.GetUserRole(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role)
}

// List godoc
// @Summary All role records
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roles [get]
func (h *IdentityHandler) List(c *gin.Context) {
	identities, err := h.service.List(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, identities, map[string]interface{}{"count": len(identities)})
}

// AssignRole godoc
// @Summary Grant a role to an address
// @Tags Roles
// @Accept json
// @Produce json
// @Param address path string true "Wallet address"
// @Param payload body dto.AssignRoleRequest true "Role"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /roles/{address} [put]
func (h *IdentityHandler) AssignRole(c *gin.Context) {
	var req dto.AssignRoleRequest
	if !bindJSON(c, &req, "invalid role payload") {
		return
	}
	identity, op, err := h.service.AssignRole(c.Request.Context(), middleware.Caller(c), c.Param("address"), req)
	respondMutation(c, http.StatusOK, identity, op, err)
}

// RevokeRole godoc
// @Summary Deactivate the role of an address
// @Tags Roles
// @Produce json
// @Param address path string true "Wallet address"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /roles/{address} [delete]
func (h *IdentityHandler) RevokeRole(c *gin.Context) {
	identity, op, err := h.service.RevokeRole(c.Request.Context(), middleware.Caller(c), c.Param("address"))
	respondMutation(c, http.StatusOK, identity, op, err)
}

// Owner godoc
// @Summary Current owner address
// @Tags Roles
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /owner [get]
func (h *IdentityHandler) Owner(c *gin.Context) {
	owner, err := h.service.Owner(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, owner)
}

// TransferOwnership godoc
// @Summary Hand ownership to another address
// @Tags Roles
// @Accept json
// @Produce json
// @Param payload body dto.TransferOwnershipRequest true "New owner"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /owner/transfer [post]
func (h *IdentityHandler) TransferOwnership(c *gin.Context) {
	var req dto.TransferOwnershipRequest
	if !bindJSON(c, &req, "invalid transfer payload") {
		return
	}
	owner, op, err := h.service.TransferOwnership(c.Request.Context(), middleware.Caller(c), req)
	respondMutation(c, http.StatusOK, owner, op, err)
}
