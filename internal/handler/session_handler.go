package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

type sessionService interface {
	Challenge(ctx context.Context, req models.ChallengeRequest) (*models.Challenge, error)
	Login(ctx context.Context, req models.LoginRequest, ip, userAgent string) (*models.LoginResponse, error)
	Refresh(ctx context.Context, address string) (models.Capability, error)
	Logout(ctx context.Context, address, ip, userAgent string) error
}

// SessionHandler wires wallet sign-in endpoints to the session service.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler creates a new handler.
func NewSessionHandler(svc sessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// Challenge godoc
// @Summary Request a sign-in challenge
// @Description Issue a single-use message the wallet must personal_sign
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body models.ChallengeRequest true "Wallet address and chain id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/challenge [post]
func (h *SessionHandler) Challenge(c *gin.Context) {
	var req models.ChallengeRequest
	if !bindJSON(c, &req, "invalid challenge payload") {
		return
	}
	challenge, err := h.service.Challenge(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, challenge)
}

// Login godoc
// @Summary Exchange a signed challenge for a session
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Signed challenge"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	res, err := h.service.Login(c.Request.Context(), req, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Current godoc
// @Summary Current session
// @Description Returns the session address and a freshly computed capability
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/session [get]
func (h *SessionHandler) Current(c *gin.Context) {
	claims := sessionFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	capability, err := h.service.Refresh(c.Request.Context(), claims.Address)
	if err != nil {
		response.Error(c, err)
		return
	}
	var expiresAt int64
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Unix()
	}
	response.JSON(c, http.StatusOK, dto.SessionResponse{
		Address:    claims.Address,
		ChainID:    claims.ChainID,
		ExpiresAt:  expiresAt,
		Capability: capability,
	})
}

// Logout godoc
// @Summary Disconnect the wallet
// @Description Drops the cached capability; the client discards its token
// @Tags Session
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	claims := sessionFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Logout(c.Request.Context(), claims.Address, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
