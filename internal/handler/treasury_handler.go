package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/middleware"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

type treasuryService interface {
	Deposit(ctx context.Context, caller string, req dto.DepositRequest) (*models.LedgerEntry, *models.Operation, error)
	Balance(ctx context.Context) (*models.PoolBalance, error)
	Ledger(ctx context.Context, caller string, limit int) ([]models.LedgerEntry, error)
}

// TreasuryHandler exposes the funding pool.
type TreasuryHandler struct {
	service treasuryService
}

// NewTreasuryHandler constructs the handler.
func NewTreasuryHandler(service treasuryService) *TreasuryHandler {
	return &TreasuryHandler{service: service}
}

// Deposit godoc
// @Summary Add funds to the pool
// @Tags Pool
// @Accept json
// @Produce json
// @Param payload body dto.DepositRequest true "Amount in minor units"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /pool/deposits [post]
func (h *TreasuryHandler) Deposit(c *gin.Context) {
	var req dto.DepositRequest
	if !bindJSON(c, &req, "invalid deposit payload") {
		return
	}
	entry, op, err := h.service.Deposit(c.Request.Context(), middleware.Caller(c), req)
	respondMutation(c, http.StatusCreated, entry, op, err)
}

// Balance godoc
// @Summary Pool balance
// @Tags Pool
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pool [get]
func (h *TreasuryHandler) Balance(c *gin.Context) {
	balance, err := h.service.Balance(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance)
}

// Ledger godoc
// @Summary Pool movements, newest first
// @Tags Pool
// @Produce json
// @Param limit query int false "Maximum entries (default 100)"
// @Success 200 {object} response.Envelope
// @Router /pool/ledger [get]
func (h *TreasuryHandler) Ledger(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	entries, err := h.service.Ledger(c.Request.Context(), middleware.Caller(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"count": len(entries)})
}
