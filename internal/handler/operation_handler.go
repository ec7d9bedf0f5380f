package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scholarship-api/internal/middleware"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

type operationReader interface {
	Get(ctx context.Context, id string) (*models.Operation, error)
}

// OperationHandler reports the outcome of mutating operations.
type OperationHandler struct {
	operations operationReader
}

// NewOperationHandler constructs the handler.
func NewOperationHandler(operations operationReader) *OperationHandler {
	return &OperationHandler{operations: operations}
}

// Get godoc
// @Summary Operation status
// @Description Only the wallet that started the operation may read it
// @Tags Operations
// @Produce json
// @Param id path string true "Operation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /operations/{id} [get]
func (h *OperationHandler) Get(c *gin.Context) {
	op, err := h.operations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !strings.EqualFold(op.ActorAddress, middleware.Caller(c)) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "operation not found"))
		return
	}
	if !op.Status.Terminal() {
		c.Header("Retry-After", "2")
	}
	response.JSON(c, http.StatusOK, op)
}
