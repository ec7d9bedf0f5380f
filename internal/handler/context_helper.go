package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scholarship-api/internal/dto"
	"github.com/noah-isme/scholarship-api/internal/middleware"
	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
	"github.com/noah-isme/scholarship-api/pkg/response"
)

func sessionFromContext(c *gin.Context) *models.SessionClaims {
	value, exists := c.Get(middleware.ContextSessionKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

func applicationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application id"))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// respondMutation writes the outcome of an operation-backed mutation. A pending operation answers 202 with its id.
func respondMutation(c *gin.Context, status int, record interface{}, op *models.Operation, err error) {
	if op != nil && op.ID != "" {
		c.Header("X-Operation-ID", op.ID)
	}
	if err != nil {
		if errors.Is(err, appErrors.ErrPending) && op != nil {
			response.Accepted(c, dto.MutationResponse{Operation: op})
			return
		}
		response.Error(c, err)
		return
	}
	if op != nil {
		trimmed := *op
		trimmed.Result = nil
		op = &trimmed
	}
	response.JSON(c, status, dto.MutationResponse{Record: record, Operation: op})
}

func featureDisabled(c *gin.Context, feature string) {
	response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, feature+" is disabled"))
}
