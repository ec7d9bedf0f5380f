package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/scholarship-api/internal/models"
)

type operationReaderStub map[string]models.Operation

func (s operationReaderStub) Get(_ context.Context, id string) (*models.Operation, error) {
	op := s[id]
	return &op, nil
}

func TestOperationHandlerHidesForeignOperations(t *testing.T) {
	handler := NewOperationHandler(operationReaderStub{
		"mine":    {ID: "mine", ActorAddress: "0x1111111111111111111111111111111111111111", Status: models.OperationPending},
		"foreign": {ID: "foreign", ActorAddress: "0x2222222222222222222222222222222222222222", Status: models.OperationConfirmed},
	})

	c, rec := newTestContext(http.MethodGet, "/operations/mine", "")
	c.Params = gin.Params{{Key: "id", Value: "mine"}}
	handler.Get(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"PENDING"`)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	c, rec = newTestContext(http.MethodGet, "/operations/foreign", "")
	c.Params = gin.Params{{Key: "id", Value: "foreign"}}
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseEventTypes(t *testing.T) {
	types, err := parseEventTypes(" FundsDisbursed ,PoolDeposited")
	assert.NoError(t, err)
	assert.Equal(t, []models.EventType{models.EventFundsDisbursed, models.EventPoolDeposited}, types)

	_, err = parseEventTypes("Nope")
	assert.Error(t, err)

	types, err = parseEventTypes("")
	assert.NoError(t, err)
	assert.Empty(t, types)

	assert.True(t, isRefreshRequest([]byte(" refresh ")))
	assert.True(t, isRefreshRequest([]byte(`{"type": "refresh"}`)))
	assert.False(t, isRefreshRequest([]byte("ping")))
}
