package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
)

const walletA = "0x1111111111111111111111111111111111111111"

type validatorStub map[string]string

func (v validatorStub) ValidateToken(token string) (*models.SessionClaims, error) {
	address, ok := v[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.SessionClaims{Address: address, ChainID: 80002}, nil
}

type gateStub map[string]models.Role

func (g gateStub) RequireAny(ctx context.Context, caller string, roles ...models.Role) (models.Capability, error) {
	if caller == "" {
		return models.Capability{}, appErrors.ErrUnauthorized
	}
	capability := models.Capability{Address: caller, Role: g[caller], IsActive: true}
	if capability.AllowsAny(roles...) {
		return capability, nil
	}
	return capability, appErrors.ErrRoleRequired
}

type auditStub struct {
	logs []models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, *log)
	return nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/probe/:id", handlers...)
	return router
}

func serve(router *gin.Engine, target, token string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestSessionRequiresBearerToken(t *testing.T) {
	var seen, fromCtx string
	router := newRouter(Session(validatorStub{"good": walletA}), func(c *gin.Context) {
		seen = Caller(c)
		fromCtx = CallerFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, "/probe/1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/probe/1", "bad").Code)

	recorder := serve(router, "/probe/1", "good")
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, walletA, seen)
	assert.Equal(t, walletA, fromCtx)
}

func TestOptionalSessionAcceptsQueryToken(t *testing.T) {
	var seen string
	router := newRouter(OptionalSession(validatorStub{"good": walletA}), func(c *gin.Context) {
		seen = Caller(c)
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, serve(router, "/probe/1?token=bad", "").Code)
	assert.Empty(t, seen)

	assert.Equal(t, http.StatusNoContent, serve(router, "/probe/1?token=good", "").Code)
	assert.Equal(t, walletA, seen)
}

func TestRequireRoles(t *testing.T) {
	gate := gateStub{walletA: models.RoleStudent}
	router := newRouter(Session(validatorStub{"good": walletA}), RequireRoles(gate, models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusForbidden, serve(router, "/probe/1", "good").Code)

	router = newRouter(Session(validatorStub{"good": walletA}), RequireRoles(gate, models.RoleStudent), func(c *gin.Context) {
		capability, ok := CurrentCapability(c)
		require.True(t, ok)
		assert.Equal(t, models.RoleStudent, capability.Role)
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusNoContent, serve(router, "/probe/1", "good").Code)
}

func TestAuditRecordsSuccessfulRequestsOnly(t *testing.T) {
	audit := &auditStub{}
	status := http.StatusOK
	router := newRouter(Session(validatorStub{"good": walletA}), Audit(audit, models.AuditActionExport, "application"), func(c *gin.Context) {
		c.Status(status)
	})

	serve(router, "/probe/7?format=csv", "good")
	require.Len(t, audit.logs, 1)
	assert.Equal(t, walletA, *audit.logs[0].ActorAddress)
	assert.Equal(t, "7", *audit.logs[0].ResourceID)
	assert.Contains(t, string(audit.logs[0].NewValues), "format=csv")

	status = http.StatusBadRequest
	serve(router, "/probe/7", "good")
	assert.Len(t, audit.logs, 1)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	assert.Nil(t, ExtractMeta(c))

	SetMeta(c, "cache_hit", true)
	assert.Equal(t, map[string]interface{}{"cache_hit": true}, ExtractMeta(c))

	c.Set(requestStartKey, time.Now().Add(-50*time.Millisecond))
	meta := ExtractMeta(c)
	assert.Equal(t, true, meta["cache_hit"])
	assert.GreaterOrEqual(t, meta[processingTimeMs].(int64), int64(50))
}
