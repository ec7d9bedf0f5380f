package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
)

type rejectingValidator struct{}

func (rejectingValidator) ValidateToken(string) (*models.SessionClaims, error) {
	return nil, appErrors.ErrUnauthorized
}

type denyGate struct{}

func (denyGate) RequireAny(context.Context, string, ...models.Role) (models.Capability, error) {
	return models.Capability{}, appErrors.ErrRoleRequired
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		Sessions:    rejectingValidator{},
		Gate:        denyGate{},
		Session:     NewSessionHandler(nil),
		Application: NewApplicationHandler(nil, nil, false),
		Identity:    NewIdentityHandler(nil),
		Treasury:    NewTreasuryHandler(nil),
		Operation:   NewOperationHandler(nil),
		Document:    NewDocumentHandler(nil, nil),
		Assistant:   NewAssistantHandler(nil),
		Scheme:      NewSchemeHandler(nil),
		Events:      NewEventsHandler(nil, nil, 0, nil, nil),
		Observe:     NewMetricsHandler(nil, map[string]ReadinessCheck{"db": func(context.Context) error { return nil }}),
	})
}

func TestRouterProbes(t *testing.T) {
	router := newTestRouter()
	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouterProtectedRoutesRequireSession(t *testing.T) {
	router := newTestRouter()
	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/applications"},
		{http.MethodPost, "/api/v1/applications/1/verify"},
		{http.MethodGet, "/api/v1/applications/export"},
		{http.MethodPost, "/api/v1/pool/deposits"},
		{http.MethodPut, "/api/v1/roles/0x1111111111111111111111111111111111111111"},
		{http.MethodGet, "/api/v1/operations/abc"},
		{http.MethodPost, "/api/v1/schemes/abc/register"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
	}
}

func TestRouterDisabledFeatures(t *testing.T) {
	router := newTestRouter()
	for _, path := range []string{"/api/v1/assistant/messages", "/api/v1/events/ws"} {
		method := http.MethodPost
		if path == "/api/v1/events/ws" {
			method = http.MethodGet
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "FEATURE_DISABLED")
	}
}
