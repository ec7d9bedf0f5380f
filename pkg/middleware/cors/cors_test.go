package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/pool", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestPolicy(t *testing.T) {
	p := NewPolicy([]string{"https://app.example.org/", " "})
	assert.True(t, p.Allows("https://APP.example.org"))
	assert.False(t, p.Allows("https://evil.example"))

	assert.True(t, NewPolicy(nil).Allows("https://anything"))
	assert.True(t, NewPolicy([]string{"https://a", "*"}).Allows("https://b"))
}

func TestAllowedOriginIsEchoed(t *testing.T) {
	r := newEngine([]string{"https://app.example.org"})
	req := httptest.NewRequest(http.MethodGet, "/pool", nil)
	req.Header.Set("Origin", "https://app.example.org")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestPreflightFromUnknownOriginIsRejected(t *testing.T) {
	r := newEngine([]string{"https://app.example.org"})
	req := httptest.NewRequest(http.MethodOptions, "/pool", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightShortCircuits(t *testing.T) {
	r := newEngine(nil)
	req := httptest.NewRequest(http.MethodOptions, "/pool", nil)
	req.Header.Set("Origin", "https://wallet.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
}
