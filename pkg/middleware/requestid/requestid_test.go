package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var fromGin, fromCtx string
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		fromGin = Value(c)
		fromCtx = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(headerKey, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, fromGin, fromCtx
}

func TestMiddlewareKeepsClientID(t *testing.T) {
	w, fromGin, fromCtx := serve(t, "trace-42")
	assert.Equal(t, "trace-42", w.Header().Get(headerKey))
	assert.Equal(t, "trace-42", fromGin)
	assert.Equal(t, "trace-42", fromCtx)
}

func TestMiddlewareReplacesUnsafeIDs(t *testing.T) {
	for _, header := range []string{"", strings.Repeat("x", 65), "has space"} {
		w, fromGin, _ := serve(t, header)
		_, err := uuid.Parse(fromGin)
		require.NoError(t, err, header)
		assert.Equal(t, fromGin, w.Header().Get(headerKey))
	}
}
