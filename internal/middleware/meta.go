package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey  = "response_meta"
	requestStartKey  = "request_started_at"
	processingTimeMs = "processing_time_ms"
)

// WithResponseMeta stamps the request start so handlers can report processing time in meta.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Next()
	}
}

// SetMeta records a metadata entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	meta, _ := c.Get(responseMetaKey)
	entries, ok := meta.(map[string]interface{})
	if !ok {
		entries = make(map[string]interface{})
		c.Set(responseMetaKey, entries)
	}
	entries[key] = value
}

// ExtractMeta returns the recorded entries plus processing time, or nil when nothing was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, _ := c.Get(responseMetaKey)
	entries, ok := meta.(map[string]interface{})
	if !ok || len(entries) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(entries)+1)
	for k, v := range entries {
		out[k] = v
	}
	if started, ok := c.Get(requestStartKey); ok {
		if ts, ok := started.(time.Time); ok {
			out[processingTimeMs] = time.Since(ts).Milliseconds()
		}
	}
	return out
}
