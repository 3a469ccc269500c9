package middleware

import (
	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
	"github.com/gin-gonic/gin"
)

// RequestIDHeader carries the request ID in both directions. Clients send
// the same header, see client.RequestIDHeader.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds caller-supplied IDs before they reach the logs.
const maxRequestIDLen = 128

// RequestID reuses the caller's X-Request-ID or generates one, stores it in
// the request context for logging and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = logging.NewRequestID()
		}

		c.Request = c.Request.WithContext(logging.ContextWithRequestID(c.Request.Context(), id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
