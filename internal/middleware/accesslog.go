package middleware

import (
	"net/http"
	"time"

	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
	"github.com/gin-gonic/gin"
)

// RequestObserver receives one call per finished request. route is the
// matched route pattern, empty when nothing matched.
type RequestObserver interface {
	ObserveRequest(method, route string, code int, seconds float64)
}

// AccessLog logs every request after it finishes and reports it to obs when
// obs is non-nil. Server errors log at error level, client errors at warn.
func AccessLog(log logging.Logger, obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		if obs != nil {
			obs.ObserveRequest(c.Request.Method, route, status, elapsed.Seconds())
		}

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("latency", elapsed),
			logging.Int("bytes", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			log.Error(ctx, "request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn(ctx, "request", fields...)
		default:
			log.Info(ctx, "request", fields...)
		}
	}
}

// Recovery turns a handler panic into a logged 500.
func Recovery(log logging.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error(c.Request.Context(), "panic recovered",
			logging.Any("panic", recovered),
			logging.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
