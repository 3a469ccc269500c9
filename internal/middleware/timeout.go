// Package middleware holds the gin middleware shared by every route.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
	"github.com/gin-gonic/gin"
)

// TimeoutObserver is told about every request that hit its deadline before
// writing a response.
type TimeoutObserver interface {
	RequestTimedOut(method, route string)
}

// Timeout bounds each request by d. The chain runs on the request goroutine
// with a deadline-carrying context; planning and storage honour it. When the
// deadline passes and nothing was written, Timeout answers 503, logs the
// request with its ID and reports it to obs (which may be nil).
func Timeout(d time.Duration, log logging.Logger, obs TimeoutObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if c.Writer.Written() || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}

		route := c.FullPath()
		log.Warn(ctx, "request deadline exceeded",
			logging.String("method", c.Request.Method),
			logging.String("route", route),
			logging.Duration("limit", d),
			logging.Duration("elapsed", time.Since(start)),
		)
		if obs != nil {
			obs.RequestTimedOut(c.Request.Method, route)
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "request timed out"})
	}
}
