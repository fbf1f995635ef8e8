package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimishshah/portfolio_engine/utils"
)

// RequestID tags every request context with a request id so service and
// repository logs can be correlated. An X-Request-ID header wins over a
// generated id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rqID := c.GetHeader("X-Request-ID")
		if rqID == "" {
			rqID = uuid.NewString()
		}

		c.Request = c.Request.WithContext(utils.CtxWithRqID(c.Request.Context(), rqID))
		c.Header("X-Request-ID", rqID)

		c.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info(
			"request handled",
			slog.String("rqID", utils.GetRequestIDFromCtx(c.Request.Context())),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
