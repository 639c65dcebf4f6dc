package middleware

import (
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-rag/pkg/infra/logger"
)

// Logger logs one structured line per request. Paths in skipPaths are not logged.
func Logger(skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if slices.Contains(skipPaths, path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"remote_addr", c.ClientIP(),
			"latency", latency.String(),
			"latency_ms", latency.Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		log := logger.GetLogger(c.Request.Context())
		if c.Writer.Status() >= 500 {
			log.Warnw("HTTP Request", fields...)
			return
		}
		log.Infow("HTTP Request", fields...)
	}
}
