package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conversationai/perspective-modbot/internal/logger"
)

// recoveryMiddleware catches handler panics and returns a 500 instead of
// killing the process.
func recoveryMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panic recovered",
					logger.Any("panic", r),
					logger.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(500, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// loggerMiddleware logs each request with latency and status.
func loggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)))
	}
}
