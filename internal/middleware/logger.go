package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"counseling-api/internal/metrics"
)

// AccessLog writes one line per request.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if p, ok := PrincipalFrom(c); ok {
			fields = append(fields, zap.String("subject", p.ID), zap.String("role", string(p.Role)))
		}
		log.Info("request", fields...)
	}
}

// Metrics records request counts and latency by route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.RequestStarted()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestFinished(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
