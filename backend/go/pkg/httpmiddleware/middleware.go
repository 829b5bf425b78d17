package httpmiddleware

import (
	"AIBoss/backend/go/internal/models"
	"AIBoss/backend/go/pkg/logger"
	"AIBoss/backend/go/pkg/ratelimiter"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// KeyFunc 从请求中提取限流使用的客户端标识。
type KeyFunc func(c *gin.Context) string

// ClientIP 使用 gin 解析出的客户端地址作为限流标识。
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimit 按客户端限流，超出限制时返回 429 与给定的错误信息。
func RateLimit(limiter ratelimiter.Limiter, key KeyFunc, message string) gin.HandlerFunc {
	if key == nil {
		key = ClientIP
	}
	return func(c *gin.Context) {
		if !limiter.Allow(key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": message})
			return
		}
		c.Next()
	}
}

// RequestLogger 为每个请求记录一条结构化日志。
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			StatusCode: c.Writer.Status(),
			LatencyMS:  time.Since(start).Milliseconds(),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

// Recovery 捕获处理过程中的 panic，记录日志并返回 500。
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithError(models.ErrorInfo{
					Message:    fmt.Sprint(r),
					Type:       models.ErrorTypeInternal,
					StatusCode: http.StatusInternalServerError,
				}).WithField("path", c.Request.URL.Path).Error("Recovered from panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}
