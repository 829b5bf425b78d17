package api

import (
	"AIBoss/backend/go/internal/models"
	"AIBoss/backend/go/internal/session"
	"AIBoss/backend/go/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionIDKey 是 gin.Context 中保存会话 ID 的键。
const SessionIDKey = "sessionID"

// SessionMiddleware 根据 User-Agent 和客户端地址获取或创建匿名会话。
func SessionMiddleware(sessions *session.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ua := c.GetHeader("User-Agent")
		if ua == "" {
			ua = "unknown"
		}
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}

		sess, err := sessions.GetOrCreate(c.Request.Context(), session.Fingerprint(ua, ip))
		if err != nil {
			log.WithError(models.NewErrorInfo(err, models.ErrorTypeStorage)).Error("Session middleware error")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize session"})
			return
		}
		c.Set(SessionIDKey, sess.ID)
		c.Next()
	}
}
