package api

import (
	"AIBoss/backend/go/internal/task_service/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusOf 将服务层错误映射为 HTTP 状态码。
func statusOf(err error) int {
	var nf *service.NotFoundError
	var ve *service.ValidationError
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// errorBody 构造错误响应，校验错误附带逐条的 details。
func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		body["details"] = ve.Errors
	}
	return body
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusOf(err), errorBody(err))
}
