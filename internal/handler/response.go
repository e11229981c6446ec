// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"dochub-go/internal/apperr"
	"dochub-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// respondError 将核心错误分类映射为对应的 HTTP 响应：
// 校验失败 400、未找到 404，其余（含持久化失败）统一 500 并记录日志。
func respondError(c *gin.Context, err error) {
	switch {
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "文档不存在"})
	default:
		log.Error("请求处理失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务内部错误"})
	}
}
