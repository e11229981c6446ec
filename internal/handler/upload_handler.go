package handler

import (
	"net/http"

	"dochub-go/internal/service"
	"dochub-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UploadHandler 负责处理文档上传请求。
type UploadHandler struct {
	uploadService service.UploadService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload 处理 multipart 文件上传并触发摄取流程。
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}

	uploadedBy := usernameFromContext(c)
	log.Infof("[UploadHandler] 收到上传请求, filename: %s, by: %s", fileHeader.Filename, uploadedBy)

	doc, err := h.uploadService.Upload(c.Request.Context(), fileHeader, uploadedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "文档上传并处理成功",
		"data":    doc.ToSummary(),
	})
}

// usernameFromContext 从认证中间件写入的上下文中取用户名，
// 未认证入口返回 "System"。
func usernameFromContext(c *gin.Context) string {
	if username, exists := c.Get("username"); exists {
		if name, ok := username.(string); ok && name != "" {
			return name
		}
	}
	return "System"
}
