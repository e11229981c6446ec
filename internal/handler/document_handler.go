package handler

import (
	"net/http"
	"strconv"

	"dochub-go/internal/service"
	"dochub-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理所有与文档管理相关的 API 请求。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// ListDocuments 处理获取文档列表的请求，最新上传在前。
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	docs, err := h.docService.ListDocuments(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":  http.StatusOK,
		"count": len(docs),
		"data":  docs,
	})
}

// GetDocument 处理按 ID 获取单个文档的请求，访问会更新分析计数。
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id := c.Param("id")

	doc, err := h.docService.GetDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": doc})
}

// DeleteDocument 处理删除文档的请求。
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")

	if err := h.docService.DeleteDocument(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	log.Infof("[DocumentHandler] 文档删除成功, id: %s", id)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "文档删除成功"})
}

// Download 处理生成文件下载链接的请求。
func (h *DocumentHandler) Download(c *gin.Context) {
	id := c.Param("id")

	url, err := h.docService.GenerateDownloadURL(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": http.StatusOK,
		"data": gin.H{"downloadUrl": url},
	})
}
