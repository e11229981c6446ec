package handler

import (
	"net/http"
	"strconv"

	"dochub-go/internal/model"
	"dochub-go/internal/service"
	"dochub-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了搜索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search 是处理混合搜索请求的 Gin 处理函数。
// q 为空时进入浏览模式：按过滤条件返回最新文档，不计算相关度。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	req := service.SearchRequest{
		Query: query,
		Filter: model.DocumentFilter{
			Category: c.Query("category"),
			Team:     c.Query("team"),
			Project:  c.Query("project"),
			FileType: c.Query("fileType"),
		},
		Limit: limit,
	}

	resp, err := h.searchService.Search(c.Request.Context(), req)
	if err != nil {
		log.Errorf("[SearchHandler] 搜索服务返回错误, query: '%s', error: %v", query, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": resp, "message": "success"})
}

// FilterOptions 返回筛选器候选值。
func (h *SearchHandler) FilterOptions(c *gin.Context) {
	options, err := h.searchService.FilterOptions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": options, "message": "success"})
}

// Stats 返回文档统计信息。
func (h *SearchHandler) Stats(c *gin.Context) {
	stats, err := h.searchService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "data": stats, "message": "success"})
}
