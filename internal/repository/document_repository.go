// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dochub-go/internal/apperr"
	"dochub-go/internal/model"
	"dochub-go/pkg/es"
	"dochub-go/pkg/log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// filterFieldColumns 是 Distinct 允许查询的字段白名单。
var filterFieldColumns = map[string]string{
	"category": "category",
	"team":     "team",
	"project":  "project",
	"fileType": "file_type",
}

// distinctCacheTTL 是筛选器候选值缓存的有效期。
const distinctCacheTTL = 60 * time.Second

// DocumentRepository 接口定义了文档存储协作方的契约：
// 等值过滤查询、关键词全文检索、去重取值与持久化。
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id string) (*model.Document, error)
	FindMany(ctx context.Context, filter model.DocumentFilter, limit int) ([]model.Document, error)
	TextSearch(ctx context.Context, query string, filter model.DocumentFilter, limit int) ([]model.Document, error)
	FindWithEmbedding(ctx context.Context, filter model.DocumentFilter) ([]model.Document, error)
	Distinct(ctx context.Context, field string) ([]string, error)
	DeleteByID(ctx context.Context, id string) error
	UpdateEmbedding(ctx context.Context, id string, vector model.Vector) error
	RecordAccess(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountByCategory(ctx context.Context) ([]model.CategoryCountDTO, error)
	FindRecent(ctx context.Context, limit int) ([]model.Document, error)
}

// documentRepository 是 DocumentRepository 接口的 GORM+ES+Redis 实现。
// MySQL 是文档的权威存储；ES 承担关键词检索；Redis 缓存筛选器候选值。
type documentRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
	index       *es.Index
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB, redisClient *redis.Client, index *es.Index) DocumentRepository {
	return &documentRepository{db: db, redisClient: redisClient, index: index}
}

// applyFilter 将非空的过滤字段转换为等值查询条件。
func applyFilter(db *gorm.DB, filter model.DocumentFilter) *gorm.DB {
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if filter.Team != "" {
		db = db.Where("team = ?", filter.Team)
	}
	if filter.Project != "" {
		db = db.Where("project = ?", filter.Project)
	}
	if filter.FileType != "" {
		db = db.Where("file_type = ?", filter.FileType)
	}
	return db
}

// Create 在数据库中创建一个新的文档记录。
func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return apperr.Persistence("create document", err)
	}
	return nil
}

// FindByID 根据 ID 检索文档记录。
func (r *documentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("find document", err)
	}
	return &doc, nil
}

// FindMany 按过滤条件检索文档，上传时间倒序。
func (r *documentRepository) FindMany(ctx context.Context, filter model.DocumentFilter, limit int) ([]model.Document, error) {
	var docs []model.Document
	db := applyFilter(r.db.WithContext(ctx).Model(&model.Document{}), filter).
		Order("uploaded_at desc")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&docs).Error; err != nil {
		return nil, apperr.Persistence("list documents", err)
	}
	return docs, nil
}

// TextSearch 通过 ES 做关键词检索，再从 MySQL 批量补全记录，
// 保持 ES 返回的相关度顺序。
func (r *documentRepository) TextSearch(ctx context.Context, query string, filter model.DocumentFilter, limit int) ([]model.Document, error) {
	ids, err := r.index.Search(ctx, query, filter, limit)
	if err != nil {
		return nil, apperr.Persistence("text search", err)
	}
	if len(ids) == 0 {
		return []model.Document{}, nil
	}

	var docs []model.Document
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&docs).Error; err != nil {
		return nil, apperr.Persistence("hydrate search results", err)
	}

	// 按 ES 顺序重排
	byID := make(map[string]model.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}
	ordered := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			ordered = append(ordered, doc)
		}
	}
	return ordered, nil
}

// FindWithEmbedding 检索带有非空 Embedding 的文档，作为语义候选集。
func (r *documentRepository) FindWithEmbedding(ctx context.Context, filter model.DocumentFilter) ([]model.Document, error) {
	var docs []model.Document
	db := applyFilter(r.db.WithContext(ctx).Model(&model.Document{}), filter).
		Where("embedding IS NOT NULL")
	if err := db.Find(&docs).Error; err != nil {
		return nil, apperr.Persistence("list embedded documents", err)
	}
	return docs, nil
}

// Distinct 返回指定过滤字段的去重取值，带 Redis 短时缓存。
func (r *documentRepository) Distinct(ctx context.Context, field string) ([]string, error) {
	column, ok := filterFieldColumns[field]
	if !ok {
		return nil, fmt.Errorf("unsupported distinct field: %s", field)
	}

	cacheKey := "filters:" + column
	if cached, err := r.redisClient.Get(ctx, cacheKey).Bytes(); err == nil {
		var values []string
		if err := json.Unmarshal(cached, &values); err == nil {
			return values, nil
		}
	}

	var values []string
	err := r.db.WithContext(ctx).Model(&model.Document{}).
		Distinct(column).
		Where(column+" <> ''").
		Pluck(column, &values).Error
	if err != nil {
		return nil, apperr.Persistence("distinct "+field, err)
	}

	if data, err := json.Marshal(values); err == nil {
		// 缓存失败只影响性能，不影响正确性
		if err := r.redisClient.Set(ctx, cacheKey, data, distinctCacheTTL).Err(); err != nil {
			log.Warnf("[DocumentRepository] 缓存筛选器候选值失败: %v", err)
		}
	}
	return values, nil
}

// DeleteByID 删除文档记录，同时尽力清理关键词索引中的条目。
// 索引清理失败只记录日志：MySQL 行是权威存储。
func (r *documentRepository) DeleteByID(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{})
	if result.Error != nil {
		return apperr.Persistence("delete document", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.ErrNotFound
	}

	if err := r.index.DeleteDocument(ctx, id); err != nil {
		log.Warnf("[DocumentRepository] 从关键词索引删除文档失败 (id=%s): %v", id, err)
	}
	return nil
}

// UpdateEmbedding 更新文档的 Embedding 字段（回填任务使用）。
func (r *documentRepository) UpdateEmbedding(ctx context.Context, id string, vector model.Vector) error {
	err := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Update("embedding", vector).Error
	if err != nil {
		return apperr.Persistence("update embedding", err)
	}
	return nil
}

// RecordAccess 自增访问计数并刷新最后访问时间。
// 这是读路径触发的尽力而为更新，并发下丢失计数是可接受的。
func (r *documentRepository) RecordAccess(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"access_count":  gorm.Expr("access_count + 1"),
			"last_accessed": time.Now(),
		}).Error
}

// Count 返回文档总数。
func (r *documentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Count(&total).Error; err != nil {
		return 0, apperr.Persistence("count documents", err)
	}
	return total, nil
}

// CountByCategory 返回按分类聚合的文档数。
func (r *documentRepository) CountByCategory(ctx context.Context) ([]model.CategoryCountDTO, error) {
	var counts []model.CategoryCountDTO
	err := r.db.WithContext(ctx).Model(&model.Document{}).
		Select("category, count(*) as count").
		Group("category").
		Scan(&counts).Error
	if err != nil {
		return nil, apperr.Persistence("count by category", err)
	}
	return counts, nil
}

// FindRecent 返回最近上传的文档。
func (r *documentRepository) FindRecent(ctx context.Context, limit int) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).Model(&model.Document{}).
		Order("uploaded_at desc").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, apperr.Persistence("recent documents", err)
	}
	return docs, nil
}
