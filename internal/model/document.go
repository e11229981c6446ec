// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// 文档分类的闭合枚举。外部分类器的输出必须归一化到该集合，
// 不在集合内的值一律替换为 CategoryOther。
const (
	CategoryStrategy  = "Strategy"
	CategoryCampaign  = "Campaign"
	CategoryResearch  = "Research"
	CategoryCreative  = "Creative"
	CategoryAnalytics = "Analytics"
	CategoryOther     = "Other"
)

// 分类不可用时的默认归属字段。
const (
	DefaultTeam    = "General"
	DefaultProject = "Uncategorized"
)

// ValidCategories 列出所有合法的文档分类。
var ValidCategories = map[string]bool{
	CategoryStrategy:  true,
	CategoryCampaign:  true,
	CategoryResearch:  true,
	CategoryCreative:  true,
	CategoryAnalytics: true,
	CategoryOther:     true,
}

// ValidFileTypes 列出所有允许上传的文件扩展名。
var ValidFileTypes = map[string]bool{
	"pdf":  true,
	"docx": true,
	"doc":  true,
	"txt":  true,
	"md":   true,
}

// Vector 是文档 Embedding 的数据库映射类型，以 JSON 形式存储。
// nil 表示该文档没有 Embedding（向量化失败或尚未回填），是合法状态。
type Vector []float32

// Value 实现 driver.Valuer，空向量写入 NULL。
func (v Vector) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan 实现 sql.Scanner。
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	default:
		return errors.New("unsupported type for Vector")
	}
}

// StringList 是标签集合的数据库映射类型，以 JSON 形式存储。
type StringList []string

// Value 实现 driver.Valuer。
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		s = StringList{}
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner。
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, s)
	case string:
		return json.Unmarshal([]byte(data), s)
	default:
		return errors.New("unsupported type for StringList")
	}
}

// Document 定义了 documents 表的 ORM 模型，是系统的核心实体。
// 记录只会由摄取管道创建一次；ExtractedText 是创建的前置条件，
// Category/Team/Project/Embedding 允许以降级默认值存在。
type Document struct {
	ID              string     `gorm:"type:char(36);primaryKey" json:"id"`
	Title           string     `gorm:"type:varchar(255);not null;index" json:"title"`
	Filename        string     `gorm:"type:varchar(255);not null" json:"filename"`
	FileType        string     `gorm:"type:varchar(10);not null;index" json:"fileType"`
	FileSize        int64      `gorm:"not null" json:"fileSize"`
	ExtractedText   string     `gorm:"type:longtext;not null" json:"-"`
	Category        string     `gorm:"type:varchar(20);not null;default:'Other';index" json:"category"`
	Team            string     `gorm:"type:varchar(100);index" json:"team"`
	Project         string     `gorm:"type:varchar(100);index" json:"project"`
	Tags            StringList `gorm:"type:json" json:"tags"`
	Summary         string     `gorm:"type:text" json:"summary"`
	Embedding       Vector     `gorm:"type:json" json:"-"`
	StorageLocation string     `gorm:"type:varchar(512)" json:"-"`
	UploadedBy      string     `gorm:"type:varchar(100);default:'System'" json:"uploadedBy"`
	UploadedAt      time.Time  `gorm:"autoCreateTime;index" json:"uploadedAt"`
	LastAccessed    time.Time  `gorm:"autoUpdateTime:false" json:"lastAccessed"`
	AccessCount     int64      `gorm:"not null;default:0" json:"accessCount"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// DocumentFilter 表示对分类维度字段的等值过滤条件，空字段不参与过滤。
type DocumentFilter struct {
	Category string
	Team     string
	Project  string
	FileType string
}

// DocumentSummaryDTO 是去掉正文与向量等重字段后的文档视图。
type DocumentSummaryDTO struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Filename     string    `json:"filename"`
	FileType     string    `json:"fileType"`
	FileSize     int64     `json:"fileSize"`
	Category     string    `json:"category"`
	Team         string    `json:"team,omitempty"`
	Project      string    `json:"project,omitempty"`
	Tags         []string  `json:"tags"`
	Summary      string    `json:"summary,omitempty"`
	UploadedBy   string    `json:"uploadedBy"`
	UploadedAt   time.Time `json:"uploadedAt"`
	AccessCount  int64     `json:"accessCount"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// SearchResultDTO 是混合搜索返回的单条结果。
// 浏览模式下不计算相关度，RelevanceScore 为空并从 JSON 中省略。
// Embedding 向量永远不会出现在返回结果中。
type SearchResultDTO struct {
	DocumentSummaryDTO
	RelevanceScore *int `json:"relevanceScore,omitempty"`
}

// FilterOptionsDTO 提供给前端筛选器的候选值集合。
type FilterOptionsDTO struct {
	Categories []string `json:"categories"`
	Teams      []string `json:"teams"`
	Projects   []string `json:"projects"`
	FileTypes  []string `json:"fileTypes"`
}

// CategoryCountDTO 表示按分类聚合的文档数。
type CategoryCountDTO struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// StatsDTO 是统计接口的响应结构。
type StatsDTO struct {
	TotalDocuments    int64                `json:"totalDocuments"`
	CategoryBreakdown []CategoryCountDTO   `json:"categoryBreakdown"`
	RecentUploads     []DocumentSummaryDTO `json:"recentUploads"`
}

// Summary 将完整的文档记录转换为摘要视图。
func (d *Document) ToSummary() DocumentSummaryDTO {
	return DocumentSummaryDTO{
		ID:           d.ID,
		Title:        d.Title,
		Filename:     d.Filename,
		FileType:     d.FileType,
		FileSize:     d.FileSize,
		Category:     d.Category,
		Team:         d.Team,
		Project:      d.Project,
		Tags:         d.Tags,
		Summary:      d.Summary,
		UploadedBy:   d.UploadedBy,
		UploadedAt:   d.UploadedAt,
		AccessCount:  d.AccessCount,
		LastAccessed: d.LastAccessed,
	}
}
