package model

import "time"

// EsDocument 定义了存储在 Elasticsearch 关键词索引中的文档结构。
// 索引只承担关键词全文检索，向量不进入索引，语义相似度在进程内计算。
type EsDocument struct {
	DocumentID    string    `json:"document_id"`
	Title         string    `json:"title"`
	ExtractedText string    `json:"extracted_text"`
	Tags          []string  `json:"tags"`
	Category      string    `json:"category"`
	Team          string    `json:"team"`
	Project       string    `json:"project"`
	FileType      string    `json:"file_type"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// NewEsDocument 从文档记录构建索引文档。
func NewEsDocument(d *Document) EsDocument {
	return EsDocument{
		DocumentID:    d.ID,
		Title:         d.Title,
		ExtractedText: d.ExtractedText,
		Tags:          d.Tags,
		Category:      d.Category,
		Team:          d.Team,
		Project:       d.Project,
		FileType:      d.FileType,
		UploadedAt:    d.UploadedAt,
	}
}
