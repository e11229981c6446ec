package service

import (
	"context"
	"time"

	"dochub-go/internal/model"
	"dochub-go/internal/pipeline"
	"dochub-go/internal/repository"
	"dochub-go/pkg/log"
)

// downloadURLExpiry 是预签名下载链接的有效期。
const downloadURLExpiry = 15 * time.Minute

// URLSigner 为对象生成带过期时间的下载链接。
type URLSigner interface {
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// DocumentService 接口定义了文档管理相关的业务操作。
type DocumentService interface {
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocuments(ctx context.Context, limit int) ([]model.DocumentSummaryDTO, error)
	DeleteDocument(ctx context.Context, id string) error
	GenerateDownloadURL(ctx context.Context, id string) (string, error)
}

type documentService struct {
	docRepo     repository.DocumentRepository
	objectStore pipeline.ObjectStore
	urlSigner   URLSigner
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(docRepo repository.DocumentRepository, objectStore pipeline.ObjectStore, urlSigner URLSigner) DocumentService {
	return &documentService{
		docRepo:     docRepo,
		objectStore: objectStore,
		urlSigner:   urlSigner,
	}
}

// GetDocument 按 ID 获取文档并记录访问分析字段。
// 访问计数是读路径触发的尽力而为更新，失败只记录日志不向上传播。
func (s *documentService) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.docRepo.RecordAccess(ctx, id); err != nil {
		log.Warnf("[DocumentService] 记录文档访问失败 (id=%s): %v", id, err)
	}

	return doc, nil
}

// ListDocuments 返回最新上传的文档摘要列表。
func (s *documentService) ListDocuments(ctx context.Context, limit int) ([]model.DocumentSummaryDTO, error) {
	docs, err := s.docRepo.FindMany(ctx, model.DocumentFilter{}, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.DocumentSummaryDTO, 0, len(docs))
	for i := range docs {
		summaries = append(summaries, docs[i].ToSummary())
	}
	return summaries, nil
}

// DeleteDocument 删除文档：物理文件尽力清理，存储记录删除是权威操作。
func (s *documentService) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if doc.StorageLocation != "" {
		if err := s.objectStore.Remove(ctx, doc.StorageLocation); err != nil {
			log.Warnf("[DocumentService] 删除物理文件失败 (object=%s): %v", doc.StorageLocation, err)
		}
	}

	return s.docRepo.DeleteByID(ctx, id)
}

// GenerateDownloadURL 为文档的物理文件生成预签名下载链接。
func (s *documentService) GenerateDownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.urlSigner.PresignedURL(ctx, doc.StorageLocation, downloadURLExpiry)
}
