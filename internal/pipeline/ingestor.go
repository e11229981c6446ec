// Package pipeline 定义了文档摄取的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"dochub-go/internal/apperr"
	"dochub-go/internal/gateway"
	"dochub-go/internal/model"
	"dochub-go/internal/repository"
	"dochub-go/pkg/log"
	"dochub-go/pkg/tasks"

	"github.com/google/uuid"
)

// minTextLength 是文档可被接收的最小提取文本长度。
// 低于该长度的产物视为无法提取有效文本，在持久化之前拒绝。
const minTextLength = 10

// TextExtractor 将文件内容转换为纯文本。
type TextExtractor interface {
	Extract(ctx context.Context, reader io.Reader, fileName, fileType string) (string, error)
}

// Indexer 将文档写入关键词索引。
type Indexer interface {
	IndexDocument(ctx context.Context, doc model.EsDocument) error
}

// ObjectStore 负责原始文件的物理存取。
type ObjectStore interface {
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, objectName string) error
}

// TaskProducer 发布降级修复任务。
type TaskProducer interface {
	ProduceBackfillTask(ctx context.Context, task tasks.EmbeddingBackfillTask) error
}

// IngestRequest 是一次文档摄取请求，由上传入口校验后传入。
type IngestRequest struct {
	Data       []byte
	Filename   string
	FileType   string
	Size       int64
	UploadedBy string
}

// Ingestor 封装了文档摄取的所有依赖和逻辑。
// 阶段严格按 提取 → 分类 → 向量化 → 持久化 执行：
// 提取与持久化失败对本次请求是致命的；分类与向量化失败降级为默认值。
type Ingestor struct {
	extractor   TextExtractor
	categorizer gateway.CategorizationGateway
	embedder    gateway.EmbeddingGateway
	docRepo     repository.DocumentRepository
	objectStore ObjectStore
	indexer     Indexer
	producer    TaskProducer
}

// NewIngestor 创建一个新的 Ingestor 实例。
func NewIngestor(
	extractor TextExtractor,
	categorizer gateway.CategorizationGateway,
	embedder gateway.EmbeddingGateway,
	docRepo repository.DocumentRepository,
	objectStore ObjectStore,
	indexer Indexer,
	producer TaskProducer,
) *Ingestor {
	return &Ingestor{
		extractor:   extractor,
		categorizer: categorizer,
		embedder:    embedder,
		docRepo:     docRepo,
		objectStore: objectStore,
		indexer:     indexer,
		producer:    producer,
	}
}

// Ingest 执行完整的摄取流程并返回持久化后的文档记录。
func (p *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*model.Document, error) {
	log.Infof("[Ingestor] 开始摄取文档, filename: %s, fileType: %s, size: %d", req.Filename, req.FileType, req.Size)

	// 阶段一：文本提取（致命）
	text, err := p.extractor.Extract(ctx, bytes.NewReader(req.Data), req.Filename, req.FileType)
	if err != nil {
		log.Warnf("[Ingestor] 文本提取失败, filename: %s, error: %v", req.Filename, err)
		return nil, apperr.Validationf("无法从文档中提取文本: %v", err)
	}
	if utf8.RuneCountInString(text) < minTextLength {
		log.Warnf("[Ingestor] 提取文本过短, filename: %s, length: %d", req.Filename, utf8.RuneCountInString(text))
		return nil, apperr.Validationf("无法从文档中提取有效文本")
	}
	log.Infof("[Ingestor] 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(text))

	id := uuid.NewString()
	title := strings.TrimSuffix(req.Filename, filepath.Ext(req.Filename))

	// 阶段二：分类（非致命，失败降级为默认值）
	categorization := p.categorizer.Categorize(ctx, title, text)
	if categorization.Degraded {
		log.Warnf("[Ingestor] 分类降级, 文档将以默认分类持久化, filename: %s", req.Filename)
	}

	// 阶段三：向量化（非致命，失败时 Embedding 置空）
	embeddingVec := p.embedder.EmbedDocument(ctx, title, text)
	if embeddingVec == nil {
		log.Warnf("[Ingestor] 向量化降级, 文档将在无 Embedding 状态下持久化, filename: %s", req.Filename)
	}

	// 阶段四：持久化（致命，任何失败都要清理已写入的对象）
	objectName := fmt.Sprintf("documents/%s/%s", id, req.Filename)
	contentType := mime.TypeByExtension(filepath.Ext(req.Filename))
	if err := p.objectStore.Put(ctx, objectName, bytes.NewReader(req.Data), req.Size, contentType); err != nil {
		log.Errorf("[Ingestor] 写入对象存储失败, filename: %s, error: %v", req.Filename, err)
		return nil, apperr.Persistence("store file", err)
	}

	doc := &model.Document{
		ID:              id,
		Title:           title,
		Filename:        req.Filename,
		FileType:        strings.ToLower(req.FileType),
		FileSize:        req.Size,
		ExtractedText:   text,
		Category:        categorization.Category,
		Team:            categorization.Team,
		Project:         categorization.Project,
		Tags:            categorization.Tags,
		Summary:         categorization.Summary,
		Embedding:       embeddingVec,
		StorageLocation: objectName,
		UploadedBy:      req.UploadedBy,
		UploadedAt:      time.Now(),
		LastAccessed:    time.Now(),
	}

	if err := p.docRepo.Create(ctx, doc); err != nil {
		log.Errorf("[Ingestor] 持久化文档记录失败, filename: %s, error: %v", req.Filename, err)
		// 清理已写入的对象，保证失败路径不留痕
		if rmErr := p.objectStore.Remove(ctx, objectName); rmErr != nil {
			log.Warnf("[Ingestor] 清理对象失败 (object=%s): %v", objectName, rmErr)
		}
		return nil, err
	}

	// 关键词索引写入失败不回滚记录：MySQL 行是权威存储，
	// 索引缺口通过回填任务修复。
	if err := p.indexer.IndexDocument(ctx, model.NewEsDocument(doc)); err != nil {
		log.Warnf("[Ingestor] 写入关键词索引失败, 已发起回填, id: %s, error: %v", id, err)
		p.produceBackfill(ctx, id, tasks.ReasonIndexMissing)
	}

	if embeddingVec == nil {
		p.produceBackfill(ctx, id, tasks.ReasonEmbeddingMissing)
	}

	log.Infof("[Ingestor] 文档摄取完成, id: %s, category: %s, embedded: %t", id, doc.Category, embeddingVec != nil)
	return doc, nil
}

// produceBackfill 发布降级修复任务，失败只记录日志。
func (p *Ingestor) produceBackfill(ctx context.Context, documentID, reason string) {
	task := tasks.EmbeddingBackfillTask{DocumentID: documentID, Reason: reason}
	if err := p.producer.ProduceBackfillTask(ctx, task); err != nil {
		log.Warnf("[Ingestor] 发布回填任务失败 (id=%s, reason=%s): %v", documentID, reason, err)
	}
}
