package pipeline

import (
	"context"
	"errors"

	"dochub-go/internal/apperr"
	"dochub-go/internal/gateway"
	"dochub-go/internal/model"
	"dochub-go/internal/repository"
	"dochub-go/pkg/log"
	"dochub-go/pkg/tasks"
)

// BackfillProcessor 消费回填任务，修复以降级状态持久化的文档：
// 补齐缺失的 Embedding，并重写关键词索引条目。
type BackfillProcessor struct {
	docRepo  repository.DocumentRepository
	embedder gateway.EmbeddingGateway
	indexer  Indexer
}

// NewBackfillProcessor 创建一个新的 BackfillProcessor 实例。
func NewBackfillProcessor(docRepo repository.DocumentRepository, embedder gateway.EmbeddingGateway, indexer Indexer) *BackfillProcessor {
	return &BackfillProcessor{
		docRepo:  docRepo,
		embedder: embedder,
		indexer:  indexer,
	}
}

// Process 处理单个回填任务。返回 error 时由消费端按重试策略处理；
// 文档已被删除的任务直接视为完成。
func (p *BackfillProcessor) Process(ctx context.Context, task tasks.EmbeddingBackfillTask) error {
	doc, err := p.docRepo.FindByID(ctx, task.DocumentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Infof("[Backfill] 文档已不存在, 跳过任务: %s", task.DocumentID)
			return nil
		}
		return err
	}

	if len(doc.Embedding) == 0 {
		vector := p.embedder.EmbedDocument(ctx, doc.Title, doc.ExtractedText)
		if vector == nil {
			// 向量服务仍不可用，交给消费端按次数重试
			return errors.New("embedding still unavailable")
		}
		if err := p.docRepo.UpdateEmbedding(ctx, doc.ID, vector); err != nil {
			return err
		}
		doc.Embedding = vector
		log.Infof("[Backfill] 已补齐文档 Embedding, id: %s, 维度: %d", doc.ID, len(vector))
	}

	if err := p.indexer.IndexDocument(ctx, model.NewEsDocument(doc)); err != nil {
		return err
	}
	return nil
}
