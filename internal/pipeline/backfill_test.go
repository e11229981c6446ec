package pipeline

import (
	"context"
	"testing"

	"dochub-go/internal/model"
	"dochub-go/pkg/tasks"
)

// backfillDocRepo 返回预置文档并记录 Embedding 更新。
type backfillDocRepo struct {
	stubDocRepo
	doc     *model.Document
	findErr error
	updated map[string]model.Vector
}

func (f *backfillDocRepo) FindByID(_ context.Context, id string) (*model.Document, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.doc, nil
}

func (f *backfillDocRepo) UpdateEmbedding(_ context.Context, id string, vector model.Vector) error {
	if f.updated == nil {
		f.updated = make(map[string]model.Vector)
	}
	f.updated[id] = vector
	return nil
}

func TestBackfillEmbedsAndReindexes(t *testing.T) {
	repo := &backfillDocRepo{doc: &model.Document{ID: "doc-1", Title: "t", ExtractedText: "body"}}
	indexer := &fakeIndexer{}
	p := NewBackfillProcessor(repo, &fakeEmbedder{docVector: []float32{0.5, 0.5}}, indexer)

	err := p.Process(context.Background(), tasks.EmbeddingBackfillTask{DocumentID: "doc-1", Reason: tasks.ReasonEmbeddingMissing})
	if err != nil {
		t.Fatalf("Process 失败: %v", err)
	}
	if len(repo.updated["doc-1"]) != 2 {
		t.Errorf("应更新文档 Embedding, got %v", repo.updated)
	}
	if len(indexer.indexed) != 1 || indexer.indexed[0].DocumentID != "doc-1" {
		t.Errorf("应重写关键词索引条目: %+v", indexer.indexed)
	}
}

func TestBackfillSkipsDeletedDocument(t *testing.T) {
	// stubDocRepo 的 FindByID 返回 ErrNotFound，这里直接复用
	p := NewBackfillProcessor(stubDocRepo{}, &fakeEmbedder{}, &fakeIndexer{})

	err := p.Process(context.Background(), tasks.EmbeddingBackfillTask{DocumentID: "gone"})
	if err != nil {
		t.Fatalf("已删除文档的任务应视为完成, got %v", err)
	}
}

func TestBackfillRetriesWhenEmbeddingStillUnavailable(t *testing.T) {
	repo := &backfillDocRepo{doc: &model.Document{ID: "doc-1", Title: "t", ExtractedText: "body"}}
	p := NewBackfillProcessor(repo, &fakeEmbedder{docVector: nil}, &fakeIndexer{})

	err := p.Process(context.Background(), tasks.EmbeddingBackfillTask{DocumentID: "doc-1"})
	if err == nil {
		t.Fatal("向量服务仍不可用时应返回错误以触发重试")
	}
	if len(repo.updated) != 0 {
		t.Error("失败路径不应写入 Embedding")
	}
}

func TestBackfillSkipsEmbeddingWhenPresent(t *testing.T) {
	repo := &backfillDocRepo{doc: &model.Document{ID: "doc-1", Embedding: model.Vector{0.1}}}
	indexer := &fakeIndexer{}
	// embedder 返回 nil：若错误地走了向量化分支，Process 会返回 error
	p := NewBackfillProcessor(repo, &fakeEmbedder{docVector: nil}, indexer)

	err := p.Process(context.Background(), tasks.EmbeddingBackfillTask{DocumentID: "doc-1", Reason: tasks.ReasonIndexMissing})
	if err != nil {
		t.Fatalf("已有 Embedding 的文档只应重建索引: %v", err)
	}
	if len(indexer.indexed) != 1 {
		t.Errorf("应重写索引条目, got %d", len(indexer.indexed))
	}
}
