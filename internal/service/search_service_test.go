package service

import (
	"context"
	"os"
	"testing"

	"dochub-go/internal/apperr"
	"dochub-go/internal/model"
	"dochub-go/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

// stubRepo 是 DocumentRepository 的空实现，供测试替身按需覆盖。
type stubRepo struct{}

func (stubRepo) Create(context.Context, *model.Document) error { return nil }
func (stubRepo) FindByID(context.Context, string) (*model.Document, error) {
	return nil, apperr.ErrNotFound
}
func (stubRepo) FindMany(context.Context, model.DocumentFilter, int) ([]model.Document, error) {
	return nil, nil
}
func (stubRepo) TextSearch(context.Context, string, model.DocumentFilter, int) ([]model.Document, error) {
	return nil, nil
}
func (stubRepo) FindWithEmbedding(context.Context, model.DocumentFilter) ([]model.Document, error) {
	return nil, nil
}
func (stubRepo) Distinct(context.Context, string) ([]string, error)            { return nil, nil }
func (stubRepo) DeleteByID(context.Context, string) error                      { return nil }
func (stubRepo) UpdateEmbedding(context.Context, string, model.Vector) error   { return nil }
func (stubRepo) RecordAccess(context.Context, string) error                    { return nil }
func (stubRepo) Count(context.Context) (int64, error)                          { return 0, nil }
func (stubRepo) CountByCategory(context.Context) ([]model.CategoryCountDTO, error) {
	return nil, nil
}
func (stubRepo) FindRecent(context.Context, int) ([]model.Document, error) { return nil, nil }

// searchRepo 预置两路候选，并记录各查询入口的调用情况。
type searchRepo struct {
	stubRepo
	textDocs        []model.Document
	embeddedDocs    []model.Document
	manyDocs        []model.Document
	textSearchCalls int
	findManyCalls   int
	embeddingCalls  int
	lastLimit       int
}

func (f *searchRepo) TextSearch(_ context.Context, _ string, _ model.DocumentFilter, limit int) ([]model.Document, error) {
	f.textSearchCalls++
	f.lastLimit = limit
	return f.textDocs, nil
}

func (f *searchRepo) FindWithEmbedding(_ context.Context, _ model.DocumentFilter) ([]model.Document, error) {
	f.embeddingCalls++
	return f.embeddedDocs, nil
}

func (f *searchRepo) FindMany(_ context.Context, _ model.DocumentFilter, limit int) ([]model.Document, error) {
	f.findManyCalls++
	f.lastLimit = limit
	return f.manyDocs, nil
}

// searchEmbedder 返回固定查询向量并统计调用次数。
type searchEmbedder struct {
	queryVector []float32
	queryCalls  int
}

func (f *searchEmbedder) EmbedDocument(_ context.Context, _, _ string) []float32 { return nil }
func (f *searchEmbedder) EmbedQuery(_ context.Context, _ string) []float32 {
	f.queryCalls++
	return f.queryVector
}

func doc(id string, embedding model.Vector) model.Document {
	return model.Document{ID: id, Title: id, Embedding: embedding}
}

func TestSearchFusesKeywordAndSemanticScores(t *testing.T) {
	// a: 关键词命中 + 语义 1.0 → 100
	// b: 仅关键词命中 → 60
	// c: 仅语义 0.6 → 24
	// d: 语义 0.28 低于阈值 → 排除
	repo := &searchRepo{
		textDocs: []model.Document{doc("a", model.Vector{1, 0}), doc("b", nil)},
		embeddedDocs: []model.Document{
			doc("a", model.Vector{1, 0}),
			doc("c", model.Vector{0.6, 0.8}),
			doc("d", model.Vector{0.28, 0.96}),
		},
	}
	svc := NewSearchService(repo, &searchEmbedder{queryVector: []float32{1, 0}})

	resp, err := svc.Search(context.Background(), SearchRequest{Query: "campaign", Limit: 10})
	if err != nil {
		t.Fatalf("Search 失败: %v", err)
	}

	if resp.Count != 3 {
		t.Fatalf("期望 3 条结果, got %d", resp.Count)
	}
	wantOrder := []string{"a", "b", "c"}
	wantScores := []int{100, 60, 24}
	for i, r := range resp.Results {
		if r.ID != wantOrder[i] {
			t.Errorf("位置 %d 期望 %q, got %q", i, wantOrder[i], r.ID)
		}
		if r.RelevanceScore == nil || *r.RelevanceScore != wantScores[i] {
			t.Errorf("文档 %q 期望得分 %d, got %v", r.ID, wantScores[i], r.RelevanceScore)
		}
	}
}

func TestSearchKeywordCandidatePoolIsDoubled(t *testing.T) {
	repo := &searchRepo{}
	svc := NewSearchService(repo, &searchEmbedder{})

	if _, err := svc.Search(context.Background(), SearchRequest{Query: "q", Limit: 15}); err != nil {
		t.Fatalf("Search 失败: %v", err)
	}
	if repo.lastLimit != 30 {
		t.Errorf("关键词候选上限应为 2×limit, got %d", repo.lastLimit)
	}
}

func TestSearchDegradesToKeywordOnlyWithoutQueryVector(t *testing.T) {
	repo := &searchRepo{textDocs: []model.Document{doc("a", nil)}}
	svc := NewSearchService(repo, &searchEmbedder{queryVector: nil})

	resp, err := svc.Search(context.Background(), SearchRequest{Query: "q", Limit: 10})
	if err != nil {
		t.Fatalf("Search 失败: %v", err)
	}
	if repo.embeddingCalls != 0 {
		t.Error("查询向量不可用时不应扫描文档向量")
	}
	if resp.Count != 1 || *resp.Results[0].RelevanceScore != 60 {
		t.Errorf("纯关键词路径结果异常: %+v", resp.Results)
	}
}

func TestSearchBlankQueryIsBrowseMode(t *testing.T) {
	repo := &searchRepo{manyDocs: []model.Document{doc("a", nil), doc("b", nil)}}
	embedder := &searchEmbedder{queryVector: []float32{1}}
	svc := NewSearchService(repo, embedder)

	resp, err := svc.Search(context.Background(), SearchRequest{Query: "   ", Limit: 10})
	if err != nil {
		t.Fatalf("Search 失败: %v", err)
	}
	if embedder.queryCalls != 0 {
		t.Error("浏览模式不应调用向量服务")
	}
	if repo.textSearchCalls != 0 || repo.findManyCalls != 1 {
		t.Errorf("浏览模式应只走 FindMany: textSearch=%d findMany=%d", repo.textSearchCalls, repo.findManyCalls)
	}
	if resp.Count != 2 {
		t.Fatalf("期望 2 条结果, got %d", resp.Count)
	}
	for _, r := range resp.Results {
		if r.RelevanceScore != nil {
			t.Errorf("浏览模式不应带相关度得分: %+v", r)
		}
	}
}

func TestSearchTruncatesToLimit(t *testing.T) {
	repo := &searchRepo{
		textDocs: []model.Document{doc("a", nil), doc("b", nil), doc("c", nil)},
	}
	svc := NewSearchService(repo, &searchEmbedder{})

	resp, err := svc.Search(context.Background(), SearchRequest{Query: "q", Limit: 2})
	if err != nil {
		t.Fatalf("Search 失败: %v", err)
	}
	if resp.Count != 2 || len(resp.Results) != 2 {
		t.Errorf("结果应截断到 limit=2, got %d", len(resp.Results))
	}
}

func TestSearchEqualScoresKeepKeywordOrder(t *testing.T) {
	// 三个纯关键词候选同分，排序必须保持检索引擎给出的先后
	repo := &searchRepo{
		textDocs: []model.Document{doc("first", nil), doc("second", nil), doc("third", nil)},
	}
	svc := NewSearchService(repo, &searchEmbedder{})

	resp, err := svc.Search(context.Background(), SearchRequest{Query: "q", Limit: 10})
	if err != nil {
		t.Fatalf("Search 失败: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, r := range resp.Results {
		if r.ID != want[i] {
			t.Errorf("同分排序应稳定: 位置 %d 期望 %q, got %q", i, want[i], r.ID)
		}
	}
}

func TestSearchScoreBounds(t *testing.T) {
	repo := &searchRepo{
		textDocs:     []model.Document{doc("a", model.Vector{1, 0})},
		embeddedDocs: []model.Document{doc("a", model.Vector{1, 0})},
	}
	svc := NewSearchService(repo, &searchEmbedder{queryVector: []float32{1, 0}})

	resp, err := svc.Search(context.Background(), SearchRequest{Query: "q", Limit: 10})
	if err != nil {
		t.Fatalf("Search 失败: %v", err)
	}
	score := *resp.Results[0].RelevanceScore
	if score < 0 || score > 100 {
		t.Errorf("得分必须落在 [0,100], got %d", score)
	}
	if score != 100 {
		t.Errorf("满分候选应得 100, got %d", score)
	}
}
