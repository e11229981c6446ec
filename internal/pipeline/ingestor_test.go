package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"dochub-go/internal/apperr"
	"dochub-go/internal/gateway"
	"dochub-go/internal/model"
	"dochub-go/pkg/log"
	"dochub-go/pkg/tasks"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

// ---- 协作方的测试替身 ----

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ io.Reader, _, _ string) (string, error) {
	return f.text, f.err
}

type fakeCategorizer struct {
	result gateway.Categorization
}

func (f *fakeCategorizer) Categorize(_ context.Context, _, _ string) gateway.Categorization {
	return f.result
}

type fakeEmbedder struct {
	docVector   []float32
	queryVector []float32
}

func (f *fakeEmbedder) EmbedDocument(_ context.Context, _, _ string) []float32 { return f.docVector }
func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) []float32      { return f.queryVector }

type fakeObjectStore struct {
	putErr  error
	puts    []string
	removes []string
}

func (f *fakeObjectStore) Put(_ context.Context, objectName string, _ io.Reader, _ int64, _ string) error {
	f.puts = append(f.puts, objectName)
	return f.putErr
}

func (f *fakeObjectStore) Remove(_ context.Context, objectName string) error {
	f.removes = append(f.removes, objectName)
	return nil
}

type fakeIndexer struct {
	err     error
	indexed []model.EsDocument
}

func (f *fakeIndexer) IndexDocument(_ context.Context, doc model.EsDocument) error {
	f.indexed = append(f.indexed, doc)
	return f.err
}

type fakeProducer struct {
	tasks []tasks.EmbeddingBackfillTask
}

func (f *fakeProducer) ProduceBackfillTask(_ context.Context, task tasks.EmbeddingBackfillTask) error {
	f.tasks = append(f.tasks, task)
	return nil
}

// stubDocRepo 是 DocumentRepository 的空实现，供各测试替身按需覆盖。
type stubDocRepo struct{}

func (stubDocRepo) Create(context.Context, *model.Document) error        { return nil }
func (stubDocRepo) FindByID(context.Context, string) (*model.Document, error) {
	return nil, apperr.ErrNotFound
}
func (stubDocRepo) FindMany(context.Context, model.DocumentFilter, int) ([]model.Document, error) {
	return nil, nil
}
func (stubDocRepo) TextSearch(context.Context, string, model.DocumentFilter, int) ([]model.Document, error) {
	return nil, nil
}
func (stubDocRepo) FindWithEmbedding(context.Context, model.DocumentFilter) ([]model.Document, error) {
	return nil, nil
}
func (stubDocRepo) Distinct(context.Context, string) ([]string, error) { return nil, nil }
func (stubDocRepo) DeleteByID(context.Context, string) error           { return nil }
func (stubDocRepo) UpdateEmbedding(context.Context, string, model.Vector) error {
	return nil
}
func (stubDocRepo) RecordAccess(context.Context, string) error { return nil }
func (stubDocRepo) Count(context.Context) (int64, error)       { return 0, nil }
func (stubDocRepo) CountByCategory(context.Context) ([]model.CategoryCountDTO, error) {
	return nil, nil
}
func (stubDocRepo) FindRecent(context.Context, int) ([]model.Document, error) { return nil, nil }

// fakeDocRepo 只实现摄取路径用到的方法，其余由嵌入的空实现兜底。
type fakeDocRepo struct {
	stubDocRepo
	createErr error
	created   []*model.Document
}

func (f *fakeDocRepo) Create(_ context.Context, doc *model.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	return nil
}

func okCategorization() gateway.Categorization {
	return gateway.Categorization{
		Category: model.CategoryStrategy,
		Team:     "Growth",
		Project:  "Q3",
		Tags:     []string{"plan"},
		Summary:  "A plan.",
	}
}

func newTestIngestor(extractor *fakeExtractor, repo *fakeDocRepo, store *fakeObjectStore, indexer *fakeIndexer, producer *fakeProducer, embedder *fakeEmbedder) *Ingestor {
	return NewIngestor(extractor, &fakeCategorizer{result: okCategorization()}, embedder, repo, store, indexer, producer)
}

func validRequest() IngestRequest {
	return IngestRequest{
		Data:       []byte("raw bytes"),
		Filename:   "plan.txt",
		FileType:   "txt",
		Size:       9,
		UploadedBy: "alice",
	}
}

func TestIngestHappyPath(t *testing.T) {
	repo := &fakeDocRepo{}
	store := &fakeObjectStore{}
	indexer := &fakeIndexer{}
	producer := &fakeProducer{}
	ing := newTestIngestor(
		&fakeExtractor{text: "this is a long enough document body"},
		repo, store, indexer, producer,
		&fakeEmbedder{docVector: []float32{0.1, 0.2}},
	)

	doc, err := ing.Ingest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Ingest 失败: %v", err)
	}
	if doc.ID == "" {
		t.Error("应生成文档 ID")
	}
	if doc.Title != "plan" {
		t.Errorf("标题应去掉扩展名, got %q", doc.Title)
	}
	if doc.Category != model.CategoryStrategy || doc.Team != "Growth" {
		t.Errorf("分类结果未写入文档: %+v", doc)
	}
	if len(doc.Embedding) != 2 {
		t.Errorf("向量未写入文档: %v", doc.Embedding)
	}
	if !strings.HasPrefix(doc.StorageLocation, "documents/"+doc.ID+"/") {
		t.Errorf("对象路径应包含文档 ID: %q", doc.StorageLocation)
	}
	if len(repo.created) != 1 || len(store.puts) != 1 || len(indexer.indexed) != 1 {
		t.Errorf("持久化调用次数异常: created=%d puts=%d indexed=%d", len(repo.created), len(store.puts), len(indexer.indexed))
	}
	if len(producer.tasks) != 0 {
		t.Errorf("成功路径不应发起回填任务: %v", producer.tasks)
	}
}

func TestIngestExtractionFailureIsFatal(t *testing.T) {
	repo := &fakeDocRepo{}
	store := &fakeObjectStore{}
	ing := newTestIngestor(
		&fakeExtractor{err: errors.New("corrupted file")},
		repo, store, &fakeIndexer{}, &fakeProducer{},
		&fakeEmbedder{},
	)

	_, err := ing.Ingest(context.Background(), validRequest())
	if !apperr.IsValidation(err) {
		t.Fatalf("提取失败应返回校验错误, got %v", err)
	}
	if len(repo.created) != 0 || len(store.puts) != 0 {
		t.Error("提取失败后不应有任何持久化副作用")
	}
}

func TestIngestTooShortTextIsRejected(t *testing.T) {
	repo := &fakeDocRepo{}
	ing := newTestIngestor(
		&fakeExtractor{text: "短文本"},
		repo, &fakeObjectStore{}, &fakeIndexer{}, &fakeProducer{},
		&fakeEmbedder{},
	)

	_, err := ing.Ingest(context.Background(), validRequest())
	if !apperr.IsValidation(err) {
		t.Fatalf("过短文本应返回校验错误, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Error("被拒绝的文档不应持久化")
	}
}

func TestIngestDegradedCategorizationStillPersists(t *testing.T) {
	repo := &fakeDocRepo{}
	ing := NewIngestor(
		&fakeExtractor{text: "this is a long enough document body"},
		&fakeCategorizer{result: gateway.FallbackCategorization()},
		&fakeEmbedder{docVector: []float32{0.1}},
		repo, &fakeObjectStore{}, &fakeIndexer{}, &fakeProducer{},
	)

	doc, err := ing.Ingest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("分类降级不应导致摄取失败: %v", err)
	}
	if doc.Category != model.CategoryOther || doc.Team != model.DefaultTeam || doc.Project != model.DefaultProject {
		t.Errorf("降级文档应带默认归属字段: %+v", doc)
	}
}

func TestIngestMissingEmbeddingTriggersBackfill(t *testing.T) {
	repo := &fakeDocRepo{}
	producer := &fakeProducer{}
	ing := newTestIngestor(
		&fakeExtractor{text: "this is a long enough document body"},
		repo, &fakeObjectStore{}, &fakeIndexer{}, producer,
		&fakeEmbedder{docVector: nil},
	)

	doc, err := ing.Ingest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("向量化降级不应导致摄取失败: %v", err)
	}
	if doc.Embedding != nil {
		t.Errorf("降级文档的 Embedding 应为 nil: %v", doc.Embedding)
	}
	if len(producer.tasks) != 1 {
		t.Fatalf("应发起一条回填任务, got %d", len(producer.tasks))
	}
	if producer.tasks[0].Reason != tasks.ReasonEmbeddingMissing || producer.tasks[0].DocumentID != doc.ID {
		t.Errorf("回填任务内容错误: %+v", producer.tasks[0])
	}
}

func TestIngestStoreFailureIsFatal(t *testing.T) {
	repo := &fakeDocRepo{}
	store := &fakeObjectStore{putErr: errors.New("minio down")}
	ing := newTestIngestor(
		&fakeExtractor{text: "this is a long enough document body"},
		repo, store, &fakeIndexer{}, &fakeProducer{},
		&fakeEmbedder{docVector: []float32{0.1}},
	)

	_, err := ing.Ingest(context.Background(), validRequest())
	if !apperr.IsPersistence(err) {
		t.Fatalf("对象存储失败应返回持久化错误, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Error("对象写入失败后不应写数据库记录")
	}
}

func TestIngestCreateFailureCleansUpObject(t *testing.T) {
	repo := &fakeDocRepo{createErr: errors.New("mysql down")}
	store := &fakeObjectStore{}
	ing := newTestIngestor(
		&fakeExtractor{text: "this is a long enough document body"},
		repo, store, &fakeIndexer{}, &fakeProducer{},
		&fakeEmbedder{docVector: []float32{0.1}},
	)

	_, err := ing.Ingest(context.Background(), validRequest())
	if err == nil {
		t.Fatal("数据库写入失败应向上返回错误")
	}
	if len(store.removes) != 1 {
		t.Fatalf("失败路径应清理已写入的对象, removes=%d", len(store.removes))
	}
	if store.removes[0] != store.puts[0] {
		t.Errorf("清理的对象与写入的对象不一致: %q vs %q", store.removes[0], store.puts[0])
	}
}

func TestIngestIndexFailureDegradesToBackfill(t *testing.T) {
	repo := &fakeDocRepo{}
	producer := &fakeProducer{}
	ing := newTestIngestor(
		&fakeExtractor{text: "this is a long enough document body"},
		repo, &fakeObjectStore{}, &fakeIndexer{err: errors.New("es down")}, producer,
		&fakeEmbedder{docVector: []float32{0.1}},
	)

	doc, err := ing.Ingest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("索引失败不应导致摄取失败: %v", err)
	}
	if len(repo.created) != 1 {
		t.Error("索引失败时数据库记录仍应保留")
	}
	if len(producer.tasks) != 1 || producer.tasks[0].Reason != tasks.ReasonIndexMissing {
		t.Fatalf("应发起索引回填任务, got %+v", producer.tasks)
	}
	if producer.tasks[0].DocumentID != doc.ID {
		t.Errorf("回填任务文档 ID 错误: %q", producer.tasks[0].DocumentID)
	}
}
