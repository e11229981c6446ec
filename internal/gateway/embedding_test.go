package gateway

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"
)

// fakeEmbeddingClient 记录收到的文本并返回固定向量或错误。
type fakeEmbeddingClient struct {
	vector []float32
	err    error
	inputs []string
}

func (f *fakeEmbeddingClient) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	f.inputs = append(f.inputs, text)
	return f.vector, f.err
}

func TestEmbedDocumentJoinsTitleAndText(t *testing.T) {
	client := &fakeEmbeddingClient{vector: []float32{0.1, 0.2}}
	g := NewEmbeddingGateway(client)

	got := g.EmbedDocument(context.Background(), "标题", "正文内容")
	if got == nil {
		t.Fatal("成功路径不应返回 nil")
	}
	if len(client.inputs) != 1 || client.inputs[0] != "标题\n\n正文内容" {
		t.Errorf("输入拼接错误: %q", client.inputs)
	}
}

func TestEmbedDocumentTruncatesByRunes(t *testing.T) {
	client := &fakeEmbeddingClient{vector: []float32{0.1}}
	g := NewEmbeddingGateway(client)

	long := make([]rune, embedMaxRunes*2)
	for i := range long {
		long[i] = '文'
	}
	g.EmbedDocument(context.Background(), "", string(long))

	if got := utf8.RuneCountInString(client.inputs[0]); got != embedMaxRunes {
		t.Errorf("截断后长度 = %d, want %d", got, embedMaxRunes)
	}
}

func TestEmbedQueryUsesSameTruncationRule(t *testing.T) {
	client := &fakeEmbeddingClient{vector: []float32{0.1}}
	g := NewEmbeddingGateway(client)

	long := make([]rune, embedMaxRunes+100)
	for i := range long {
		long[i] = 'q'
	}
	g.EmbedQuery(context.Background(), string(long))

	if got := utf8.RuneCountInString(client.inputs[0]); got != embedMaxRunes {
		t.Errorf("查询截断后长度 = %d, want %d", got, embedMaxRunes)
	}
}

func TestEmbedReturnsNilOnClientError(t *testing.T) {
	client := &fakeEmbeddingClient{err: errors.New("service unavailable")}
	g := NewEmbeddingGateway(client)

	if got := g.EmbedDocument(context.Background(), "t", "text"); got != nil {
		t.Errorf("向量服务失败应返回 nil, got %v", got)
	}
	if got := g.EmbedQuery(context.Background(), "query"); got != nil {
		t.Errorf("查询向量失败应返回 nil, got %v", got)
	}
}
