// Package gateway 将外部不可靠服务包装为类型化、容错的内部接口。
// 网关吸收传输和服务方错误：调用方拿到的是降级值，而不是 error。
package gateway

import (
	"context"

	"dochub-go/pkg/embedding"
	"dochub-go/pkg/log"
)

// embedMaxRunes 是提交给向量模型的文本前缀上限（模型 token 上限的安全边际）。
// 文档与查询使用同一套截断规则，保证两侧向量的尺度可比。
const embedMaxRunes = 5000

// EmbeddingGateway 为文档与查询生成语义向量。
// 返回 nil 表示向量服务不可用，调用方应跳过语义打分，不得视为致命错误。
type EmbeddingGateway interface {
	EmbedDocument(ctx context.Context, title, text string) []float32
	EmbedQuery(ctx context.Context, query string) []float32
}

type embeddingGateway struct {
	client embedding.Client
}

// NewEmbeddingGateway 创建一个新的 EmbeddingGateway 实例。
func NewEmbeddingGateway(client embedding.Client) EmbeddingGateway {
	return &embeddingGateway{client: client}
}

// EmbedDocument 为文档生成向量，输入为标题与正文拼接后的截断前缀。
func (g *embeddingGateway) EmbedDocument(ctx context.Context, title, text string) []float32 {
	return g.embed(ctx, truncateRunes(title+"\n\n"+text, embedMaxRunes))
}

// EmbedQuery 为搜索查询生成向量，套用与文档相同的截断规则。
func (g *embeddingGateway) EmbedQuery(ctx context.Context, query string) []float32 {
	return g.embed(ctx, truncateRunes(query, embedMaxRunes))
}

func (g *embeddingGateway) embed(ctx context.Context, text string) []float32 {
	vector, err := g.client.CreateEmbedding(ctx, text)
	if err != nil {
		// 降级：向量缺失是预期内的状态，只记录日志
		log.Warnf("[EmbeddingGateway] 向量化不可用, 跳过语义信号: %v", err)
		return nil
	}
	return vector
}

// truncateRunes 按 rune 截断文本到最大长度。
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
