// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// 回填任务的触发原因。
const (
	ReasonEmbeddingMissing = "embedding_missing"
	ReasonIndexMissing     = "index_missing"
)

// EmbeddingBackfillTask 表示一个降级修复任务：
// 文档已持久化，但 Embedding 缺失或关键词索引写入失败，需要后台补齐。
type EmbeddingBackfillTask struct {
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}
