// Package similarity 提供向量相似度的纯函数计算。
package similarity

import "math"

// Cosine 计算两个向量的余弦相似度，结果落在 [-1, 1] 区间。
// 任一向量为空、维度不一致或模长为零时返回 0，表示"无相似度信号"，
// 调用方不需要对此做特殊处理。
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)

	// 全零向量定义为与任何向量都不相似，避免除零
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (normA * normB)
}
