package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dochub-go/internal/model"
	"dochub-go/pkg/llm"
	"dochub-go/pkg/log"
)

// categorizeSampleRunes 是提交给分类模型的正文采样长度，控制 prompt 规模。
const categorizeSampleRunes = 2000

// Categorization 是分类网关的结构化输出。
// Degraded 为 true 表示外部分类器失败，字段已替换为默认值。
type Categorization struct {
	Category string   `json:"category"`
	Team     string   `json:"team"`
	Project  string   `json:"project"`
	Tags     []string `json:"tags"`
	Summary  string   `json:"summary"`
	Degraded bool     `json:"-"`
}

// CategorizationGateway 调用外部 LLM 对文档做分类、打标签与摘要。
// Categorize 永远不返回 error：任何失败都降级为固定的默认记录。
type CategorizationGateway interface {
	Categorize(ctx context.Context, title, text string) Categorization
}

type categorizationGateway struct {
	client llm.Client
}

// NewCategorizationGateway 创建一个新的 CategorizationGateway 实例。
func NewCategorizationGateway(client llm.Client) CategorizationGateway {
	return &categorizationGateway{client: client}
}

// FallbackCategorization 返回分类器不可用时的固定降级记录。
func FallbackCategorization() Categorization {
	return Categorization{
		Category: model.CategoryOther,
		Team:     model.DefaultTeam,
		Project:  model.DefaultProject,
		Tags:     []string{"document", "marketing"},
		Summary:  "Document uploaded to the system.",
		Degraded: true,
	}
}

// Categorize 提交正文采样给 LLM 并防御性解析其响应。
func (g *categorizationGateway) Categorize(ctx context.Context, title, text string) Categorization {
	sample := truncateRunes(text, categorizeSampleRunes)
	prompt := buildCategorizePrompt(title, sample)

	response, err := g.client.Complete(ctx, prompt)
	if err != nil {
		log.Warnf("[CategorizationGateway] 分类调用失败, 使用默认分类: %v", err)
		return FallbackCategorization()
	}

	result, err := parseCategorization(response)
	if err != nil {
		log.Warnf("[CategorizationGateway] 分类响应解析失败, 使用默认分类: %v", err)
		return FallbackCategorization()
	}
	return result
}

// buildCategorizePrompt 构建分类指令，要求模型只返回 JSON 对象。
func buildCategorizePrompt(title, sample string) string {
	return fmt.Sprintf(`Analyze this marketing document and provide categorization in JSON format.

Title: %s
Content: %s

Return ONLY a JSON object with this exact structure (no markdown, no explanation):
{
  "category": "one of: Strategy, Campaign, Research, Creative, Analytics, Other",
  "team": "inferred team name or 'General'",
  "project": "inferred project name or 'Uncategorized'",
  "tags": ["3-5 relevant keywords"],
  "summary": "2-3 sentence summary"
}`, title, sample)
}

// parseCategorization 剥离模型可能附加的 markdown 包裹后解析 JSON，
// 并将各字段归一化到合法取值（绝不信任外部分类器的原始输出）。
func parseCategorization(response string) (Categorization, error) {
	clean := strings.TrimSpace(response)
	clean = strings.ReplaceAll(clean, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var result Categorization
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		return Categorization{}, fmt.Errorf("invalid categorization payload: %w", err)
	}

	// category 必须落在闭合枚举内
	if !model.ValidCategories[result.Category] {
		result.Category = model.CategoryOther
	}
	if strings.TrimSpace(result.Team) == "" {
		result.Team = model.DefaultTeam
	}
	if strings.TrimSpace(result.Project) == "" {
		result.Project = model.DefaultProject
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}

	return result, nil
}
