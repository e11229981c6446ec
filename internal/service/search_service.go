// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"dochub-go/internal/gateway"
	"dochub-go/internal/model"
	"dochub-go/internal/repository"
	"dochub-go/pkg/log"
	"dochub-go/pkg/similarity"
)

// 混合排序的策略常量。阈值与权重来自线上观察值，
// 属于产品调参项，不是由数据推导出的结论。
const (
	// semanticFloor 以下的语义得分视为不相关，候选被丢弃
	semanticFloor = 0.3
	// 关键词命中被视为比语义相似更强的证据
	textWeight     = 0.6
	semanticWeight = 0.4
)

// defaultSearchLimit 是未指定 limit 时的返回条数。
const defaultSearchLimit = 20

// SearchRequest 是一次搜索请求。Query 为空时进入浏览模式。
type SearchRequest struct {
	Query  string
	Filter model.DocumentFilter
	Limit  int
}

// SearchResponse 是搜索接口的响应。
type SearchResponse struct {
	Query   string                  `json:"query,omitempty"`
	Count   int                     `json:"count"`
	Results []model.SearchResultDTO `json:"results"`
}

// SearchService 接口定义了搜索相关的业务操作。
type SearchService interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	FilterOptions(ctx context.Context) (*model.FilterOptionsDTO, error)
	Stats(ctx context.Context) (*model.StatsDTO, error)
}

type searchService struct {
	docRepo  repository.DocumentRepository
	embedder gateway.EmbeddingGateway
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(docRepo repository.DocumentRepository, embedder gateway.EmbeddingGateway) SearchService {
	return &searchService{
		docRepo:  docRepo,
		embedder: embedder,
	}
}

// candidate 是融合阶段的中间结构：关键词命中得 1 分，
// 语义得分为查询向量与文档向量的余弦相似度。
type candidate struct {
	doc           model.Document
	textScore     float64
	semanticScore float64
}

// Search 执行混合搜索。空查询退化为按过滤条件浏览；
// 非空查询融合关键词与语义两路候选后按相关度排序。
func (s *searchService) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return s.browse(ctx, req.Filter, limit)
	}

	log.Infof("[SearchService] 开始执行混合搜索, query: '%s', limit: %d", query, limit)

	// 第一路：关键词检索，候选上限为 2×limit，命中即得满分文本分
	textDocs, err := s.docRepo.TextSearch(ctx, query, req.Filter, 2*limit)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]*candidate, len(textDocs))
	order := make([]string, 0, len(textDocs))
	for i := range textDocs {
		doc := textDocs[i]
		merged[doc.ID] = &candidate{doc: doc, textScore: 1}
		order = append(order, doc.ID)
	}

	// 第二路：语义检索。查询向量不可用时整体退化为纯关键词排序。
	if queryVector := s.embedder.EmbedQuery(ctx, query); queryVector != nil {
		embeddedDocs, err := s.docRepo.FindWithEmbedding(ctx, req.Filter)
		if err != nil {
			return nil, err
		}
		for i := range embeddedDocs {
			doc := embeddedDocs[i]
			score := similarity.Cosine(queryVector, doc.Embedding)
			if score <= semanticFloor {
				continue
			}
			if existing, ok := merged[doc.ID]; ok {
				existing.semanticScore = score
			} else {
				merged[doc.ID] = &candidate{doc: doc, semanticScore: score}
				order = append(order, doc.ID)
			}
		}
	} else {
		log.Warnf("[SearchService] 查询向量不可用, 本次搜索仅按关键词排序, query: '%s'", query)
	}

	// 融合打分并稳定排序
	results := make([]model.SearchResultDTO, 0, len(order))
	for _, id := range order {
		c := merged[id]
		score := int(math.Round((c.textScore*textWeight + c.semanticScore*semanticWeight) * 100))
		dto := model.SearchResultDTO{DocumentSummaryDTO: c.doc.ToSummary()}
		dto.RelevanceScore = &score
		results = append(results, dto)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].RelevanceScore > *results[j].RelevanceScore
	})
	if len(results) > limit {
		results = results[:limit]
	}

	log.Infof("[SearchService] 混合搜索完成, query: '%s', 返回 %d 条结果", query, len(results))
	return &SearchResponse{Query: query, Count: len(results), Results: results}, nil
}

// browse 是浏览模式：只按过滤条件取最新文档，不计算相关度，
// 也不调用向量服务。
func (s *searchService) browse(ctx context.Context, filter model.DocumentFilter, limit int) (*SearchResponse, error) {
	docs, err := s.docRepo.FindMany(ctx, filter, limit)
	if err != nil {
		return nil, err
	}

	results := make([]model.SearchResultDTO, 0, len(docs))
	for i := range docs {
		results = append(results, model.SearchResultDTO{DocumentSummaryDTO: docs[i].ToSummary()})
	}
	return &SearchResponse{Count: len(results), Results: results}, nil
}

// FilterOptions 返回各过滤维度的候选值，用于填充前端筛选器。
func (s *searchService) FilterOptions(ctx context.Context) (*model.FilterOptionsDTO, error) {
	categories, err := s.docRepo.Distinct(ctx, "category")
	if err != nil {
		return nil, err
	}
	teams, err := s.docRepo.Distinct(ctx, "team")
	if err != nil {
		return nil, err
	}
	projects, err := s.docRepo.Distinct(ctx, "project")
	if err != nil {
		return nil, err
	}
	fileTypes, err := s.docRepo.Distinct(ctx, "fileType")
	if err != nil {
		return nil, err
	}

	return &model.FilterOptionsDTO{
		Categories: categories,
		Teams:      teams,
		Projects:   projects,
		FileTypes:  fileTypes,
	}, nil
}

// Stats 返回文档总量、按分类聚合与最近上传，只读不参与排序逻辑。
func (s *searchService) Stats(ctx context.Context) (*model.StatsDTO, error) {
	total, err := s.docRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.docRepo.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.docRepo.FindRecent(ctx, 5)
	if err != nil {
		return nil, err
	}

	recentSummaries := make([]model.DocumentSummaryDTO, 0, len(recent))
	for i := range recent {
		recentSummaries = append(recentSummaries, recent[i].ToSummary())
	}

	return &model.StatsDTO{
		TotalDocuments:    total,
		CategoryBreakdown: breakdown,
		RecentUploads:     recentSummaries,
	}, nil
}
