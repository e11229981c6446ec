// Package es 提供了与 Elasticsearch 交互的客户端功能。
// Index 封装了文档关键词索引的全部操作，由 main 创建后注入各组件。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"dochub-go/internal/config"
	"dochub-go/internal/model"
	"dochub-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Index 是文档关键词索引的句柄。
type Index struct {
	client *elasticsearch.Client
	name   string
}

// NewIndex 初始化 Elasticsearch 客户端并确保索引存在。
func NewIndex(esCfg config.ElasticsearchConfig) (*Index, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	idx := &Index{client: client, name: esCfg.IndexName}
	if err := idx.createIfNotExists(); err != nil {
		return nil, err
	}
	return idx, nil
}

// createIfNotExists 检查索引是否存在，如果不存在则创建它。
func (idx *Index) createIfNotExists() error {
	res, err := idx.client.Indices.Exists([]string{idx.name})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	// 200 说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", idx.name)
		return nil
	}
	// 404 说明索引不存在，需要创建
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", idx.name, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 索引只承担关键词检索：title/extracted_text/tags 为全文字段，
	// 过滤维度为 keyword 字段；向量不进入索引。
	mapping := `{
		"mappings": {
			"properties": {
				"document_id": { "type": "keyword" },
				"title": { "type": "text" },
				"extracted_text": { "type": "text" },
				"tags": { "type": "text" },
				"category": { "type": "keyword" },
				"team": { "type": "keyword" },
				"project": { "type": "keyword" },
				"file_type": { "type": "keyword" },
				"uploaded_at": { "type": "date" }
			}
		}
	}`

	res, err = idx.client.Indices.Create(
		idx.name,
		idx.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)

	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", idx.name, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", idx.name, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", idx.name)
	return nil
}

// IndexDocument 将单个文档索引到关键词索引，文档 ID 作为索引主键保证幂等。
func (idx *Index) IndexDocument(ctx context.Context, doc model.EsDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      idx.name,
		DocumentID: doc.DocumentID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, idx.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index document")
	}

	return nil
}

// DeleteDocument 从关键词索引中删除一个文档，文档不存在不视为错误。
func (idx *Index) DeleteDocument(ctx context.Context, documentID string) error {
	req := esapi.DeleteRequest{
		Index:      idx.name,
		DocumentID: documentID,
	}

	res, err := req.Do(ctx, idx.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to delete document from index: %s", res.String())
	}
	return nil
}

// Search 执行关键词检索，返回按 ES 相关度排序的文档 ID 列表。
// 过滤条件以 term 精确匹配加入 filter 子句，不影响打分。
func (idx *Index) Search(ctx context.Context, query string, filter model.DocumentFilter, limit int) ([]string, error) {
	filters := buildTermFilters(filter)

	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"title^2", "extracted_text", "tags"},
					},
				},
				"filter": filters,
			},
		},
		"_source": []string{"document_id"},
		"size":    limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := idx.client.Search(
		idx.client.Search.WithContext(ctx),
		idx.client.Search.WithIndex(idx.name),
		idx.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source struct {
					DocumentID string `json:"document_id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	ids := make([]string, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		ids = append(ids, hit.Source.DocumentID)
	}
	return ids, nil
}

// buildTermFilters 将非空的过滤字段转换为 term 子句。
func buildTermFilters(filter model.DocumentFilter) []map[string]interface{} {
	filters := make([]map[string]interface{}, 0, 4)
	if filter.Category != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"category": filter.Category}})
	}
	if filter.Team != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"team": filter.Team}})
	}
	if filter.Project != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"project": filter.Project}})
	}
	if filter.FileType != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"file_type": filter.FileType}})
	}
	return filters
}
