// Package extract 将不同格式的上传文件转换为纯文本。
// txt/md 直接按 UTF-8 读取，pdf/docx/doc 交给 Tika 服务器解析。
package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"dochub-go/pkg/tika"
)

// Extractor 是文本提取器，按文件类型路由到对应的解析方式。
type Extractor struct {
	tikaClient *tika.Client
}

// NewExtractor 创建一个新的 Extractor 实例。
func NewExtractor(tikaClient *tika.Client) *Extractor {
	return &Extractor{tikaClient: tikaClient}
}

// Extract 从文件内容中提取纯文本，返回去除首尾空白后的结果。
func (e *Extractor) Extract(ctx context.Context, reader io.Reader, fileName, fileType string) (string, error) {
	switch strings.ToLower(fileType) {
	case "txt", "md":
		data, err := io.ReadAll(reader)
		if err != nil {
			return "", fmt.Errorf("读取文本文件失败: %w", err)
		}
		return strings.TrimSpace(string(data)), nil

	case "pdf", "docx", "doc":
		text, err := e.tikaClient.ExtractText(ctx, reader, fileName)
		if err != nil {
			return "", fmt.Errorf("使用 Tika 提取文本失败: %w", err)
		}
		return strings.TrimSpace(text), nil

	default:
		return "", fmt.Errorf("不支持的文件类型: %s", fileType)
	}
}
