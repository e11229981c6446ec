package service

import (
	"context"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"dochub-go/internal/apperr"
	"dochub-go/internal/config"
	"dochub-go/internal/model"
	"dochub-go/internal/pipeline"
	"dochub-go/pkg/log"
)

// UploadService 是上传入口：在调用摄取管道之前完成文件类型与大小校验。
type UploadService interface {
	Upload(ctx context.Context, fileHeader *multipart.FileHeader, uploadedBy string) (*model.Document, error)
}

type uploadService struct {
	ingestor  *pipeline.Ingestor
	uploadCfg config.UploadConfig
}

// NewUploadService 创建一个新的 UploadService 实例。
func NewUploadService(ingestor *pipeline.Ingestor, uploadCfg config.UploadConfig) UploadService {
	return &uploadService{
		ingestor:  ingestor,
		uploadCfg: uploadCfg,
	}
}

// Upload 校验上传文件并触发摄取流程。
func (s *uploadService) Upload(ctx context.Context, fileHeader *multipart.FileHeader, uploadedBy string) (*model.Document, error) {
	filename := filepath.Base(fileHeader.Filename)
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")

	if !model.ValidFileTypes[fileType] {
		return nil, apperr.Validationf("不支持的文件类型: %s", fileType)
	}

	maxSize := int64(s.uploadCfg.MaxFileSizeMB) * 1024 * 1024
	if maxSize > 0 && fileHeader.Size > maxSize {
		return nil, apperr.Validationf("文件大小超出限制 (%dMB)", s.uploadCfg.MaxFileSizeMB)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, apperr.Validationf("无法读取上传文件: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.Validationf("读取上传文件失败: %v", err)
	}

	log.Infof("[UploadService] 接收上传, filename: %s, size: %d, by: %s", filename, fileHeader.Size, uploadedBy)

	return s.ingestor.Ingest(ctx, pipeline.IngestRequest{
		Data:       data,
		Filename:   filename,
		FileType:   fileType,
		Size:       fileHeader.Size,
		UploadedBy: uploadedBy,
	})
}
