package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bitfantasy/nimo-qms/internal/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectStore 上传原始文件的归档存储（MinIO）。
// 未配置MinIO时返回nil，调用方按nil安全处理：归档是尽力而为，不影响解析。
type ObjectStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewObjectStore 根据配置创建对象存储，endpoint为空时返回nil
func NewObjectStore(cfg config.MinIOConfig, logger *zap.Logger) *ObjectStore {
	if cfg.Endpoint == "" {
		return nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		if logger != nil {
			logger.Warn("MinIO init failed, upload archiving disabled", zap.Error(err))
		}
		return nil
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket, logger: logger}
}

// Archive 归档一份上传的原始文件，返回对象名
func (s *ObjectStore) Archive(ctx context.Context, filename, contentType string, reader io.Reader, size int64) (string, error) {
	if s == nil || s.client == nil {
		return "", nil
	}

	now := time.Now()
	objectName := fmt.Sprintf("uploads/%d/%02d/%s_%s", now.Year(), now.Month(), uuid.New().String()[:8], filename)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("archive upload: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Archived uploaded file",
			zap.String("object", objectName),
			zap.Int64("size", size),
		)
	}
	return objectName, nil
}
