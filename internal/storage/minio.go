package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"resume-engine/internal/config"
	"resume-engine/internal/constants"
	"resume-engine/internal/logger"
	"resume-engine/internal/types"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinIOStore 对象存储中的文档
// 对象路径: documents/{uploadID}/original{ext}
type MinIOStore struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinIOStore 创建MinIO客户端并确保存储桶存在
func NewMinIOStore(ctx context.Context, cfg *config.MinIOConfig) (*MinIOStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("MinIO存储桶名称不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	s := &MinIOStore{
		client: client,
		bucket: cfg.BucketName,
		logger: logger.Component("minio_store"),
	}
	if err := s.ensureBucketExists(ctx, cfg.Location); err != nil {
		return nil, err
	}

	s.logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("MinIO客户端初始化成功")
	return s, nil
}

// ensureBucketExists 确保存储桶存在
func (s *MinIOStore) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", s.bucket, err)
	}
	s.logger.Info().Str("bucket", s.bucket).Msg("存储桶已创建")
	return nil
}

// Fetch 读取文档
// 扩展名未知，先按前缀列出对象
func (s *MinIOStore) Fetch(ctx context.Context, uploadID string) (*types.Document, error) {
	if err := validateUploadID(uploadID); err != nil {
		return nil, err
	}

	objectName := ""
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    documentPrefix(uploadID),
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("列出对象失败: %w", info.Err)
		}
		if path.Base(strings.TrimSuffix(info.Key, path.Ext(info.Key))) == "original" {
			objectName = info.Key
			break
		}
	}
	if objectName == "" {
		return nil, types.NewNotFoundError(uploadID, "存储桶中没有该文档")
	}

	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", s.bucket, objectName, err)
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", s.bucket, objectName, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", s.bucket, objectName, err)
	}

	mediaType, ok := resolveMediaType(objectName, stat.ContentType)
	if !ok {
		return nil, types.NewUnreadableError(uploadID, fmt.Sprintf("无法识别的媒体类型: %s", stat.ContentType))
	}

	s.logger.Debug().Str("upload_id", uploadID).Str("object", objectName).Int64("size", stat.Size).Msg("读取对象存储文档")
	return &types.Document{
		ID:        uploadID,
		Name:      path.Base(objectName),
		MediaType: mediaType,
		Data:      data,
	}, nil
}

// Put 上传文档
func (s *MinIOStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	mediaType, ok := types.MediaTypeFromName(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", types.ErrUnsupportedMediaType, name)
	}

	uploadID := uuid.New().String()
	objectName := documentObjectName(uploadID, mediaType)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  mediaType.ContentType(),
		UserMetadata: map[string]string{"original-name": name},
	})
	if err != nil {
		return "", fmt.Errorf("上传文档到MinIO失败: %w", err)
	}
	s.logger.Info().Str("upload_id", uploadID).Str("object", objectName).Int("size", len(data)).Msg("文档已上传")
	return uploadID, nil
}

func documentPrefix(uploadID string) string {
	return constants.DocumentObjectPrefix + "/" + uploadID + "/"
}

func documentObjectName(uploadID string, mediaType types.MediaType) string {
	return documentPrefix(uploadID) + "original" + mediaType.Extension()
}

// resolveMediaType 优先用对象扩展名，其次用 Content-Type
func resolveMediaType(objectName, contentType string) (types.MediaType, bool) {
	if mt, ok := types.MediaTypeFromName(objectName); ok {
		return mt, true
	}
	return types.ParseMediaType(contentType)
}
