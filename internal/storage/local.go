package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resume-engine/internal/logger"
	"resume-engine/internal/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// localProbeExtensions 按顺序探测的扩展名
var localProbeExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".heic"}

// LocalStore 本地目录中的文档，文件名为 <uploadID><ext>
type LocalStore struct {
	dir    string
	logger zerolog.Logger
}

// NewLocalStore 创建本地存储，目录不存在时自动创建
func NewLocalStore(dir string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("本地存储目录不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录 %s 失败: %w", dir, err)
	}
	return &LocalStore{dir: dir, logger: logger.Component("local_store")}, nil
}

// Fetch 读取文档
func (s *LocalStore) Fetch(ctx context.Context, uploadID string) (*types.Document, error) {
	if err := validateUploadID(uploadID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, ext := range localProbeExtensions {
		path := filepath.Join(s.dir, uploadID+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("读取文档 %s 失败: %w", path, err)
		}

		mediaType, _ := types.ParseMediaType(ext)
		s.logger.Debug().Str("upload_id", uploadID).Str("path", path).Int("size", len(data)).Msg("读取本地文档")
		return &types.Document{
			ID:        uploadID,
			Name:      filepath.Base(path),
			MediaType: mediaType,
			Data:      data,
		}, nil
	}

	return nil, types.NewNotFoundError(uploadID, "本地目录中没有该文档")
}

// Put 保存文档
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	mediaType, ok := types.MediaTypeFromName(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", types.ErrUnsupportedMediaType, name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	uploadID := uuid.New().String()
	path := filepath.Join(s.dir, uploadID+mediaType.Extension())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入文档 %s 失败: %w", path, err)
	}
	s.logger.Info().Str("upload_id", uploadID).Str("name", name).Int("size", len(data)).Msg("文档已保存")
	return uploadID, nil
}

// validateUploadID 上传ID不能包含路径分隔符
func validateUploadID(uploadID string) error {
	if strings.TrimSpace(uploadID) == "" || strings.ContainsAny(uploadID, `/\`) || strings.Contains(uploadID, "..") {
		return types.NewNotFoundError(uploadID, "非法的上传ID")
	}
	return nil
}
