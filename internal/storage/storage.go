package storage

import (
	"context"
	"fmt"

	"resume-engine/internal/config"
	"resume-engine/internal/types"
)

// DocumentStore 上传文档的存储适配器
// 引擎只读取文档；Put 供 CLI 和测试导入文件使用
type DocumentStore interface {
	// Fetch 按上传ID读取文档，不存在时返回 types.ErrDocumentNotFound
	Fetch(ctx context.Context, uploadID string) (*types.Document, error)
	// Put 保存文档并返回新的上传ID，媒体类型由文件名推断
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// 确保实现了 DocumentStore 接口
var (
	_ DocumentStore = (*LocalStore)(nil)
	_ DocumentStore = (*MinIOStore)(nil)
)

// NewDocumentStore 按配置创建文档存储
func NewDocumentStore(ctx context.Context, cfg *config.Config) (DocumentStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	switch cfg.Store.Type {
	case "", "local":
		return NewLocalStore(cfg.Store.LocalDir)
	case "minio":
		return NewMinIOStore(ctx, &cfg.MinIO)
	default:
		return nil, fmt.Errorf("未知的文档存储类型: %s", cfg.Store.Type)
	}
}
