package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"resume-engine/internal/constants"
	"resume-engine/internal/logger"
	"resume-engine/internal/metrics"
	"resume-engine/internal/storage"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/rs/zerolog"
)

// VectorCache 向量缓存，未命中返回 storage.ErrCacheMiss
type VectorCache interface {
	GetVector(ctx context.Context, key string) ([]float64, error)
	SetVector(ctx context.Context, key string, vector []float64, ttl time.Duration) error
}

var _ VectorCache = (*storage.Redis)(nil)

// CachedEmbedder 给任意 Embedder 加一层向量缓存
// 缓存故障只记日志，不影响向量化结果
type CachedEmbedder struct {
	inner   Embedder
	cache   VectorCache
	model   string
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder 创建带缓存的 Embedder，model 参与缓存键
func NewCachedEmbedder(inner Embedder, cache VectorCache, model string, ttl time.Duration, m *metrics.Metrics) *CachedEmbedder {
	if ttl <= 0 {
		ttl = constants.DefaultEmbeddingCacheTTL
	}
	return &CachedEmbedder{
		inner:   inner,
		cache:   cache,
		model:   model,
		ttl:     ttl,
		metrics: m,
		logger:  logger.Component("embedding_cache"),
	}
}

// EmbedStrings 先查缓存，只对未命中的文本调用下游
func (c *CachedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...einoembedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	out := make([][]float64, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		keys[i] = CacheKey(c.model, text)
		vec, err := c.cache.GetVector(ctx, keys[i])
		if err == nil && len(vec) > 0 {
			out[i] = vec
			continue
		}
		if err != nil && !errors.Is(err, storage.ErrCacheMiss) {
			c.logger.Warn().Err(err).Msg("读取向量缓存失败")
			c.metrics.Fallback("embedding_cache", "get_error")
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		c.logger.Debug().Int("texts", len(texts)).Msg("向量全部命中缓存")
		return out, nil
	}

	vectors, err := c.inner.EmbedStrings(ctx, missTexts, opts...)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		if j >= len(vectors) {
			break
		}
		out[i] = vectors[j]
		if err := c.cache.SetVector(ctx, keys[i], vectors[j], c.ttl); err != nil {
			c.logger.Warn().Err(err).Msg("写入向量缓存失败")
			c.metrics.Fallback("embedding_cache", "set_error")
		}
	}

	c.logger.Debug().
		Int("texts", len(texts)).
		Int("cache_hits", len(texts)-len(missTexts)).
		Msg("向量化完成")
	return out, nil
}

// CacheKey 模型名加文本 sha256
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return constants.EmbeddingVectorKey(model, hex.EncodeToString(sum[:]))
}
