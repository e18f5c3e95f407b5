package ratelimit

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// 未配置时的默认 QPM
const defaultQPM = 30

// RateLimitedChatModel 给聊天模型加 QPM 限流的代理
type RateLimitedChatModel struct {
	original    model.BaseChatModel
	rateLimiter *TokenBucket
}

var _ model.BaseChatModel = (*RateLimitedChatModel)(nil)

// NewRateLimitedChatModel 容量取 QPM 的一半，允许一定突发
func NewRateLimitedChatModel(original model.BaseChatModel, qpm int) *RateLimitedChatModel {
	return &RateLimitedChatModel{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, qpm/2),
	}
}

// WithRetryPolicy 设置限流重试策略
func (rl *RateLimitedChatModel) WithRetryPolicy(waitTime time.Duration, maxRetries int) *RateLimitedChatModel {
	rl.rateLimiter.WithRetryPolicy(waitTime, maxRetries)
	return rl
}

// Limiter 底层令牌桶
func (rl *RateLimitedChatModel) Limiter() *TokenBucket {
	return rl.rateLimiter
}

// Generate 限流后调用原模型
func (rl *RateLimitedChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	var response *schema.Message
	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var genErr error
		response, genErr = rl.original.Generate(ctx, messages, options...)
		return genErr
	})
	return response, err
}

// Stream 限流后调用原模型
func (rl *RateLimitedChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	var stream *schema.StreamReader[*schema.Message]
	err := rl.rateLimiter.RetryWithBackoff(ctx, func() error {
		var streamErr error
		stream, streamErr = rl.original.Stream(ctx, messages, options...)
		return streamErr
	})
	return stream, err
}

// NewLLMWithRateLimit 按模型名查 QPM 表创建限流模型
// 表中命中时取其 90% 作为安全值，否则用 customQPM，仍为 0 时用默认值
func NewLLMWithRateLimit(original model.BaseChatModel, modelName string, cfg map[string]int, customQPM int, maxRetries int, retryWaitTime time.Duration) *RateLimitedChatModel {
	qpm := customQPM
	if cfg != nil && modelName != "" {
		if modelQPM, ok := cfg[modelName]; ok && modelQPM > 0 {
			qpm = int(float64(modelQPM) * 0.9)
		}
	}
	if qpm <= 0 {
		qpm = defaultQPM
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return NewRateLimitedChatModel(original, qpm).WithRetryPolicy(retryWaitTime, maxRetries)
}
