package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"resume-engine/internal/narrative"
	"resume-engine/internal/resilience"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestTokenBucketAllowAndRefill(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	tb := NewTokenBucket(60, 2) // 每秒 1 个
	tb.now = clock.now
	tb.lastRefillTime = clock.t

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "容量耗尽")

	clock.t = clock.t.Add(time.Second)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	// 长时间空闲也不超过容量
	clock.t = clock.t.Add(time.Hour)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketWaitRespectsContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.NoError(t, tb.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryWithBackoffOnlyRetriesRateLimits(t *testing.T) {
	tb := NewTokenBucket(6000, 100).WithRetryPolicy(time.Millisecond, 2)

	calls := 0
	err := tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &resilience.HTTPStatusError{Service: "qwen", StatusCode: 429}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("bad request")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("服务器繁忙")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls, "重试次数用尽后返回最后一次错误")
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(&resilience.HTTPStatusError{StatusCode: 429}))
	assert.False(t, IsRateLimited(&resilience.HTTPStatusError{StatusCode: 500}))
	assert.True(t, IsRateLimited(errors.New("rate limit exceeded")))
	assert.False(t, IsRateLimited(errors.New("connection refused")))
	assert.False(t, IsRateLimited(nil))
}

func TestRateLimitedChatModel(t *testing.T) {
	inner := narrative.NewMockChatModelSequential(
		narrative.MockResponse{Error: &resilience.HTTPStatusError{Service: "qwen", StatusCode: 429}},
		narrative.MockResponse{Content: "ok"},
	)
	rl := NewLLMWithRateLimit(inner, "qwen-turbo", map[string]int{"qwen-turbo": 1200}, 0, 2, time.Millisecond)

	msg, err := rl.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Equal(t, 2, inner.Calls())
	assert.InDelta(t, 1080.0/60.0, rl.Limiter().rate, 1e-9)
}

func TestNewLLMWithRateLimitDefaults(t *testing.T) {
	rl := NewLLMWithRateLimit(narrative.NewMockChatModel("x", nil), "unknown", nil, 0, 0, 0)
	assert.InDelta(t, float64(defaultQPM)/60.0, rl.Limiter().rate, 1e-9)
	assert.Equal(t, 3, rl.Limiter().maxRetries)
	assert.Equal(t, time.Second, rl.Limiter().retryWaitTime)
}
