package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"resume-engine/internal/logger"
	"resume-engine/internal/resilience"
	"resume-engine/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatClientComplete(t *testing.T) {
	m := NewMockChatModel("Score: 80\nFeedback:\n- ok", nil)
	c, err := NewChatClient(m, WithTemperature(0.2), WithMaxTokens(256), WithLogger(logger.Nop()))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "rate this resume", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Score: 80\nFeedback:\n- ok", out)

	msgs := m.ReceivedMessages(0)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "rate this resume", msgs[1].Content)

	opts := m.ReceivedOptions(0)
	require.NotNil(t, opts.Temperature)
	assert.InDelta(t, 0.2, *opts.Temperature, 1e-6)
	require.NotNil(t, opts.MaxTokens)
	assert.Equal(t, 256, *opts.MaxTokens)
}

func TestChatClientNoSystemPrompt(t *testing.T) {
	m := NewMockChatModel("hi", nil)
	c, err := NewChatClient(m, WithSystemPrompt(""), WithLogger(logger.Nop()))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "hello", 0)
	require.NoError(t, err)
	assert.Len(t, m.ReceivedMessages(0), 1)
}

func TestChatClientTimeoutIsServiceUnavailable(t *testing.T) {
	m := NewMockChatModelSequential(MockResponse{Content: "late", Delay: time.Second})
	c, err := NewChatClient(m, WithLogger(logger.Nop()))
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Complete(context.Background(), "prompt", 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrServiceUnavailable))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestChatClientErrors(t *testing.T) {
	c, err := NewChatClient(NewMockChatModel("", errors.New("connection reset")), WithLogger(logger.Nop()))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "p", time.Second)
	assert.True(t, errors.Is(err, types.ErrServiceUnavailable))

	c, err = NewChatClient(NewMockChatModel("   ", nil), WithLogger(logger.Nop()))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "p", time.Second)
	assert.True(t, errors.Is(err, types.ErrParseFailure))

	_, err = NewChatClient(nil)
	assert.Error(t, err)
}

func TestChatClientRetriesThroughExecutor(t *testing.T) {
	m := NewMockChatModelSequential(
		MockResponse{Error: &resilience.HTTPStatusError{Service: "qwen", StatusCode: 503}},
		MockResponse{Content: "recovered"},
	)
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	c, err := NewChatClient(m, WithExecutor(exec), WithLogger(logger.Nop()))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "p", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 2, m.Calls())
}

func TestQwenChatModelGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		// handler 跑在服务端 goroutine 里，只能用 assert，不匹配时返回错误状态
		var req ChatCompletionRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) ||
			!assert.Len(t, req.Messages, 2) ||
			!assert.NotNil(t, req.Temperature) {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		assert.Equal(t, "qwen-test", req.Model)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.InDelta(t, 0.1, *req.Temperature, 1e-6)

		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"{\"match_score\":0.7}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	q, err := NewQwenChatModel("key", "qwen-test", srv.URL, WithQwenLogger(logger.Nop()))
	require.NoError(t, err)

	messages := []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("hi")}
	msg, err := q.Generate(context.Background(), messages, model.WithTemperature(0.1))
	require.NoError(t, err)
	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, `{"match_score":0.7}`, msg.Content)
	assert.Equal(t, 15, msg.ResponseMeta.Usage.TotalTokens)

	stream, err := q.Stream(context.Background(), messages, model.WithTemperature(0.1))
	require.NoError(t, err)
	chunk, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, msg.Content, chunk.Content)
}

func TestQwenChatModelStatusError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	q, err := NewQwenChatModel("key", "", srv.URL, WithQwenLogger(logger.Nop()))
	require.NoError(t, err)

	_, err = q.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	var statusErr *resilience.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.True(t, resilience.ClassifyHTTPError(err).Retryable)

	_, err = NewQwenChatModel(" ", "", "")
	assert.Error(t, err)
}

func TestQwenChatModelEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	q, err := NewQwenChatModel("key", "", srv.URL, WithQwenLogger(logger.Nop()))
	require.NoError(t, err)
	_, err = q.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.Error(t, err)

	_, err = q.Generate(context.Background(), nil)
	assert.Error(t, err)
}
