package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"resume-engine/internal/config"
	"resume-engine/internal/logger"
	"resume-engine/internal/resilience"
	"resume-engine/internal/storage"
	"resume-engine/internal/types"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeddingServer 每条输入返回 [len(text), index]，顺序倒置以检验按 index 还原
func embeddingServer(t *testing.T, calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req OpenAIEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var inputs []string
		switch v := req.Input.(type) {
		case string:
			inputs = []string{v}
		case []interface{}:
			for _, s := range v {
				inputs = append(inputs, s.(string))
			}
		}

		resp := OpenAIEmbeddingResponse{Object: "list", Model: req.Model}
		for i := len(inputs) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, OpenAIDataEntry{
				Object:    "embedding",
				Index:     i,
				Embedding: []float64{float64(len(inputs[i])), float64(i)},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestEmbedder(t *testing.T, url string, opts ...HTTPOption) *HTTPEmbedder {
	opts = append([]HTTPOption{WithLogger(logger.Nop())}, opts...)
	e, err := NewHTTPEmbedder("test-key", config.EmbeddingConfig{Model: "test-model", Dimensions: 2, BaseURL: url, Timeout: "2s"}, opts...)
	require.NoError(t, err)
	return e
}

func TestHTTPEmbedderPreservesOrder(t *testing.T) {
	var calls int32
	srv := embeddingServer(t, &calls)
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL)
	vectors, err := e.EmbedStrings(context.Background(), []string{"a", "bbb", "cc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {3, 1}, {2, 2}}, vectors)

	single, err := e.EmbedStrings(context.Background(), []string{"hello"}, einoembedding.WithModel("other"))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{5, 0}}, single)

	empty, err := e.EmbedStrings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPEmbedderRequiresKey(t *testing.T) {
	_, err := NewHTTPEmbedder("", config.EmbeddingConfig{})
	require.Error(t, err)
}

func TestHTTPEmbedderServerErrorIsServiceUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","code":"busy"}}`))
	}))
	defer srv.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	e := newTestEmbedder(t, srv.URL, WithExecutor(exec))

	_, err := e.EmbedStrings(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrServiceUnavailable))
	assert.Contains(t, err.Error(), "overloaded")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "503 应当重试")
}

func TestHTTPEmbedderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	e, err := NewHTTPEmbedder("test-key", config.EmbeddingConfig{BaseURL: srv.URL, Timeout: "50ms"}, WithLogger(logger.Nop()))
	require.NoError(t, err)

	_, err = e.EmbedStrings(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrServiceUnavailable))
}

func TestHTTPEmbedderMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	_, err := newTestEmbedder(t, srv.URL).EmbedStrings(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrParseFailure))

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv2.Close()

	_, err = newTestEmbedder(t, srv2.URL).EmbedStrings(context.Background(), []string{"x"})
	assert.True(t, errors.Is(err, types.ErrParseFailure))
}

type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]float64
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]float64)}
}

func (m *memoryCache) GetVector(_ context.Context, key string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errors.New("connection refused")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, storage.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) SetVector(_ context.Context, key string, vector []float64, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = vector
	return nil
}

func TestCachedEmbedder(t *testing.T) {
	var calls int32
	srv := embeddingServer(t, &calls)
	defer srv.Close()

	cache := newMemoryCache()
	c := NewCachedEmbedder(newTestEmbedder(t, srv.URL), cache, "test-model", time.Hour, nil)

	first, err := c.EmbedStrings(context.Background(), []string{"resume", "job"})
	require.NoError(t, err)
	assert.Len(t, cache.data, 2)

	second, err := c.EmbedStrings(context.Background(), []string{"resume", "job"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "第二次全部命中缓存")

	// 部分命中只请求未命中的文本
	mixed, err := c.EmbedStrings(context.Background(), []string{"job", "another job"})
	require.NoError(t, err)
	assert.Equal(t, first[1], mixed[0])
	assert.Equal(t, []float64{11, 0}, mixed[1])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCachedEmbedderCacheFailure(t *testing.T) {
	var calls int32
	srv := embeddingServer(t, &calls)
	defer srv.Close()

	cache := newMemoryCache()
	cache.failGet = true
	c := NewCachedEmbedder(newTestEmbedder(t, srv.URL), cache, "test-model", 0, nil)

	vectors, err := c.EmbedStrings(context.Background(), []string{"resume"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{6, 0}}, vectors)
}

func TestCacheKey(t *testing.T) {
	k1 := CacheKey("m1", "text")
	assert.Equal(t, k1, CacheKey("m1", "text"))
	assert.NotEqual(t, k1, CacheKey("m2", "text"))
	assert.NotEqual(t, k1, CacheKey("m1", "other"))
	assert.Contains(t, k1, "app:embedding:vector:m1:")
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float64{1, 2}, []float64{1, 2, 3}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{1, 1}))
}
