package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"resume-engine/internal/config"
	"resume-engine/internal/logger"
	"resume-engine/internal/metrics"
	"resume-engine/internal/resilience"
	"resume-engine/internal/tracing"
	"resume-engine/internal/types"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultModel   = "text-embedding-v3"
	defaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	serviceName    = "embedding"
)

// Embedder 文本向量化接口，直接使用 eino 的定义
type Embedder = einoembedding.Embedder

// HTTPEmbedder 调用 OpenAI 兼容的 /embeddings 接口
type HTTPEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	executor   *resilience.Executor
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

var _ Embedder = (*HTTPEmbedder)(nil)

// HTTPOption HTTPEmbedder 选项
type HTTPOption func(*HTTPEmbedder)

// WithHTTPClient 自定义 HTTP 客户端
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *HTTPEmbedder) { e.httpClient = c }
}

// WithExecutor 重试与熔断
func WithExecutor(ex *resilience.Executor) HTTPOption {
	return func(e *HTTPEmbedder) { e.executor = ex }
}

// WithMetrics 指标
func WithMetrics(m *metrics.Metrics) HTTPOption {
	return func(e *HTTPEmbedder) { e.metrics = m }
}

// WithLogger 日志
func WithLogger(l zerolog.Logger) HTTPOption {
	return func(e *HTTPEmbedder) { e.logger = l }
}

// OpenAIEmbeddingRequest 请求体
type OpenAIEmbeddingRequest struct {
	Input          interface{} `json:"input"` // string 或 []string
	Model          string      `json:"model"`
	Dimensions     int         `json:"dimensions,omitempty"`
	EncodingFormat string      `json:"encoding_format,omitempty"`
}

// OpenAIEmbeddingResponse 响应体
type OpenAIEmbeddingResponse struct {
	Object string            `json:"object"`
	Data   []OpenAIDataEntry `json:"data"`
	Model  string            `json:"model"`
	Usage  OpenAIUsage       `json:"usage"`
	ID     string            `json:"id,omitempty"`
	Error  *OpenAIError      `json:"error,omitempty"`
}

// OpenAIDataEntry 单条向量
type OpenAIDataEntry struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

// OpenAIUsage token 用量
type OpenAIUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// OpenAIError 200 状态码下返回的业务错误
type OpenAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Code    string `json:"code"`
}

// NewHTTPEmbedder 创建向量化客户端
func NewHTTPEmbedder(apiKey string, cfg config.EmbeddingConfig, opts ...HTTPOption) (*HTTPEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	e := &HTTPEmbedder{
		apiKey:     apiKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		baseURL:    cfg.BaseURL,
		timeout:    config.GetDuration(cfg.Timeout, 15*time.Second),
		logger:     logger.Component("embedding"),
	}
	if e.model == "" {
		e.model = defaultModel
	}
	if e.baseURL == "" {
		e.baseURL = defaultBaseURL
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.httpClient == nil {
		e.httpClient = &http.Client{}
	}
	return e, nil
}

// Model 默认模型名，缓存键使用
func (e *HTTPEmbedder) Model() string {
	return e.model
}

// Dimensions 配置的向量维度
func (e *HTTPEmbedder) Dimensions() int {
	return e.dimensions
}

// EmbedStrings 实现 eino embedding.Embedder
// 超时、传输错误和非 2xx 状态返回 ErrServiceUnavailable，响应无法解析返回 ErrParseFailure
func (e *HTTPEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...einoembedding.Option) ([][]float64, error) {
	options := einoembedding.GetCommonOptions(&einoembedding.Options{}, opts...)
	model := e.model
	if options.Model != nil && *options.Model != "" {
		model = *options.Model
	}

	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	ctx, span := otel.Tracer("embedding").Start(ctx, "HTTPEmbedder.EmbedStrings")
	defer span.End()
	span.SetAttributes(
		attribute.String("model", model),
		attribute.Int("texts", len(texts)),
		attribute.String("first_text", tracing.SafeResumeContent(texts[0])),
	)

	var input interface{} = texts
	if len(texts) == 1 {
		input = texts[0]
	}
	payload, err := json.Marshal(OpenAIEmbeddingRequest{
		Input:          input,
		Model:          model,
		Dimensions:     e.dimensions,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	start := time.Now()
	var body []byte
	call := func(ctx context.Context) error {
		var callErr error
		body, callErr = e.post(ctx, payload)
		return callErr
	}
	if e.executor != nil {
		err = e.executor.Execute(ctx, "embedding", call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}

	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.OutcomeTimeout
		}
		e.metrics.ObserveCall(serviceName, time.Since(start), outcome)
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		e.logger.Warn().Err(err).Str("model", model).Int("texts", len(texts)).Msg("向量化调用失败")
		return nil, types.NewServiceError(serviceName, err.Error())
	}
	e.metrics.ObserveCall(serviceName, time.Since(start), metrics.OutcomeSuccess)

	vectors, err := decodeEmbeddings(body, len(texts))
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return nil, err
	}

	e.logger.Debug().
		Str("model", model).
		Int("texts", len(texts)).
		Int("dimensions", len(vectors[0])).
		Dur("elapsed", time.Since(start)).
		Msg("向量化完成")
	return vectors, nil
}

// post 单次请求，带独立超时
func (e *HTTPEmbedder) post(ctx context.Context, payload []byte) ([]byte, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		detail := string(body)
		var wrapped OpenAIEmbeddingResponse
		if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
			detail = fmt.Sprintf("%s: %s", wrapped.Error.Code, wrapped.Error.Message)
		}
		return nil, &resilience.HTTPStatusError{Service: serviceName, StatusCode: resp.StatusCode, Body: tracing.TruncateString(detail, 300)}
	}
	return body, nil
}

// decodeEmbeddings 按 index 还原输入顺序
func decodeEmbeddings(body []byte, want int) ([][]float64, error) {
	var parsed OpenAIEmbeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, types.NewParseError(serviceName, fmt.Sprintf("解析响应JSON失败: %v", err))
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, types.NewServiceError(serviceName, fmt.Sprintf("API返回错误: 类型=%s, 消息=%s, Code=%s", parsed.Error.Type, parsed.Error.Message, parsed.Error.Code))
	}
	if len(parsed.Data) != want {
		return nil, types.NewParseError(serviceName, fmt.Sprintf("返回向量数量 %d 与输入 %d 不一致", len(parsed.Data), want))
	}

	sort.SliceStable(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })
	out := make([][]float64, len(parsed.Data))
	for i, entry := range parsed.Data {
		if len(entry.Embedding) == 0 {
			return nil, types.NewParseError(serviceName, fmt.Sprintf("第 %d 条向量为空", i))
		}
		out[i] = entry.Embedding
	}
	return out, nil
}
