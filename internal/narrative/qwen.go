package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"resume-engine/internal/logger"
	"resume-engine/internal/resilience"
	"resume-engine/internal/tracing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

const (
	// DashScope 的 OpenAI 兼容接口
	defaultQwenAPIURL    = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModelName = "qwen-turbo"
)

// QwenChatModel 通义千问 OpenAI 兼容 chat/completions 客户端，实现 model.BaseChatModel
type QwenChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ model.BaseChatModel = (*QwenChatModel)(nil)

// QwenOption QwenChatModel 选项
type QwenOption func(*QwenChatModel)

// WithQwenHTTPClient 自定义 HTTP 客户端
func WithQwenHTTPClient(c *http.Client) QwenOption {
	return func(q *QwenChatModel) { q.httpClient = c }
}

// WithQwenLogger 日志
func WithQwenLogger(l zerolog.Logger) QwenOption {
	return func(q *QwenChatModel) { q.logger = l }
}

// NewQwenChatModel 创建通义千问客户端，modelName 和 apiURL 为空时使用默认值
func NewQwenChatModel(apiKey, modelName, apiURL string, opts ...QwenOption) (*QwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultQwenModelName
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultQwenAPIURL
	}

	q := &QwenChatModel{
		apiKey:    apiKey,
		modelName: modelName,
		apiURL:    apiURL,
		logger:    logger.Component("qwen"),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.httpClient == nil {
		q.httpClient = &http.Client{}
	}

	q.logger.Info().Str("api_url", apiURL).Str("model", modelName).Msg("使用通义千问 LLM 客户端")
	return q, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest 请求体
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float32      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// ChatCompletionResponse 响应体
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Generate 实现 model.BaseChatModel
// 非 200 状态返回 *resilience.HTTPStatusError，交给执行器判断是否重试
func (q *QwenChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{}, opts...)

	req := ChatCompletionRequest{
		Model:       q.modelName,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		TopP:        options.TopP,
		Stop:        options.Stop,
	}
	if options.Model != nil && *options.Model != "" {
		req.Model = *options.Model
	}
	for _, m := range messages {
		if m == nil {
			continue
		}
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("消息列表为空")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, q.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+q.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	q.logger.Debug().Str("model", req.Model).Int("messages", len(req.Messages)).Msg("发送请求")

	httpResp, err := q.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &resilience.HTTPStatusError{
			Service:    "qwen",
			StatusCode: httpResp.StatusCode,
			Body:       tracing.TruncateString(string(body), 300),
		}
	}

	var parsed ChatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("API 返回错误: %s (%s)", parsed.Error.Message, parsed.Error.Code)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("API 返回空 choices")
	}

	choice := parsed.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}
	role := schema.RoleType(choice.Message.Role)
	if role == "" {
		role = schema.Assistant
	}

	q.logger.Debug().
		Str("finish_reason", choice.FinishReason).
		Int("total_tokens", parsed.Usage.TotalTokens).
		Msg("收到响应")

	return &schema.Message{
		Role:    role,
		Content: content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: choice.FinishReason,
			Usage: &schema.TokenUsage{
				PromptTokens:     parsed.Usage.PromptTokens,
				CompletionTokens: parsed.Usage.CompletionTokens,
				TotalTokens:      parsed.Usage.TotalTokens,
			},
		},
	}, nil
}

// Stream 以单个分片返回 Generate 的结果
func (q *QwenChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := q.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}
