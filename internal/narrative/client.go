package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-engine/internal/logger"
	"resume-engine/internal/metrics"
	"resume-engine/internal/resilience"
	"resume-engine/internal/tracing"
	"resume-engine/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const serviceName = "narrative"

const defaultSystemPrompt = "You are an experienced recruiter and resume reviewer. Follow the requested output format exactly."

// Client 外部文本生成服务
// 超时和传输错误返回 ErrServiceUnavailable，调用方负责降级
type Client interface {
	Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error)
}

// ChatClient 把 eino 聊天模型适配为 Client
type ChatClient struct {
	model        model.BaseChatModel
	systemPrompt string
	temperature  *float32
	maxTokens    int
	executor     *resilience.Executor
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

var _ Client = (*ChatClient)(nil)

// Option ChatClient 选项
type Option func(*ChatClient)

// WithSystemPrompt 覆盖默认系统提示词，空字符串表示不发送系统消息
func WithSystemPrompt(p string) Option {
	return func(c *ChatClient) { c.systemPrompt = p }
}

// WithTemperature 采样温度
func WithTemperature(t float64) Option {
	return func(c *ChatClient) {
		v := float32(t)
		c.temperature = &v
	}
}

// WithMaxTokens 最大输出 token 数
func WithMaxTokens(n int) Option {
	return func(c *ChatClient) { c.maxTokens = n }
}

// WithExecutor 重试与熔断
func WithExecutor(ex *resilience.Executor) Option {
	return func(c *ChatClient) { c.executor = ex }
}

// WithMetrics 指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ChatClient) { c.metrics = m }
}

// WithLogger 日志
func WithLogger(l zerolog.Logger) Option {
	return func(c *ChatClient) { c.logger = l }
}

// NewChatClient 创建 ChatClient
func NewChatClient(m model.BaseChatModel, opts ...Option) (*ChatClient, error) {
	if m == nil {
		return nil, fmt.Errorf("聊天模型不能为空")
	}
	c := &ChatClient{
		model:        m,
		systemPrompt: defaultSystemPrompt,
		logger:       logger.Component("narrative"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete 发送单轮对话，返回模型输出文本
func (c *ChatClient) Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	ctx, span := otel.Tracer("narrative").Start(ctx, "ChatClient.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("prompt", tracing.SafePrompt(prompt)),
		attribute.Int64("timeout_ms", timeout.Milliseconds()),
	)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	messages := make([]*schema.Message, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, schema.SystemMessage(c.systemPrompt))
	}
	messages = append(messages, schema.UserMessage(prompt))

	var opts []model.Option
	if c.temperature != nil {
		opts = append(opts, model.WithTemperature(*c.temperature))
	}
	if c.maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(c.maxTokens))
	}

	start := time.Now()
	var resp *schema.Message
	call := func(ctx context.Context) error {
		var genErr error
		resp, genErr = c.model.Generate(ctx, messages, opts...)
		return genErr
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, serviceName, call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}

	if err != nil {
		outcome := metrics.OutcomeError
		errType := tracing.ErrorTypeNarrative
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = metrics.OutcomeTimeout
			errType = tracing.ErrorTypeTimeout
		}
		c.metrics.ObserveCall(serviceName, time.Since(start), outcome)
		tracing.RecordError(span, err, errType)
		c.logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Str("outcome", outcome).Msg("文本生成调用失败")
		return "", types.NewServiceError(serviceName, err.Error())
	}
	c.metrics.ObserveCall(serviceName, time.Since(start), metrics.OutcomeSuccess)

	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		err := types.NewParseError(serviceName, "模型返回空内容")
		tracing.RecordError(span, err, tracing.ErrorTypeNarrative)
		return "", err
	}

	c.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("response_len", len(resp.Content)).
		Msg("文本生成完成")
	return resp.Content, nil
}
