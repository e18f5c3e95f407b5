package narrative

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse MockChatModel 的单次响应
type MockResponse struct {
	Content string
	Error   error
	Delay   time.Duration // 模拟慢响应，期间尊重 ctx 取消
}

// MockChatModel 测试用的 model.BaseChatModel，按顺序返回预设响应
// 响应用完后重复最后一条
type MockChatModel struct {
	mu        sync.Mutex
	responses []MockResponse
	index     int

	received [][]*schema.Message
	options  []*model.Options
}

var _ model.BaseChatModel = (*MockChatModel)(nil)

// NewMockChatModel 创建返回固定内容的模型
func NewMockChatModel(content string, err error) *MockChatModel {
	return NewMockChatModelSequential(MockResponse{Content: content, Error: err})
}

// NewMockChatModelSequential 按顺序返回不同响应
func NewMockChatModelSequential(responses ...MockResponse) *MockChatModel {
	if len(responses) == 0 {
		responses = []MockResponse{{Error: errors.New("mock model has no responses configured")}}
	}
	return &MockChatModel{responses: responses}
}

// Generate 记录收到的消息并返回下一条预设响应
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	msgs := make([]*schema.Message, len(input))
	copy(msgs, input)
	m.received = append(m.received, msgs)
	m.options = append(m.options, model.GetCommonOptions(&model.Options{}, opts...))

	resp := m.responses[len(m.responses)-1]
	if m.index < len(m.responses) {
		resp = m.responses[m.index]
		m.index++
	}
	m.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(resp.Delay):
		}
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 不支持
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not implemented in MockChatModel")
}

// Calls 调用次数
func (m *MockChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

// ReceivedMessages 第 i 次调用收到的消息
func (m *MockChatModel) ReceivedMessages(i int) []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.received) {
		return nil
	}
	return m.received[i]
}

// ReceivedOptions 第 i 次调用的公共选项
func (m *MockChatModel) ReceivedOptions(i int) *model.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.options) {
		return nil
	}
	return m.options[i]
}
