package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resume-engine/internal/logger"

	"github.com/rs/zerolog"
)

// TikaPDFExtractor 通过 Apache Tika 服务器提取PDF连续文本
type TikaPDFExtractor struct {
	serverURL   string
	client      *http.Client
	annotations bool
	logger      zerolog.Logger
}

// TikaOption 定义配置选项函数
type TikaOption func(*TikaPDFExtractor)

// WithAnnotations 配置是否提取PDF链接注释文本
func WithAnnotations(extract bool) TikaOption {
	return func(e *TikaPDFExtractor) {
		e.annotations = extract
	}
}

// WithTikaLogger 配置日志
func WithTikaLogger(l zerolog.Logger) TikaOption {
	return func(e *TikaPDFExtractor) {
		e.logger = l
	}
}

// WithTimeout 配置HTTP客户端超时时间
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaPDFExtractor) {
		if timeout > 0 {
			e.client.Timeout = timeout
		}
	}
}

// WithHTTPClient 替换HTTP客户端
func WithHTTPClient(c *http.Client) TikaOption {
	return func(e *TikaPDFExtractor) {
		if c != nil {
			e.client = c
		}
	}
}

var _ FlatTextExtractor = (*TikaPDFExtractor)(nil)

// NewTikaPDFExtractor 创建一个新的Tika PDF解析器
func NewTikaPDFExtractor(serverURL string, options ...TikaOption) (*TikaPDFExtractor, error) {
	if strings.TrimSpace(serverURL) == "" {
		return nil, fmt.Errorf("tika 服务器地址不能为空")
	}
	extractor := &TikaPDFExtractor{
		serverURL:   strings.TrimRight(serverURL, "/"),
		client:      &http.Client{Timeout: 60 * time.Second},
		annotations: true,
		logger:      logger.Component("tika_pdf"),
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor, nil
}

// ExtractText PUT /tika，以纯文本返回
func (e *TikaPDFExtractor) ExtractText(ctx context.Context, data []byte, uri string) (string, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.serverURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Accept", "text/plain")
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}
	if !e.annotations {
		req.Header.Set("X-Tika-PDFExtractAnnotationText", "false")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求到Tika服务器失败 (%s): %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("tika服务器返回错误状态码 %d (%s): %s", resp.StatusCode, uri, strings.TrimSpace(string(body)))
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}
	text := strings.TrimSpace(string(textBytes))

	e.logger.Debug().Str("uri", uri).Int("chars", len(text)).Dur("duration", time.Since(startTime)).Msg("PDF提取完成")
	return text, nil
}
