package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 定义错误类型，便于分类和过滤
type ErrorType string

const (
	// ErrorTypeDocument 文档无法打开
	ErrorTypeDocument ErrorType = "document"
	// ErrorTypeExtraction 文本提取失败
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeOCR OCR 引擎错误
	ErrorTypeOCR ErrorType = "ocr"
	// ErrorTypeEmbedding 向量服务错误
	ErrorTypeEmbedding ErrorType = "embedding"
	// ErrorTypeNarrative 叙述生成服务错误
	ErrorTypeNarrative ErrorType = "narrative"
	// ErrorTypeCache 缓存错误
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeStorage 文档存储错误
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeValidation 验证错误
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTimeout 超时错误
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeInternal 内部错误
	ErrorTypeInternal ErrorType = "internal"
)

// RecordError 记录错误，添加统一的错误类型和详情
func RecordError(span trace.Span, err error, errorType ErrorType) {
	RecordErrorWithInfo(span, err, errorType)
}

// RecordErrorWithInfo 记录错误并添加额外信息
func RecordErrorWithInfo(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", TruncateString(err.Error(), DefaultMaxLength)),
	)
	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}

	span.SetStatus(codes.Error, err.Error())
}

// RecordFallback 记录一次降级，不把 span 标记为错误
func RecordFallback(span trace.Span, component string, reason string) {
	if span == nil {
		return
	}
	span.AddEvent("fallback", trace.WithAttributes(
		attribute.String("fallback.component", component),
		attribute.String("fallback.reason", reason),
	))
}
