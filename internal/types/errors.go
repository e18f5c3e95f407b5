package types

import (
	"errors"
	"fmt"
)

// 基础错误类型
var (
	// ErrDocumentUnreadable 无法打开或解码文档，向调用方返回
	ErrDocumentUnreadable = errors.New("document unreadable")
	// ErrExtractionFailed 矢量与光栅两条路径都没有提取到文本，向调用方返回
	ErrExtractionFailed = errors.New("text extraction failed")
	// ErrServiceUnavailable 外部服务超时或传输错误，组件内部降级处理
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrParseFailure 外部服务返回的结构化内容无法解析，视为无数据
	ErrParseFailure = errors.New("malformed service response")
	// ErrDocumentNotFound 存储中找不到上传文档
	ErrDocumentNotFound = errors.New("document not found")
	// ErrUnsupportedMediaType 不支持的媒体类型
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)

// EngineError 带上下文的错误
type EngineError struct {
	UploadID string
	Op       string
	BaseErr  error
	Detail   string
}

func (e *EngineError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (op:%s, upload:%s): %s", e.BaseErr, e.Op, e.UploadID, e.Detail)
	}
	return fmt.Sprintf("%s (op:%s, upload:%s)", e.BaseErr, e.Op, e.UploadID)
}

func (e *EngineError) Unwrap() error {
	return e.BaseErr
}

// Is 支持 errors.Is 比较
func (e *EngineError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewUnreadableError(uploadID, detail string) error {
	return &EngineError{UploadID: uploadID, Op: "open", BaseErr: ErrDocumentUnreadable, Detail: detail}
}

func NewExtractionError(uploadID, detail string) error {
	return &EngineError{UploadID: uploadID, Op: "extract", BaseErr: ErrExtractionFailed, Detail: detail}
}

func NewServiceError(op, detail string) error {
	return &EngineError{Op: op, BaseErr: ErrServiceUnavailable, Detail: detail}
}

func NewParseError(op, detail string) error {
	return &EngineError{Op: op, BaseErr: ErrParseFailure, Detail: detail}
}

func NewNotFoundError(uploadID, detail string) error {
	return &EngineError{UploadID: uploadID, Op: "fetch", BaseErr: ErrDocumentNotFound, Detail: detail}
}
