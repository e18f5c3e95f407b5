package types

import (
	"path/filepath"
	"strings"
)

// MediaType 文档的声明媒体类型
type MediaType string

const (
	MediaTypePDF  MediaType = "pdf"
	MediaTypeJPEG MediaType = "jpeg"
	MediaTypePNG  MediaType = "png"
	MediaTypeHEIC MediaType = "heic"
)

// IsImage 图片类型一律走光栅路径
func (m MediaType) IsImage() bool {
	return m == MediaTypeJPEG || m == MediaTypePNG || m == MediaTypeHEIC
}

// Extension 返回对应的文件扩展名
func (m MediaType) Extension() string {
	switch m {
	case MediaTypePDF:
		return ".pdf"
	case MediaTypeJPEG:
		return ".jpg"
	case MediaTypePNG:
		return ".png"
	case MediaTypeHEIC:
		return ".heic"
	default:
		return ""
	}
}

// ContentType 返回MIME类型
func (m MediaType) ContentType() string {
	switch m {
	case MediaTypePDF:
		return "application/pdf"
	case MediaTypeJPEG:
		return "image/jpeg"
	case MediaTypePNG:
		return "image/png"
	case MediaTypeHEIC:
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}

// ParseMediaType 从扩展名或MIME类型解析媒体类型
func ParseMediaType(s string) (MediaType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, ";"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	switch s {
	case "pdf", ".pdf", "application/pdf":
		return MediaTypePDF, true
	case "jpeg", "jpg", ".jpeg", ".jpg", "image/jpeg", "image/jpg":
		return MediaTypeJPEG, true
	case "png", ".png", "image/png":
		return MediaTypePNG, true
	case "heic", "heif", ".heic", ".heif", "image/heic", "image/heif":
		return MediaTypeHEIC, true
	}
	return "", false
}

// MediaTypeFromName 根据文件名推断媒体类型
func MediaTypeFromName(name string) (MediaType, bool) {
	return ParseMediaType(filepath.Ext(name))
}

// Document 上传的原始文档，存储后不可变
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	MediaType MediaType `json:"media_type"`
	Data      []byte    `json:"-"`
}

// BBox 页面坐标系下的包围盒，y 轴向下
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// TextBlock 带位置的文本块
// 矢量路径的 Confidence 恒为 1.0，坐标单位为 point；光栅路径单位为像素
type TextBlock struct {
	Text       string  `json:"text"`
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"source_page"`
	FontSize   float64 `json:"font_size,omitempty"`
}

// PageGeometry 页面尺寸
type PageGeometry struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DocumentKind 分类结果
type DocumentKind string

const (
	DocumentKindVector  DocumentKind = "vector"
	DocumentKindScanned DocumentKind = "scanned"
	DocumentKindImage   DocumentKind = "image"
)
