package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"resume-engine/internal/logger"
	"resume-engine/internal/metrics"
	"resume-engine/internal/tracing"
	"resume-engine/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Strategy 实际使用的提取路径
type Strategy string

const (
	StrategyVector Strategy = "vector"
	StrategyRaster Strategy = "raster"
)

// DefaultMinConfidence 低于该置信度的OCR结果丢弃
const DefaultMinConfidence = 0.2

// Extraction 文本提取结果
type Extraction struct {
	Kind       types.DocumentKind
	Confidence float64
	Pages      []types.PageGeometry
	Blocks     []types.TextBlock
	FlatText   string
	Strategy   Strategy
	// FellBack 矢量路径没有得到文本，改走了光栅路径
	FellBack bool
}

// Extractor 文本提取层：矢量PDF直接读取文本层，扫描件和图片走OCR
type Extractor struct {
	flat          FlatTextExtractor
	ocr           OCREngine
	rasterizer    *PDFRasterizer
	heic          *HEICConverter
	minConfidence float64
	ocrTimeout    time.Duration
	logger        zerolog.Logger
	metrics       *metrics.Metrics
}

// ExtractorOption 提取器选项
type ExtractorOption func(*Extractor)

// WithFlatTextExtractor 矢量路径的连续文本提取器
func WithFlatTextExtractor(f FlatTextExtractor) ExtractorOption {
	return func(e *Extractor) { e.flat = f }
}

// WithOCREngine 光栅识别引擎
func WithOCREngine(o OCREngine) ExtractorOption {
	return func(e *Extractor) { e.ocr = o }
}

// WithRasterizer PDF渲染器
func WithRasterizer(r *PDFRasterizer) ExtractorOption {
	return func(e *Extractor) { e.rasterizer = r }
}

// WithHEICConverter HEIC转换器
func WithHEICConverter(h *HEICConverter) ExtractorOption {
	return func(e *Extractor) { e.heic = h }
}

// WithMinConfidence OCR置信度下限
func WithMinConfidence(c float64) ExtractorOption {
	return func(e *Extractor) {
		if c >= 0 && c <= 1 {
			e.minConfidence = c
		}
	}
}

// WithOCRTimeout 单页OCR超时
func WithOCRTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) { e.ocrTimeout = d }
}

// WithExtractorLogger 日志
func WithExtractorLogger(l zerolog.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// WithExtractorMetrics 指标
func WithExtractorMetrics(m *metrics.Metrics) ExtractorOption {
	return func(e *Extractor) { e.metrics = m }
}

// NewExtractor 创建提取器
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		minConfidence: DefaultMinConfidence,
		ocrTimeout:    60 * time.Second,
		logger:        logger.Component("extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract 提取文档文本，保证返回非空文本或 ErrExtractionFailed
// 无法打开的PDF返回 ErrDocumentUnreadable
func (e *Extractor) Extract(ctx context.Context, doc *types.Document) (*Extraction, error) {
	if doc == nil {
		return nil, types.NewUnreadableError("", "文档为空")
	}

	ctx, span := otel.Tracer("parser").Start(ctx, "Extractor.Extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("upload_id", doc.ID),
		attribute.String("media_type", string(doc.MediaType)),
		attribute.Int("size_bytes", len(doc.Data)),
	)

	var result *Extraction
	var err error
	switch {
	case doc.MediaType == types.MediaTypePDF:
		result, err = e.extractPDF(ctx, doc)
	case doc.MediaType.IsImage():
		result, err = e.extractRaster(ctx, doc, ClassifyImage())
	default:
		err = types.NewUnreadableError(doc.ID, fmt.Sprintf("%v: %s", types.ErrUnsupportedMediaType, doc.MediaType))
	}
	if err != nil {
		errType := tracing.ErrorTypeExtraction
		if errors.Is(err, types.ErrDocumentUnreadable) {
			errType = tracing.ErrorTypeDocument
		}
		tracing.RecordError(span, err, errType)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("document_kind", string(result.Kind)),
		attribute.String("strategy", string(result.Strategy)),
		attribute.Bool("fell_back", result.FellBack),
		attribute.Int("blocks", len(result.Blocks)),
	)
	return result, nil
}

// OpenAndClassify 打开PDF并分类，图片直接返回 image
func (e *Extractor) OpenAndClassify(doc *types.Document) (*PDFDocument, Classification, error) {
	if doc.MediaType.IsImage() {
		return nil, ClassifyImage(), nil
	}
	pdfDoc, err := OpenPDF(doc.ID, doc.Data)
	if err != nil {
		return nil, Classification{}, err
	}
	return pdfDoc, ClassifyPDF(pdfDoc), nil
}

func (e *Extractor) extractPDF(ctx context.Context, doc *types.Document) (*Extraction, error) {
	pdfDoc, class, err := e.OpenAndClassify(doc)
	if err != nil {
		return nil, err
	}

	log := e.logger.With().Str("upload_id", doc.ID).Logger()
	log.Debug().
		Str("kind", string(class.Kind)).
		Int("text_pages", class.TextPages).
		Int("sampled_pages", class.SampledPages).
		Msg("文档分类完成")

	if class.Kind == types.DocumentKindScanned {
		return e.extractRaster(ctx, doc, class)
	}

	pages, blocks := pdfDoc.Pages()
	flat := ""
	if e.flat != nil {
		text, err := e.flat.ExtractText(ctx, doc.Data, doc.ID)
		if err != nil {
			log.Warn().Err(err).Msg("连续文本提取失败，使用文本块拼接")
			e.metrics.Fallback("extraction", "flat_text_error")
		}
		flat = text
	}
	if strings.TrimSpace(flat) == "" {
		flat = JoinBlocks(blocks)
	}

	if strings.TrimSpace(flat) == "" {
		log.Warn().Msg("矢量路径没有得到文本，改走OCR")
		e.metrics.Fallback("extraction", "vector_empty")
		result, err := e.extractRaster(ctx, doc, class)
		if err != nil {
			return nil, err
		}
		result.FellBack = true
		return result, nil
	}

	return &Extraction{
		Kind:       class.Kind,
		Confidence: class.Confidence,
		Pages:      pages,
		Blocks:     blocks,
		FlatText:   flat,
		Strategy:   StrategyVector,
	}, nil
}

func (e *Extractor) extractRaster(ctx context.Context, doc *types.Document, class Classification) (*Extraction, error) {
	if e.ocr == nil {
		return nil, types.NewExtractionError(doc.ID, "未配置OCR引擎")
	}

	workDir, err := os.MkdirTemp("", "resume-ocr-*")
	if err != nil {
		return nil, types.NewExtractionError(doc.ID, err.Error())
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	input := filepath.Join(workDir, "original"+doc.MediaType.Extension())
	if err := os.WriteFile(input, doc.Data, 0o600); err != nil {
		return nil, types.NewExtractionError(doc.ID, err.Error())
	}

	images, err := e.prepareImages(ctx, doc.MediaType, input, workDir)
	if err != nil {
		e.logger.Warn().Err(err).Str("upload_id", doc.ID).Msg("图片准备失败")
		return nil, types.NewExtractionError(doc.ID, err.Error())
	}

	var pages []types.PageGeometry
	var blocks []types.TextBlock
	var lastErr error
	for i, img := range images {
		pageNum := i + 1
		pageBlocks, geom, err := e.recognize(ctx, img)
		if err != nil {
			lastErr = err
			e.logger.Warn().Err(err).Str("upload_id", doc.ID).Int("page", pageNum).Msg("OCR失败")
			continue
		}
		geom.Number = pageNum
		pages = append(pages, geom)
		for _, b := range pageBlocks {
			if b.Confidence < e.minConfidence {
				continue
			}
			b.Page = pageNum
			blocks = append(blocks, b)
		}
	}

	flat := JoinBlocks(blocks)
	if strings.TrimSpace(flat) == "" {
		detail := "OCR没有识别出文本"
		if lastErr != nil {
			detail = fmt.Sprintf("%s: %v", detail, lastErr)
		}
		return nil, types.NewExtractionError(doc.ID, detail)
	}

	return &Extraction{
		Kind:       class.Kind,
		Confidence: class.Confidence,
		Pages:      pages,
		Blocks:     blocks,
		FlatText:   flat,
		Strategy:   StrategyRaster,
	}, nil
}

// prepareImages 按媒体类型得到待识别的图片列表
func (e *Extractor) prepareImages(ctx context.Context, mediaType types.MediaType, input, workDir string) ([]string, error) {
	switch mediaType {
	case types.MediaTypePDF:
		if e.rasterizer == nil {
			return nil, fmt.Errorf("未配置PDF渲染器")
		}
		return e.rasterizer.Render(ctx, input, workDir)
	case types.MediaTypeHEIC:
		if e.heic == nil {
			return nil, fmt.Errorf("未配置HEIC转换器")
		}
		out, err := e.heic.Convert(ctx, input, workDir)
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	default:
		return []string{input}, nil
	}
}

// recognize 带超时调用OCR，超时与命令失败视为服务不可用
func (e *Extractor) recognize(ctx context.Context, imagePath string) ([]types.TextBlock, types.PageGeometry, error) {
	if e.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.ocrTimeout)
		defer cancel()
	}

	start := time.Now()
	blocks, geom, err := e.ocr.Recognize(ctx, imagePath)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = metrics.OutcomeTimeout
		}
		err = types.NewServiceError("ocr", err.Error())
	}
	e.metrics.ObserveCall("ocr", time.Since(start), outcome)
	return blocks, geom, err
}

// JoinBlocks 按阅读顺序拼接文本块：页，自上而下，自左而右
func JoinBlocks(blocks []types.TextBlock) string {
	if len(blocks) == 0 {
		return ""
	}
	sorted := make([]types.TextBlock, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.BBox.Y1 != b.BBox.Y1 {
			return a.BBox.Y1 < b.BBox.Y1
		}
		return a.BBox.X1 < b.BBox.X1
	})

	parts := make([]string, 0, len(sorted))
	for _, b := range sorted {
		if text := strings.TrimSpace(b.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
