package processor // 简历分析引擎的对外入口

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-engine/internal/constants"
	"resume-engine/internal/layout"
	"resume-engine/internal/logger"
	"resume-engine/internal/match"
	"resume-engine/internal/metrics"
	"resume-engine/internal/parser"
	"resume-engine/internal/quality"
	"resume-engine/internal/section"
	"resume-engine/internal/skills"
	"resume-engine/internal/tracing"
	"resume-engine/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Components 聚合所有功能组件依赖，便于集中管理和测试替换
type Components struct {
	Store     DocumentStore   // 上传文档存储
	Extractor TextExtractor   // 文本提取层
	Layout    LayoutAnalyzer  // 版面分析
	Segmenter ResumeSegmenter // 章节切分
	Skills    SkillExtractor  // 技能提取
	Quality   QualityScorer   // 质量评估
	Matcher   JobMatcher      // 岗位匹配

	closers []func() error
}

// Settings 纯配置项，不包含任何业务逻辑组件
type Settings struct {
	SkillsTopN   int              // ExtractSkills 未指定数量时的默认值
	KeywordsTopN int              // 解析结果的关键词数量
	Logger       *zerolog.Logger  // 为空时使用 processor 组件日志
	Metrics      *metrics.Metrics // 可以为空
}

// Engine 简历分析引擎
// 所有组件在创建后只读，可以被多个请求并发使用
type Engine struct {
	store     DocumentStore
	extractor TextExtractor
	layout    LayoutAnalyzer
	segmenter ResumeSegmenter
	skills    SkillExtractor
	quality   QualityScorer
	matcher   JobMatcher

	settings Settings
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	closers  []func() error
}

// NewEngine 用组件和设置创建引擎，缺省的组件使用默认实现
func NewEngine(comp *Components, set *Settings) *Engine {
	if comp == nil {
		comp = &Components{}
	}
	if set == nil {
		set = &Settings{}
	}

	log := logger.Component("processor")
	if set.Logger != nil {
		log = *set.Logger
	}
	if set.SkillsTopN <= 0 {
		set.SkillsTopN = constants.DefaultSkillsTopN
	}
	if set.KeywordsTopN <= 0 {
		set.KeywordsTopN = constants.DefaultKeywordsTopN
	}

	e := &Engine{
		store:     comp.Store,
		extractor: comp.Extractor,
		layout:    comp.Layout,
		segmenter: comp.Segmenter,
		skills:    comp.Skills,
		quality:   comp.Quality,
		matcher:   comp.Matcher,
		settings:  *set,
		logger:    log,
		metrics:   set.Metrics,
		closers:   comp.closers,
	}

	if e.extractor == nil {
		e.extractor = parser.NewExtractor(parser.WithExtractorMetrics(set.Metrics))
	}
	if e.layout == nil {
		e.layout = layout.NewAnalyzer(layout.WithMetrics(set.Metrics))
	}
	if e.segmenter == nil {
		e.segmenter = section.Default()
	}
	if e.skills == nil {
		e.skills = skills.Default()
	}
	if e.quality == nil {
		e.quality = quality.NewScorer(quality.WithMetrics(set.Metrics))
	}
	if e.matcher == nil {
		e.matcher = match.NewEngine(match.WithMetrics(set.Metrics))
	}

	if e.store == nil {
		e.logger.Warn().Msg("未配置文档存储，只能处理直接传入的文档")
	}
	return e
}

// CreateEngine 使用选项创建引擎
func CreateEngine(compOpts []ComponentOpt, setOpts []SettingOpt) *Engine {
	comp := &Components{}
	for _, opt := range compOpts {
		opt(comp)
	}
	set := &Settings{}
	for _, opt := range setOpts {
		opt(set)
	}
	return NewEngine(comp, set)
}

// Store 返回文档存储，未配置时为 nil
func (e *Engine) Store() DocumentStore {
	return e.store
}

// Metrics 返回引擎使用的指标，未启用时为 nil
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// Close 释放引擎持有的外部连接
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// fetch 从存储读取上传文档
func (e *Engine) fetch(ctx context.Context, uploadID string) (*types.Document, error) {
	if e.store == nil {
		return nil, fmt.Errorf("未配置文档存储，无法读取 %s", uploadID)
	}
	doc, err := e.store.Fetch(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// AnalyzeLayout 读取上传文档并分析版面
// 文档无法打开时返回 ErrDocumentUnreadable；提取失败时返回 confidence_tier=none 的结果
func (e *Engine) AnalyzeLayout(ctx context.Context, uploadID string) (*types.LayoutMetrics, error) {
	ctx, span := otel.Tracer("processor").Start(ctx, "Engine.AnalyzeLayout")
	defer span.End()
	span.SetAttributes(attribute.String("upload_id", uploadID))

	doc, err := e.fetch(ctx, uploadID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, err
	}
	return e.AnalyzeDocumentLayout(ctx, doc)
}

// AnalyzeDocumentLayout 分析已经读入内存的文档
func (e *Engine) AnalyzeDocumentLayout(ctx context.Context, doc *types.Document) (*types.LayoutMetrics, error) {
	ex, err := e.extractor.Extract(ctx, doc)
	if err != nil {
		if errors.Is(err, types.ErrExtractionFailed) {
			e.metrics.Fallback("layout", "extraction_failed")
			e.logger.Warn().Err(err).Str("upload_id", doc.ID).Msg("文本提取失败，返回降级的版面结果")
			return layout.Degraded(degradedPages(doc), degradedKind(doc)), nil
		}
		return nil, err
	}

	m := e.layout.Analyze(ctx, ex)
	e.logger.Info().
		Str("upload_id", doc.ID).
		Str("kind", string(m.DocumentKind)).
		Str("tier", string(m.ConfidenceTier)).
		Int("pages", m.PageCount).
		Msg("版面分析完成")
	return m, nil
}

// degradedPages 提取失败时尽量保留页数和页面尺寸
func degradedPages(doc *types.Document) []types.PageGeometry {
	if doc == nil || doc.MediaType != types.MediaTypePDF {
		return nil
	}
	pdfDoc, err := parser.OpenPDF(doc.ID, doc.Data)
	if err != nil {
		return nil
	}
	pages, _ := pdfDoc.Pages()
	return pages
}

func degradedKind(doc *types.Document) types.DocumentKind {
	if doc != nil && doc.MediaType.IsImage() {
		return types.DocumentKindImage
	}
	return ""
}

// Parse 读取上传文档，提取文本并切分章节
func (e *Engine) Parse(ctx context.Context, uploadID string) (*types.ParsedResume, error) {
	ctx, span := otel.Tracer("processor").Start(ctx, "Engine.Parse")
	defer span.End()
	span.SetAttributes(attribute.String("upload_id", uploadID))

	doc, err := e.fetch(ctx, uploadID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStorage)
		return nil, err
	}
	return e.ParseDocument(ctx, doc)
}

// ParseDocument 解析已经读入内存的文档
func (e *Engine) ParseDocument(ctx context.Context, doc *types.Document) (*types.ParsedResume, error) {
	ex, err := e.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	parsed := e.ParseText(ex.FlatText)
	e.logger.Info().
		Str("upload_id", doc.ID).
		Str("strategy", string(ex.Strategy)).
		Int("chars", len(parsed.FullText)).
		Bool("has_sections", parsed.HasSections()).
		Msg("简历解析完成")
	return parsed, nil
}

// ParseText 对纯文本切分章节
func (e *Engine) ParseText(text string) *types.ParsedResume {
	return e.segmenter.Parse(text, e.settings.KeywordsTopN)
}

// ExtractSkills 按首次出现顺序返回前 topN 个技能（技能块条目在前），topN<=0 时使用默认值
func (e *Engine) ExtractSkills(text string, topN int) []string {
	if topN <= 0 {
		topN = e.settings.SkillsTopN
	}
	out := e.skills.ExtractTop(text, topN)
	if out == nil {
		return []string{}
	}
	return out
}

// EvaluateQuality 四个维度的质量评分，外部服务失败时对应维度取默认分
func (e *Engine) EvaluateQuality(ctx context.Context, parsed *types.ParsedResume, layoutMetrics *types.LayoutMetrics) (*types.QualityReport, error) {
	if parsed == nil {
		return nil, fmt.Errorf("简历解析结果不能为空")
	}
	if strings.TrimSpace(parsed.FullText) == "" && !parsed.HasSections() {
		e.logger.Warn().Msg("简历内容为空，评分结果只有默认分")
	}
	return e.quality.Evaluate(ctx, parsed, layoutMetrics), nil
}

// MatchJobs 对每个岗位评分并按总分降序返回，没有岗位时返回空列表
func (e *Engine) MatchJobs(ctx context.Context, parsed *types.ParsedResume, jobs []types.JobPosting) ([]types.MatchResult, error) {
	if parsed == nil {
		return nil, fmt.Errorf("简历解析结果不能为空")
	}
	for i, job := range jobs {
		if strings.TrimSpace(job.ID) == "" {
			return nil, fmt.Errorf("第 %d 个岗位缺少 job_id", i+1)
		}
	}
	return e.matcher.MatchJobs(ctx, parsed, jobs), nil
}
