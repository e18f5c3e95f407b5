package processor

import (
	"context"

	"resume-engine/internal/layout"
	"resume-engine/internal/match"
	"resume-engine/internal/parser"
	"resume-engine/internal/quality"
	"resume-engine/internal/section"
	"resume-engine/internal/skills"
	"resume-engine/internal/storage"
	"resume-engine/internal/types"
)

//
// 文档读取与文本提取
//

// DocumentStore 上传文档来源
type DocumentStore = storage.DocumentStore

// TextExtractor 文本提取层
type TextExtractor interface {
	// Extract 返回非空文本，或 ErrDocumentUnreadable / ErrExtractionFailed
	Extract(ctx context.Context, doc *types.Document) (*parser.Extraction, error)
}

//
// 分析组件
//

// LayoutAnalyzer 版面分析
type LayoutAnalyzer interface {
	Analyze(ctx context.Context, ex *parser.Extraction) *types.LayoutMetrics
}

// ResumeSegmenter 章节切分
type ResumeSegmenter interface {
	Parse(text string, topN int) *types.ParsedResume
}

// SkillExtractor 技能提取
type SkillExtractor interface {
	ExtractTop(text string, topN int) []string
}

// QualityScorer 质量评估
type QualityScorer interface {
	Evaluate(ctx context.Context, parsed *types.ParsedResume, layout *types.LayoutMetrics) *types.QualityReport
}

// JobMatcher 岗位匹配
type JobMatcher interface {
	MatchJobs(ctx context.Context, parsed *types.ParsedResume, jobs []types.JobPosting) []types.MatchResult
}

// 确保实现了对应接口
var (
	_ TextExtractor   = (*parser.Extractor)(nil)
	_ LayoutAnalyzer  = (*layout.Analyzer)(nil)
	_ ResumeSegmenter = (*section.Segmenter)(nil)
	_ SkillExtractor  = (*skills.Extractor)(nil)
	_ QualityScorer   = (*quality.Scorer)(nil)
	_ JobMatcher      = (*match.Engine)(nil)
)
