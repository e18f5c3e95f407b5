package quality

import (
	"context"
	"math"
	"sync"
	"time"

	"resume-engine/internal/logger"
	"resume-engine/internal/metrics"
	"resume-engine/internal/narrative"
	"resume-engine/internal/tracing"
	"resume-engine/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Settings 评分参数
type Settings struct {
	Weights      map[string]float64
	DefaultScore int
	Timeout      time.Duration
	Concurrency  int
}

// DefaultWeights 各维度默认权重
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		types.DimensionLayout:    0.2,
		types.DimensionStructure: 0.3,
		types.DimensionLanguage:  0.2,
		types.DimensionOutcome:   0.3,
	}
}

// DefaultSettings 默认参数
func DefaultSettings() Settings {
	return Settings{
		Weights:      DefaultWeights(),
		DefaultScore: 50,
		Timeout:      30 * time.Second,
		Concurrency:  1,
	}
}

// Scorer 按四个维度评估简历质量
type Scorer struct {
	narrative narrative.Client
	settings  Settings
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// Option 评分器选项
type Option func(*Scorer)

// WithNarrative 外部评分服务
func WithNarrative(c narrative.Client) Option {
	return func(s *Scorer) { s.narrative = c }
}

// WithSettings 覆盖参数，零值字段保留默认
func WithSettings(st Settings) Option {
	return func(s *Scorer) {
		if len(st.Weights) > 0 {
			s.settings.Weights = st.Weights
		}
		if st.DefaultScore > 0 {
			s.settings.DefaultScore = clampScore(st.DefaultScore)
		}
		if st.Timeout > 0 {
			s.settings.Timeout = st.Timeout
		}
		if st.Concurrency > 0 {
			s.settings.Concurrency = st.Concurrency
		}
	}
}

// WithMetrics 指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scorer) { s.metrics = m }
}

// WithLogger 日志
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scorer) { s.logger = l }
}

// NewScorer 创建评分器；narrative 为空时所有维度返回默认分
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		settings: DefaultSettings(),
		logger:   logger.Component("quality"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type dimensionResult struct {
	score    int
	feedback []string
}

// Evaluate 各维度独立评估，单个维度失败只影响该维度
func (s *Scorer) Evaluate(ctx context.Context, parsed *types.ParsedResume, layout *types.LayoutMetrics) *types.QualityReport {
	ctx, span := otel.Tracer("quality").Start(ctx, "Scorer.Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("layout_metrics", layout != nil),
		attribute.Bool("narrative", s.narrative != nil),
	)

	if parsed == nil {
		parsed = &types.ParsedResume{}
	}

	results := make([]dimensionResult, len(types.QualityDimensions))
	if s.settings.Concurrency <= 1 {
		for i, dim := range types.QualityDimensions {
			results[i] = s.evaluateDimension(ctx, dim, parsed, layout)
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, s.settings.Concurrency)
		for i, dim := range types.QualityDimensions {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, dim types.QualityDimension) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = s.evaluateDimension(ctx, dim, parsed, layout)
			}(i, dim)
		}
		wg.Wait()
	}

	report := &types.QualityReport{
		Scores:   make(map[string]int, len(results)+1),
		Feedback: make(map[string][]string, len(results)),
	}
	for i, dim := range types.QualityDimensions {
		report.Scores[dim] = results[i].score
		report.Feedback[dim] = results[i].feedback
	}
	report.Scores[types.DimensionOverall] = s.overall(report.Scores)

	span.SetAttributes(attribute.Int("overall", report.Scores[types.DimensionOverall]))
	s.logger.Info().
		Interface("scores", report.Scores).
		Msg("简历质量评估完成")
	return report
}

func (s *Scorer) evaluateDimension(ctx context.Context, dim types.QualityDimension, parsed *types.ParsedResume, layout *types.LayoutMetrics) dimensionResult {
	fallback := dimensionResult{score: s.settings.DefaultScore, feedback: []string{}}
	if s.narrative == nil {
		s.metrics.Fallback("quality", "narrative_disabled")
		return fallback
	}

	ctx, span := otel.Tracer("quality").Start(ctx, "Scorer.evaluateDimension")
	defer span.End()
	span.SetAttributes(attribute.String("dimension", dim))

	prompt, err := buildPrompt(dim, parsed, layout)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return fallback
	}
	span.SetAttributes(attribute.String("prompt", tracing.SafePrompt(prompt)))

	response, err := s.narrative.Complete(ctx, prompt, s.settings.Timeout)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeNarrative)
		tracing.RecordFallback(span, "quality", "dimension_unavailable")
		s.metrics.Fallback("quality", "dimension_unavailable")
		s.logger.Warn().Err(err).Str("dimension", dim).Msg("质量维度评估失败，使用默认分")
		return fallback
	}

	result := dimensionResult{
		score:    parseScore(response, s.settings.DefaultScore),
		feedback: parseFeedback(response),
	}
	if !scorePattern.MatchString(response) {
		s.metrics.Fallback("quality", "score_missing")
		s.logger.Debug().Str("dimension", dim).Str("response", tracing.TruncateString(response, 200)).Msg("响应中没有分数，使用默认分")
	}
	span.SetAttributes(
		attribute.Int("score", result.score),
		attribute.Int("feedback", len(result.feedback)),
	)
	return result
}

// overall 四个维度的加权平均，四舍五入；权重和为 0 时取算术平均
func (s *Scorer) overall(scores map[string]int) int {
	var sum, total float64
	for _, dim := range types.QualityDimensions {
		w := s.settings.Weights[dim]
		if w < 0 {
			w = 0
		}
		sum += w * float64(scores[dim])
		total += w
	}
	if total == 0 {
		for _, dim := range types.QualityDimensions {
			sum += float64(scores[dim])
		}
		total = float64(len(types.QualityDimensions))
	}
	return clampScore(int(math.Round(sum / total)))
}
