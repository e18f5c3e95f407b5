package match

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"resume-engine/internal/embedding"
	"resume-engine/internal/logger"
	"resume-engine/internal/metrics"
	"resume-engine/internal/narrative"
	"resume-engine/internal/skills"
	"resume-engine/internal/tracing"
	"resume-engine/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// 单次向量化请求的最大文本数
const embedBatchSize = 10

// Settings 评分权重与输出上限
type Settings struct {
	TransformerWeight float64
	ExternalWeight    float64
	MaxMatching       int
	MaxMissing        int
	MaxSuggestions    int
	ResumeCharLimit   int
	HolisticTimeout   time.Duration
	Concurrency       int
}

// DefaultSettings 默认设置
func DefaultSettings() Settings {
	return Settings{
		TransformerWeight: 0.4,
		ExternalWeight:    0.6,
		MaxMatching:       15,
		MaxMissing:        10,
		MaxSuggestions:    5,
		ResumeCharLimit:   3000,
		HolisticTimeout:   30 * time.Second,
		Concurrency:       1,
	}
}

// Engine 简历与岗位匹配
// embedder 和 narrative 都可以为空，分别退化为无向量分和无外部评估
type Engine struct {
	embedder  embedding.Embedder
	narrative narrative.Client
	skills    *skills.Extractor
	settings  Settings
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// Option 引擎选项
type Option func(*Engine)

// WithEmbedder 向量模型
func WithEmbedder(e embedding.Embedder) Option {
	return func(m *Engine) { m.embedder = e }
}

// WithNarrative 整体评估服务
func WithNarrative(c narrative.Client) Option {
	return func(m *Engine) { m.narrative = c }
}

// WithSkillExtractor 技能提取器
func WithSkillExtractor(x *skills.Extractor) Option {
	return func(m *Engine) { m.skills = x }
}

// WithSettings 覆盖设置，零值字段保留默认
func WithSettings(s Settings) Option {
	return func(m *Engine) { m.settings = mergeSettings(m.settings, s) }
}

// WithMetrics 指标
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Engine) { m.metrics = mt }
}

// WithLogger 日志
func WithLogger(l zerolog.Logger) Option {
	return func(m *Engine) { m.logger = l }
}

// NewEngine 创建匹配引擎
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		skills:   skills.Default(),
		settings: DefaultSettings(),
		logger:   logger.Component("match"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.skills == nil {
		e.skills = skills.Default()
	}
	return e
}

func mergeSettings(base, s Settings) Settings {
	if s.TransformerWeight > 0 {
		base.TransformerWeight = s.TransformerWeight
	}
	if s.ExternalWeight > 0 {
		base.ExternalWeight = s.ExternalWeight
	}
	if s.MaxMatching > 0 {
		base.MaxMatching = s.MaxMatching
	}
	if s.MaxMissing > 0 {
		base.MaxMissing = s.MaxMissing
	}
	if s.MaxSuggestions > 0 {
		base.MaxSuggestions = s.MaxSuggestions
	}
	if s.ResumeCharLimit > 0 {
		base.ResumeCharLimit = s.ResumeCharLimit
	}
	if s.HolisticTimeout > 0 {
		base.HolisticTimeout = s.HolisticTimeout
	}
	if s.Concurrency > 0 {
		base.Concurrency = s.Concurrency
	}
	return base
}

// resumeContext 一次 MatchJobs 调用中所有岗位共享的简历数据
type resumeContext struct {
	parsed        *types.ParsedResume
	text          string
	prioritized   string
	skills        *types.SkillSet
	hasExperience bool
}

// MatchJobs 对每个岗位评分，按总分降序、job_id 升序返回
// 外部服务的失败都在内部降级，不会返回错误
func (e *Engine) MatchJobs(ctx context.Context, parsed *types.ParsedResume, jobs []types.JobPosting) []types.MatchResult {
	ctx, span := otel.Tracer("match").Start(ctx, "Engine.MatchJobs")
	defer span.End()
	span.SetAttributes(
		attribute.Int("jobs", len(jobs)),
		attribute.Bool("embedder", e.embedder != nil),
		attribute.Bool("narrative", e.narrative != nil),
	)

	if len(jobs) == 0 {
		return []types.MatchResult{}
	}
	if parsed == nil {
		parsed = &types.ParsedResume{}
	}

	rc := &resumeContext{parsed: parsed, prioritized: PrioritizedText(parsed)}
	rc.text = parsed.FullText
	if strings.TrimSpace(rc.text) == "" {
		rc.text = rc.prioritized
	}
	rc.skills = e.skills.Extract(rc.text)
	rc.hasExperience = strings.TrimSpace(parsed.Section(types.SectionExperience)) != ""

	resumeVec, jobVecs := e.embedAll(ctx, rc.prioritized, jobs)

	results := make([]types.MatchResult, len(jobs))
	workers := e.settings.Concurrency
	if workers <= 1 {
		for i := range jobs {
			results[i] = e.matchOne(ctx, rc, jobs[i], resumeVec, jobVecs[i])
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, workers)
		for i := range jobs {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = e.matchOne(ctx, rc, jobs[i], resumeVec, jobVecs[i])
			}(i)
		}
		wg.Wait()
	}

	rankResults(results)
	e.logger.Info().
		Int("jobs", len(jobs)).
		Int("resume_skills", rc.skills.Len()).
		Bool("embedder", resumeVec != nil).
		Int("top_score", results[0].OverallScore).
		Msg("岗位匹配完成")
	return results
}

// rankResults 总分降序，稳定排序，同分按 job_id 升序
func rankResults(results []types.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].OverallScore != results[j].OverallScore {
			return results[i].OverallScore > results[j].OverallScore
		}
		return results[i].JobID < results[j].JobID
	})
}

func (e *Engine) matchOne(ctx context.Context, rc *resumeContext, job types.JobPosting, resumeVec, jobVec []float64) types.MatchResult {
	jobText := job.Description
	if r := strings.TrimSpace(job.Requirements); r != "" {
		jobText += "\n\nRequirements:\n" + r
	}
	requirements := requirementsText(job)

	// 1. 向量相似度
	embedderAvailable := resumeVec != nil && jobVec != nil
	transformer := 0.0
	if embedderAvailable {
		transformer = embedding.Cosine(resumeVec, jobVec)
	}

	// 2. 技能比较
	cmp := compareSkills(rc.skills, e.skills.Extract(jobText))
	skillPercent := 0
	if cmp.total > 0 {
		skillPercent = int(math.Round(100 * float64(len(cmp.matched)) / float64(cmp.total)))
	}

	// 3. 外部整体评估
	assessment := e.holistic(ctx, job, requirements, rc.text)

	// 4. 加权
	var external *float64
	if assessment != nil {
		external = assessment.MatchScore
	}
	overall := e.blend(transformer, external, embedderAvailable)

	// 5. 缺失技能与建议
	var externalMissing, externalSuggestions []string
	if assessment != nil {
		externalMissing = assessment.MissingSkills
		externalSuggestions = assessment.ImprovementSuggestions
	}
	missing := mergeSkills(e.settings.MaxMissing, externalMissing, cmp.missing)

	suggestions := capList(externalSuggestions, e.settings.MaxSuggestions)
	if len(suggestions) == 0 {
		suggestions = ruleSuggestions(suggestionInput{
			jobTitle:      job.Title,
			missing:       missing,
			skillPercent:  skillPercent,
			hasExperience: rc.hasExperience,
			requirements:  requirements,
			resumeText:    rc.text,
		}, e.settings.MaxSuggestions)
	}

	return types.MatchResult{
		JobID:                  job.ID,
		JobTitle:               job.Title,
		OverallScore:           int(math.Round(clamp01(overall) * 100)),
		SkillMatchPercentage:   skillPercent,
		MatchingSkills:         capList(cmp.matched, e.settings.MaxMatching),
		MissingSkills:          missing,
		ImprovementSuggestions: suggestions,
		JobSummary:             jobSummary(job.Description),
		TransformerScore:       transformer,
		ExternalScore:          external,
	}
}

// blend 外部分与向量分加权；缺少任一方时只用另一方
func (e *Engine) blend(transformer float64, external *float64, embedderAvailable bool) float64 {
	switch {
	case external != nil && embedderAvailable:
		return e.settings.TransformerWeight*transformer + e.settings.ExternalWeight*(*external)
	case external != nil:
		return *external
	default:
		return transformer
	}
}

// holistic 调用外部服务，失败或无法解析时返回 nil
func (e *Engine) holistic(ctx context.Context, job types.JobPosting, requirements, resumeText string) *HolisticAssessment {
	if e.narrative == nil {
		return nil
	}
	ctx, span := otel.Tracer("match").Start(ctx, "Engine.holistic")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", job.ID))

	prompt := buildHolisticPrompt(job, requirements, resumeText, e.settings.ResumeCharLimit)
	content, err := e.narrative.Complete(ctx, prompt, e.settings.HolisticTimeout)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeNarrative)
		tracing.RecordFallback(span, "match", "holistic_unavailable")
		e.metrics.Fallback("match", "holistic_unavailable")
		e.logger.Warn().Err(err).Str("job_id", job.ID).Msg("整体评估不可用，仅使用本地评分")
		return nil
	}

	assessment, err := parseHolisticResponse(content)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		tracing.RecordFallback(span, "match", "holistic_parse")
		e.metrics.Fallback("match", "holistic_parse")
		e.logger.Warn().Err(err).Str("job_id", job.ID).Str("response", tracing.TruncateString(content, 200)).Msg("整体评估响应无法解析")
		return nil
	}
	return assessment
}

// embedAll 简历向量只计算一次；岗位描述分批向量化
// 简历向量失败时全部岗位视为无向量模型，单批失败只影响该批岗位
func (e *Engine) embedAll(ctx context.Context, resumeText string, jobs []types.JobPosting) ([]float64, [][]float64) {
	jobVecs := make([][]float64, len(jobs))
	if e.embedder == nil || strings.TrimSpace(resumeText) == "" {
		return nil, jobVecs
	}

	ctx, span := otel.Tracer("match").Start(ctx, "Engine.embedAll")
	defer span.End()

	vecs, err := e.embedder.EmbedStrings(ctx, []string{resumeText})
	if err != nil || len(vecs) != 1 || len(vecs[0]) == 0 {
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		}
		e.metrics.Fallback("match", "embedder_unavailable")
		e.logger.Warn().Err(err).Msg("简历向量化失败，跳过向量相似度")
		return nil, jobVecs
	}
	resumeVec := vecs[0]

	var idx []int
	var texts []string
	for i, job := range jobs {
		if strings.TrimSpace(job.Description) == "" {
			continue
		}
		idx = append(idx, i)
		texts = append(texts, job.Description)
	}

	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil || len(batch) != end-start {
			if err != nil {
				tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
			}
			e.metrics.Fallback("match", "job_embedding_failed")
			e.logger.Warn().Err(err).Int("batch_start", start).Msg("岗位描述向量化失败")
			continue
		}
		for k, vec := range batch {
			if len(vec) > 0 {
				jobVecs[idx[start+k]] = vec
			}
		}
	}
	return resumeVec, jobVecs
}

// PrioritizedText 按 profile、skills、experience 优先拼接章节，其他非空章节随后
// 没有任何章节时返回全文
func PrioritizedText(parsed *types.ParsedResume) string {
	if parsed == nil {
		return ""
	}
	priority := []types.SectionKey{types.SectionProfile, types.SectionSkills, types.SectionExperience}
	seen := make(map[string]bool, len(priority))

	var b strings.Builder
	write := func(key string) {
		seen[key] = true
		content := strings.TrimSpace(parsed.Section(key))
		if content == "" {
			return
		}
		b.WriteString(strings.ToUpper(key))
		b.WriteString(":\n")
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	for _, key := range priority {
		write(key)
	}
	for _, key := range types.AllSectionKeys {
		if !seen[key] {
			write(key)
		}
	}
	// 非规范键按字典序，保证输出稳定
	var extra []string
	for key := range parsed.Sections {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		write(key)
	}

	if b.Len() == 0 {
		return parsed.FullText
	}
	return b.String()
}
