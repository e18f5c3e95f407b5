package processor

import (
	"context"
	"fmt"
	"time"

	"resume-engine/internal/config"
	"resume-engine/internal/embedding"
	"resume-engine/internal/layout"
	"resume-engine/internal/logger"
	"resume-engine/internal/match"
	"resume-engine/internal/metrics"
	"resume-engine/internal/narrative"
	"resume-engine/internal/parser"
	"resume-engine/internal/quality"
	"resume-engine/internal/resilience"
	"resume-engine/internal/storage"
	"resume-engine/pkg/ratelimit"
)

// NewEngineFromConfig 从配置创建引擎，每个共享资源只创建一次
// 文档存储失败时返回错误；向量模型、缓存和叙述服务失败时降级为不使用
func NewEngineFromConfig(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	log := logger.Component("processor")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	// 1. 文档存储
	store, err := storage.NewDocumentStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("创建文档存储失败: %w", err)
	}

	comp := &Components{Store: store}
	set := &Settings{
		SkillsTopN: cfg.Match.DefaultSkillsTopN,
		Logger:     &log,
		Metrics:    m,
	}

	// 2. 文本提取与版面分析
	comp.Extractor = buildExtractor(ctx, cfg, m)
	comp.Layout = layout.NewAnalyzer(
		layout.WithThresholds(layout.ThresholdsFromConfig(cfg.Layout)),
		layout.WithMetrics(m),
	)

	// 3. 外部服务共用一个执行器，熔断状态按操作区分
	executor := resilience.NewExecutor(resilienceConfig(cfg.Resilience))

	narrativeClient := buildNarrative(cfg, executor, m)
	embedder, closer := buildEmbedder(cfg, executor, m)
	if closer != nil {
		comp.closers = append(comp.closers, closer)
	}

	// 4. 匹配与质量评估
	matchOpts := []match.Option{
		match.WithSettings(match.Settings{
			TransformerWeight: cfg.Match.TransformerWeight,
			ExternalWeight:    cfg.Match.ExternalWeight,
			MaxMatching:       cfg.Match.MaxMatchingSkills,
			MaxMissing:        cfg.Match.MaxMissingSkills,
			MaxSuggestions:    cfg.Match.MaxSuggestions,
			ResumeCharLimit:   cfg.Match.ResumeCharLimit,
			HolisticTimeout:   config.GetDuration(cfg.LLM.MatchTimeout, 30*time.Second),
			Concurrency:       cfg.Match.Concurrency,
		}),
		match.WithMetrics(m),
	}
	qualityOpts := []quality.Option{
		quality.WithSettings(quality.Settings{
			Weights:      cfg.Quality.Weights,
			DefaultScore: cfg.Quality.DefaultScore,
			Timeout:      config.GetDuration(cfg.LLM.QualityTimeout, 30*time.Second),
		}),
		quality.WithMetrics(m),
	}
	if embedder != nil {
		matchOpts = append(matchOpts, match.WithEmbedder(embedder))
	}
	if narrativeClient != nil {
		matchOpts = append(matchOpts, match.WithNarrative(narrativeClient))
		qualityOpts = append(qualityOpts, quality.WithNarrative(narrativeClient))
	}
	comp.Matcher = match.NewEngine(matchOpts...)
	comp.Quality = quality.NewScorer(qualityOpts...)

	log.Info().
		Str("store", cfg.Store.Type).
		Bool("embedder", embedder != nil).
		Bool("narrative", narrativeClient != nil).
		Bool("metrics", m != nil).
		Msg("引擎初始化完成")

	return NewEngine(comp, set), nil
}

// buildExtractor 矢量路径用 eino 或 Tika 提取连续文本，光栅路径用 pdftoppm + tesseract
func buildExtractor(ctx context.Context, cfg *config.Config, m *metrics.Metrics) *parser.Extractor {
	log := logger.Component("extractor")
	runner := parser.NewExecRunner(log)

	opts := []parser.ExtractorOption{
		parser.WithOCREngine(parser.NewTesseractOCR(parser.TesseractConfig{
			Binary:      cfg.OCR.Tesseract,
			Lang:        cfg.OCR.Lang,
			PSM:         cfg.OCR.PSM,
			OEM:         cfg.OCR.OEM,
			TessdataDir: cfg.OCR.TessdataDir,
		}, runner)),
		parser.WithRasterizer(parser.NewPDFRasterizer(cfg.OCR.Pdftoppm, cfg.OCR.DPI, cfg.OCR.MaxPages, runner)),
		parser.WithHEICConverter(parser.NewHEICConverter(cfg.OCR.HEICConverter, runner)),
		parser.WithMinConfidence(cfg.OCR.MinConfidence),
		parser.WithOCRTimeout(config.GetDuration(cfg.OCR.Timeout, 60*time.Second)),
		parser.WithExtractorLogger(log),
		parser.WithExtractorMetrics(m),
	}

	flat, err := buildFlatTextExtractor(ctx, cfg.Tika)
	if err != nil {
		log.Warn().Err(err).Str("type", cfg.Tika.Type).Msg("创建 PDF 连续文本解析器失败，矢量路径只使用文本块拼接")
	} else {
		opts = append(opts, parser.WithFlatTextExtractor(flat))
	}
	return parser.NewExtractor(opts...)
}

// buildFlatTextExtractor 按配置选择 Tika 服务器或 eino PDF 解析器
func buildFlatTextExtractor(ctx context.Context, tc config.TikaConfig) (parser.FlatTextExtractor, error) {
	if tc.Type == "tika" {
		return parser.NewTikaPDFExtractor(tc.ServerURL,
			parser.WithTimeout(time.Duration(tc.Timeout)*time.Second),
			parser.WithAnnotations(tc.Annotations),
			parser.WithTikaLogger(logger.Component("tika_pdf")),
		)
	}
	return parser.NewEinoPDFTextExtractor(ctx,
		parser.WithEinoTimeout(time.Duration(tc.Timeout)*time.Second),
		parser.WithEinoLogger(logger.Component("eino_pdf")),
	)
}

// buildNarrative 千问模型 -> 限流 -> 带重试熔断的客户端；没有 API 密钥时返回 nil
func buildNarrative(cfg *config.Config, executor *resilience.Executor, m *metrics.Metrics) narrative.Client {
	log := logger.Component("narrative")
	if cfg.LLM.APIKey == "" {
		log.Warn().Msg("未配置 API 密钥，整体匹配评估和质量评分将降级")
		return nil
	}

	qwen, err := narrative.NewQwenChatModel(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.APIURL,
		narrative.WithQwenLogger(logger.Component("qwen")))
	if err != nil {
		log.Warn().Err(err).Msg("创建千问模型失败，叙述服务不可用")
		return nil
	}

	limited := ratelimit.NewLLMWithRateLimit(qwen, cfg.LLM.Model, nil, cfg.LLM.QPM,
		cfg.LLM.MaxRetries, time.Duration(cfg.LLM.RetryWaitSeconds)*time.Second)

	client, err := narrative.NewChatClient(limited,
		narrative.WithTemperature(cfg.LLM.Temperature),
		narrative.WithMaxTokens(cfg.LLM.MaxTokens),
		narrative.WithExecutor(executor),
		narrative.WithMetrics(m),
		narrative.WithLogger(log),
	)
	if err != nil {
		log.Warn().Err(err).Msg("创建叙述客户端失败")
		return nil
	}
	return client
}

// buildEmbedder 向量模型初始化失败时返回 nil，匹配退化为无向量分
// 返回的 closer 用于关闭 Redis 连接
func buildEmbedder(cfg *config.Config, executor *resilience.Executor, m *metrics.Metrics) (embedding.Embedder, func() error) {
	log := logger.Component("embedding")
	if !cfg.Embedding.Enabled {
		return nil, nil
	}

	inner, err := embedding.NewHTTPEmbedder(cfg.LLM.APIKey, cfg.Embedding,
		embedding.WithExecutor(executor),
		embedding.WithMetrics(m),
		embedding.WithLogger(log),
	)
	if err != nil {
		log.Warn().Err(err).Msg("向量模型初始化失败，匹配将不使用向量相似度")
		return nil, nil
	}

	ttl := config.GetDuration(cfg.Embedding.CacheTTL, 0)
	if !cfg.Redis.Enabled || ttl <= 0 {
		return inner, nil
	}

	redisCache, err := storage.NewRedisAdapter(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis 不可用，向量不缓存")
		return inner, nil
	}
	return embedding.NewCachedEmbedder(inner, redisCache, inner.Model(), ttl, m), redisCache.Close
}

// resilienceConfig 配置中的时长字符串转为 resilience.Config，无法解析的用默认值
func resilienceConfig(rc config.ResilienceConfig) resilience.Config {
	def := resilience.DefaultConfig()
	return resilience.Config{
		RetryMaxAttempts:        rc.RetryMaxAttempts,
		RetryInitialBackoff:     config.GetDuration(rc.RetryInitialBackoff, def.RetryInitialBackoff),
		RetryMaxBackoff:         config.GetDuration(rc.RetryMaxBackoff, def.RetryMaxBackoff),
		RetryMultiplier:         rc.RetryMultiplier,
		BreakerEnabled:          rc.BreakerEnabled,
		BreakerMinRequests:      rc.BreakerMinRequests,
		BreakerFailureRatio:     rc.BreakerFailureRatio,
		BreakerOpenTimeout:      config.GetDuration(rc.BreakerOpenTimeout, def.BreakerOpenTimeout),
		BreakerHalfOpenMaxCalls: rc.BreakerHalfOpenMaxCalls,
	}
}
