package processor

import (
	"resume-engine/internal/metrics"

	"github.com/rs/zerolog"
)

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// ----- 组件选项 -----

// WithcompStore 设置文档存储
func WithcompStore(store DocumentStore) ComponentOpt {
	return func(c *Components) {
		c.Store = store
	}
}

// WithcompExtractor 设置文本提取器
func WithcompExtractor(extractor TextExtractor) ComponentOpt {
	return func(c *Components) {
		c.Extractor = extractor
	}
}

// WithcompLayout 设置版面分析器
func WithcompLayout(analyzer LayoutAnalyzer) ComponentOpt {
	return func(c *Components) {
		c.Layout = analyzer
	}
}

// WithcompSegmenter 设置章节切分器
func WithcompSegmenter(segmenter ResumeSegmenter) ComponentOpt {
	return func(c *Components) {
		c.Segmenter = segmenter
	}
}

// WithcompSkills 设置技能提取器
func WithcompSkills(extractor SkillExtractor) ComponentOpt {
	return func(c *Components) {
		c.Skills = extractor
	}
}

// WithcompQuality 设置质量评估器
func WithcompQuality(scorer QualityScorer) ComponentOpt {
	return func(c *Components) {
		c.Quality = scorer
	}
}

// WithcompMatcher 设置岗位匹配引擎
func WithcompMatcher(matcher JobMatcher) ComponentOpt {
	return func(c *Components) {
		c.Matcher = matcher
	}
}

// WithcompCloser 注册关闭时需要释放的资源
func WithcompCloser(closer func() error) ComponentOpt {
	return func(c *Components) {
		if closer != nil {
			c.closers = append(c.closers, closer)
		}
	}
}

// ----- 设置选项 -----

// WithsetSkillsTopN 设置 ExtractSkills 的默认数量
func WithsetSkillsTopN(n int) SettingOpt {
	return func(s *Settings) {
		s.SkillsTopN = n
	}
}

// WithsetKeywordsTopN 设置解析结果中的关键词数量
func WithsetKeywordsTopN(n int) SettingOpt {
	return func(s *Settings) {
		s.KeywordsTopN = n
	}
}

// WithsetLogger 设置日志记录器
func WithsetLogger(l zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		s.Logger = &l
	}
}

// WithsetMetrics 设置指标
func WithsetMetrics(m *metrics.Metrics) SettingOpt {
	return func(s *Settings) {
		s.Metrics = m
	}
}
