package layout

import "resume-engine/internal/config"

// Thresholds 版面启发式的全部阈值
type Thresholds struct {
	VectorColumnGapRatio float64
	RasterColumnGapRatio float64
	MaxColumns           int
	HeaderStdDevFactor   float64
	HeaderTopZoneRatio   float64
	SectionGapFactor     float64
	MinBlocksForColumns  int
	TopFontSizes         int
	MaxHeaderCandidates  int
	MaxSections          int
	SampleBlocks         int
	SampleTextLen        int
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		VectorColumnGapRatio: 0.20,
		RasterColumnGapRatio: 0.15,
		MaxColumns:           3,
		HeaderStdDevFactor:   0.8,
		HeaderTopZoneRatio:   0.10,
		SectionGapFactor:     2.5,
		MinBlocksForColumns:  5,
		TopFontSizes:         3,
		MaxHeaderCandidates:  5,
		MaxSections:          10,
		SampleBlocks:         3,
		SampleTextLen:        50,
	}
}

// ThresholdsFromConfig 配置中的零值沿用默认阈值
func ThresholdsFromConfig(cfg config.LayoutConfig) Thresholds {
	th := DefaultThresholds()
	if cfg.VectorColumnGapRatio > 0 {
		th.VectorColumnGapRatio = cfg.VectorColumnGapRatio
	}
	if cfg.RasterColumnGapRatio > 0 {
		th.RasterColumnGapRatio = cfg.RasterColumnGapRatio
	}
	// 栏数上限不超过 3
	if cfg.MaxColumns > 0 && cfg.MaxColumns <= 3 {
		th.MaxColumns = cfg.MaxColumns
	}
	if cfg.HeaderStdDevFactor > 0 {
		th.HeaderStdDevFactor = cfg.HeaderStdDevFactor
	}
	if cfg.HeaderTopZoneRatio > 0 {
		th.HeaderTopZoneRatio = cfg.HeaderTopZoneRatio
	}
	if cfg.SectionGapFactor > 0 {
		th.SectionGapFactor = cfg.SectionGapFactor
	}
	if cfg.MinBlocksForColumns > 0 {
		th.MinBlocksForColumns = cfg.MinBlocksForColumns
	}
	if cfg.TopFontSizes > 0 {
		th.TopFontSizes = cfg.TopFontSizes
	}
	if cfg.MaxHeaderCandidates > 0 {
		th.MaxHeaderCandidates = cfg.MaxHeaderCandidates
	}
	if cfg.MaxSections > 0 {
		th.MaxSections = cfg.MaxSections
	}
	return th
}
