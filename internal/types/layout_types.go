package types

// ConfidenceTier 版面分析结果的可信等级
type ConfidenceTier string

const (
	// TierNone 提取或分析失败
	TierNone ConfidenceTier = "none"
	// TierLow 光栅路径，启发式结果较弱
	TierLow ConfidenceTier = "low"
	// TierMedium 光栅路径，启发式结果较好
	TierMedium ConfidenceTier = "medium"
	// TierHigh 矢量路径，精确几何
	TierHigh ConfidenceTier = "high"
)

// Margins 页边距，均不小于 0
type Margins struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// HeaderCandidate 疑似标题
type HeaderCandidate struct {
	Text     string  `json:"text"`
	Position float64 `json:"position"`
	Size     float64 `json:"size"`
	Page     int     `json:"page"`
}

// SectionBoundary 按纵向间距推断出的版面分区
type SectionBoundary struct {
	StartY     float64 `json:"start_y"`
	EndY       float64 `json:"end_y"`
	SampleText string  `json:"sample_text"`
}

// LayoutMetrics 版面分析结果，计算后不再修改
type LayoutMetrics struct {
	PageCount        int               `json:"page_count"`
	ColumnCount      int               `json:"column_count"`
	Margins          Margins           `json:"margins"`
	HeaderCandidates []HeaderCandidate `json:"header_candidates"`
	Sections         []SectionBoundary `json:"sections"`
	FontSizes        []float64         `json:"font_sizes,omitempty"` // 第一页的常用字号
	PageFontSizes    [][]float64       `json:"page_font_sizes,omitempty"` // 有文本的页按页序各自统计
	PageWidth        float64           `json:"page_width"`
	PageHeight       float64           `json:"page_height"`
	DocumentKind     DocumentKind      `json:"document_kind,omitempty"`
	ConfidenceTier   ConfidenceTier    `json:"confidence_tier"`
}

// QualityDimension 质量评估维度
type QualityDimension = string

const (
	DimensionLayout    QualityDimension = "layout"
	DimensionStructure QualityDimension = "structure"
	DimensionLanguage  QualityDimension = "language"
	DimensionOutcome   QualityDimension = "outcome"
	DimensionOverall   QualityDimension = "overall"
)

// QualityDimensions 参与加权的四个维度
var QualityDimensions = []QualityDimension{DimensionLayout, DimensionStructure, DimensionLanguage, DimensionOutcome}

// QualityReport 质量评估结果
type QualityReport struct {
	Scores   map[string]int      `json:"scores"`
	Feedback map[string][]string `json:"feedback"`
}
