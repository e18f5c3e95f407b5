package layout

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"resume-engine/internal/logger"
	"resume-engine/internal/metrics"
	"resume-engine/internal/parser"
	"resume-engine/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Analyzer 版面分析器，无状态，可并发使用
type Analyzer struct {
	th      Thresholds
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option 分析器选项
type Option func(*Analyzer)

// WithThresholds 覆盖默认阈值
func WithThresholds(th Thresholds) Option {
	return func(a *Analyzer) { a.th = th }
}

// WithLogger 日志
func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithMetrics 指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// NewAnalyzer 创建版面分析器
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		th:     DefaultThresholds(),
		logger: logger.Component("layout"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze 根据提取路径选择矢量或光栅分析
func (a *Analyzer) Analyze(ctx context.Context, ex *parser.Extraction) *types.LayoutMetrics {
	_, span := otel.Tracer("layout").Start(ctx, "Analyzer.Analyze")
	defer span.End()

	if ex == nil {
		return Degraded(nil, "")
	}

	var m *types.LayoutMetrics
	if ex.Strategy == parser.StrategyVector {
		m = a.AnalyzeVector(ex.Pages, ex.Blocks)
	} else {
		m = a.AnalyzeRaster(ex.Pages, ex.Blocks)
	}
	m.DocumentKind = ex.Kind

	span.SetAttributes(
		attribute.String("document_kind", string(ex.Kind)),
		attribute.String("confidence_tier", string(m.ConfidenceTier)),
		attribute.Int("column_count", m.ColumnCount),
		attribute.Int("header_candidates", len(m.HeaderCandidates)),
		attribute.Int("sections", len(m.Sections)),
	)
	a.logger.Debug().
		Str("tier", string(m.ConfidenceTier)).
		Int("columns", m.ColumnCount).
		Int("headers", len(m.HeaderCandidates)).
		Int("sections", len(m.Sections)).
		Msg("版面分析完成")
	return m
}

// Degraded 分析失败时的最小结果
func Degraded(pages []types.PageGeometry, kind types.DocumentKind) *types.LayoutMetrics {
	m := &types.LayoutMetrics{
		PageCount:        len(pages),
		ColumnCount:      1,
		HeaderCandidates: []types.HeaderCandidate{},
		Sections:         []types.SectionBoundary{},
		DocumentKind:     kind,
		ConfidenceTier:   types.TierNone,
	}
	if len(pages) > 0 {
		m.PageWidth = pages[0].Width
		m.PageHeight = pages[0].Height
	}
	return m
}

// AnalyzeVector 矢量PDF：精确几何，字号可用
func (a *Analyzer) AnalyzeVector(pages []types.PageGeometry, blocks []types.TextBlock) *types.LayoutMetrics {
	return a.guard(pages, func() *types.LayoutMetrics {
		geo := newGeometry(pages, blocks)
		sorted := ordered(blocks)
		m := geo.base()

		byPage := groupByPage(sorted)
		bodySize := make(map[int]float64, len(byPage))
		for _, num := range sortedKeys(byPage) {
			pageBlocks := byPage[num]
			page := geo.page(num)
			cols := countVectorColumns(pageBlocks, page.Width*a.th.VectorColumnGapRatio, a.th.MaxColumns)
			if cols > m.ColumnCount {
				m.ColumnCount = cols
			}

			// 字号按页统计，正文字号也按页取
			sizes := topFontSizes(pageBlocks, a.th.TopFontSizes)
			m.PageFontSizes = append(m.PageFontSizes, sizes)
			if len(sizes) > 0 {
				bodySize[num] = sizes[0]
			}
		}
		m.Margins = geo.margins(byPage)
		if len(m.PageFontSizes) > 0 {
			m.FontSizes = m.PageFontSizes[0]
		}

		isHeader := make([]bool, len(sorted))
		for i, b := range sorted {
			if body, ok := bodySize[b.Page]; ok && roundSize(b.FontSize) > body {
				isHeader[i] = true
			}
		}
		m.HeaderCandidates = a.candidates(sorted, isHeader, func(b types.TextBlock) float64 { return b.FontSize })
		m.Sections = a.sections(sorted, isHeader, geo)
		m.ConfidenceTier = types.TierHigh
		return m
	})
}

// AnalyzeRaster OCR结果：只有包围盒，靠行高和位置推断
func (a *Analyzer) AnalyzeRaster(pages []types.PageGeometry, blocks []types.TextBlock) *types.LayoutMetrics {
	return a.guard(pages, func() *types.LayoutMetrics {
		geo := newGeometry(pages, blocks)
		sorted := ordered(blocks)
		m := geo.base()

		heights := make([]float64, len(sorted))
		for i, b := range sorted {
			heights[i] = b.BBox.Height()
		}
		mean, std := meanStd(heights)

		isHeader := make([]bool, len(sorted))
		headerCount := 0
		for i, b := range sorted {
			large := heights[i] > mean+a.th.HeaderStdDevFactor*std
			atTop := b.BBox.Y1 < geo.page(b.Page).Height*a.th.HeaderTopZoneRatio
			if large || atTop {
				isHeader[i] = true
				headerCount++
			}
		}

		byPage := groupByPage(sorted)
		for _, num := range sortedKeys(byPage) {
			pageBlocks := byPage[num]
			if len(pageBlocks) <= a.th.MinBlocksForColumns {
				continue
			}
			centers := make([]float64, 0, len(pageBlocks))
			for _, b := range pageBlocks {
				centers = append(centers, (b.BBox.X1+b.BBox.X2)/2)
			}
			cols := countColumns(centers, geo.page(num).Width*a.th.RasterColumnGapRatio, a.th.MaxColumns)
			if cols > m.ColumnCount {
				m.ColumnCount = cols
			}
		}
		m.Margins = geo.margins(byPage)

		m.HeaderCandidates = a.candidates(sorted, isHeader, func(b types.TextBlock) float64 { return b.BBox.Height() })
		m.Sections = a.sections(sorted, isHeader, geo)

		score := 0
		if len(m.Sections) >= 3 {
			score++
		}
		if headerCount >= 2 {
			score++
		}
		if len(sorted) >= 20 && len(sorted) <= 200 {
			score++
		}
		if consistentHeights(heights, isHeader) {
			score++
		}
		m.ConfidenceTier = types.TierLow
		if score >= 3 {
			m.ConfidenceTier = types.TierMedium
		}
		return m
	})
}

// guard 分析过程中的 panic 降级为 none
func (a *Analyzer) guard(pages []types.PageGeometry, fn func() *types.LayoutMetrics) (m *types.LayoutMetrics) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("版面分析异常，降级处理")
			a.metrics.Fallback("layout", "panic")
			m = Degraded(pages, "")
		}
	}()
	return fn()
}

// candidates 按页和纵坐标排序的标题候选，截断到上限
func (a *Analyzer) candidates(sorted []types.TextBlock, isHeader []bool, size func(types.TextBlock) float64) []types.HeaderCandidate {
	out := []types.HeaderCandidate{}
	for i, b := range sorted {
		if !isHeader[i] {
			continue
		}
		if len(out) >= a.th.MaxHeaderCandidates {
			break
		}
		out = append(out, types.HeaderCandidate{
			Text:     strings.TrimSpace(b.Text),
			Position: b.BBox.Y1,
			Size:     size(b),
			Page:     b.Page,
		})
	}
	return out
}

// sections 纵向间距超过平均间距一定倍数处断开，标题块另起一段
func (a *Analyzer) sections(sorted []types.TextBlock, isHeader []bool, geo *geometry) []types.SectionBoundary {
	out := []types.SectionBoundary{}
	if len(sorted) == 0 {
		return out
	}

	// 跨页时纵坐标累加前面页的高度
	ys := make([]float64, len(sorted))
	for i, b := range sorted {
		ys[i] = geo.offset(b.Page) + b.BBox.Y1
	}
	gaps := make([]float64, 0, len(ys))
	for i := 1; i < len(ys); i++ {
		gaps = append(gaps, ys[i]-ys[i-1])
	}
	meanGap, _ := meanStd(gaps)

	// breakAfter[i] 表示第 i 块是一个分区的最后一块
	breakAfter := make([]bool, len(sorted))
	for i, g := range gaps {
		if meanGap > 0 && g > a.th.SectionGapFactor*meanGap {
			breakAfter[i] = true
		}
	}
	for i := 1; i < len(sorted); i++ {
		if isHeader[i] {
			breakAfter[i-1] = true
		}
	}

	start := 0
	for i := range sorted {
		if !breakAfter[i] && i != len(sorted)-1 {
			continue
		}
		if len(out) >= a.th.MaxSections {
			break
		}
		out = append(out, types.SectionBoundary{
			StartY:     sorted[start].BBox.Y1,
			EndY:       sorted[i].BBox.Y2,
			SampleText: a.sampleText(sorted[start : i+1]),
		})
		start = i + 1
	}
	return out
}

// sampleText 分区前几块文本，超长截断加省略号
func (a *Analyzer) sampleText(blocks []types.TextBlock) string {
	n := a.th.SampleBlocks
	if n > len(blocks) {
		n = len(blocks)
	}
	parts := make([]string, 0, n)
	for _, b := range blocks[:n] {
		if t := strings.TrimSpace(b.Text); t != "" {
			parts = append(parts, t)
		}
	}
	text := []rune(strings.Join(parts, " "))
	if len(text) > a.th.SampleTextLen {
		return string(text[:a.th.SampleTextLen]) + "..."
	}
	return string(text)
}

// countColumns 排序后相邻坐标差超过 gap 的次数加一
func countColumns(xs []float64, gap float64, maxColumns int) int {
	if len(xs) < 2 || gap <= 0 {
		return 1
	}
	sort.Float64s(xs)
	cols := 1
	for i := 1; i < len(xs); i++ {
		if xs[i]-xs[i-1] > gap {
			cols++
		}
	}
	if maxColumns < 1 {
		maxColumns = 1
	}
	if cols > maxColumns {
		cols = maxColumns
	}
	return cols
}

// countVectorColumns 按左边界聚类计栏数。
// 某一簇的块全部与左侧簇的块同行、且块数不到最大簇的一半时，视为行尾片段（右对齐日期、地点）而不计栏
func countVectorColumns(blocks []types.TextBlock, gap float64, maxColumns int) int {
	if len(blocks) < 2 || gap <= 0 {
		return 1
	}
	byX := make([]types.TextBlock, len(blocks))
	copy(byX, blocks)
	sort.SliceStable(byX, func(i, j int) bool { return byX[i].BBox.X1 < byX[j].BBox.X1 })

	var clusters [][]types.TextBlock
	start := 0
	for i := 1; i <= len(byX); i++ {
		if i == len(byX) || byX[i].BBox.X1-byX[i-1].BBox.X1 > gap {
			clusters = append(clusters, byX[start:i])
			start = i
		}
	}
	largest := 0
	for _, c := range clusters {
		if len(c) > largest {
			largest = len(c)
		}
	}

	cols := 1
	offset := len(clusters[0])
	for _, c := range clusters[1:] {
		// byX[:offset] 即当前簇左侧的全部块
		if len(c)*2 >= largest || !sharesRows(c, byX[:offset]) {
			cols++
		}
		offset += len(c)
	}
	if maxColumns < 1 {
		maxColumns = 1
	}
	if cols > maxColumns {
		cols = maxColumns
	}
	return cols
}

// sharesRows c 中每个块都与 left 中某个块在垂直方向上重叠
func sharesRows(c, left []types.TextBlock) bool {
	for _, b := range c {
		found := false
		for _, o := range left {
			if math.Min(b.BBox.Y2, o.BBox.Y2)-math.Max(b.BBox.Y1, o.BBox.Y1) > 0 {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// topFontSizes 按字符数排序的常用字号，字符数相同时大字号在前
func topFontSizes(blocks []types.TextBlock, n int) []float64 {
	counts := make(map[float64]int)
	for _, b := range blocks {
		if b.FontSize <= 0 {
			continue
		}
		chars := 0
		for _, r := range b.Text {
			if !unicode.IsSpace(r) {
				chars++
			}
		}
		counts[roundSize(b.FontSize)] += chars
	}
	sizes := make([]float64, 0, len(counts))
	for s := range counts {
		sizes = append(sizes, s)
	}
	sort.Slice(sizes, func(i, j int) bool {
		if counts[sizes[i]] != counts[sizes[j]] {
			return counts[sizes[i]] > counts[sizes[j]]
		}
		return sizes[i] > sizes[j]
	})
	if n > 0 && len(sizes) > n {
		sizes = sizes[:n]
	}
	return sizes
}

// roundSize 字号按 0.5pt 取整
func roundSize(s float64) float64 {
	return math.Round(s*2) / 2
}

// consistentHeights 非标题块行高的平均绝对偏差小于均值的 30%
func consistentHeights(heights []float64, isHeader []bool) bool {
	var body []float64
	for i, h := range heights {
		if !isHeader[i] {
			body = append(body, h)
		}
	}
	if len(body) == 0 {
		return false
	}
	mean, _ := meanStd(body)
	dev := 0.0
	for _, h := range body {
		dev += math.Abs(h - mean)
	}
	dev /= float64(len(body))
	return dev < 0.3*mean
}

func meanStd(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	sq := 0.0
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(vals)))
}

func ordered(blocks []types.TextBlock) []types.TextBlock {
	out := make([]types.TextBlock, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		if out[i].BBox.Y1 != out[j].BBox.Y1 {
			return out[i].BBox.Y1 < out[j].BBox.Y1
		}
		return out[i].BBox.X1 < out[j].BBox.X1
	})
	return out
}

func groupByPage(blocks []types.TextBlock) map[int][]types.TextBlock {
	out := make(map[int][]types.TextBlock)
	for _, b := range blocks {
		out[b.Page] = append(out[b.Page], b)
	}
	return out
}

func sortedKeys(m map[int][]types.TextBlock) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
