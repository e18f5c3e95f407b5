package layout

import (
	"context"
	"testing"

	"resume-engine/internal/config"
	"resume-engine/internal/logger"
	"resume-engine/internal/parser"
	"resume-engine/internal/testutil"
	"resume-engine/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(WithLogger(logger.Nop()))
}

func block(page int, x1, y1, x2, y2 float64, text string) types.TextBlock {
	return types.TextBlock{
		Text:       text,
		BBox:       types.BBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
		Confidence: 0.9,
		Page:       page,
	}
}

func assertInvariants(t *testing.T, m *types.LayoutMetrics) {
	t.Helper()
	assert.GreaterOrEqual(t, m.ColumnCount, 1)
	assert.LessOrEqual(t, m.ColumnCount, 3)
	assert.GreaterOrEqual(t, m.Margins.Left, 0.0)
	assert.GreaterOrEqual(t, m.Margins.Right, 0.0)
	assert.GreaterOrEqual(t, m.Margins.Top, 0.0)
	assert.GreaterOrEqual(t, m.Margins.Bottom, 0.0)
}

func TestAnalyzeVectorResume(t *testing.T) {
	doc, err := parser.OpenPDF("u1", testutil.BuildPDF([][]testutil.PDFLine{testutil.ResumePage()}))
	require.NoError(t, err)
	pages, blocks := doc.Pages()

	m := newTestAnalyzer().AnalyzeVector(pages, blocks)
	assertInvariants(t, m)

	assert.Equal(t, types.TierHigh, m.ConfidenceTier)
	assert.Equal(t, 1, m.PageCount)
	assert.Equal(t, 1, m.ColumnCount)
	assert.Equal(t, 612.0, m.PageWidth)
	assert.Equal(t, 792.0, m.PageHeight)
	assert.InDelta(t, 72, m.Margins.Left, 0.5)

	// 正文字号字符最多，排第一
	require.Len(t, m.FontSizes, 3)
	assert.Equal(t, []float64{11, 14, 20}, m.FontSizes)

	// 比正文大的块都是标题候选，按自上而下排序
	require.Len(t, m.HeaderCandidates, 5)
	assert.Equal(t, "Jane Doe", m.HeaderCandidates[0].Text)
	assert.Equal(t, "Profile", m.HeaderCandidates[1].Text)
	assert.Equal(t, "Skills", m.HeaderCandidates[4].Text)

	// 每个标题另起一段
	require.Len(t, m.Sections, 5)
	assert.Equal(t, "Jane Doe", m.Sections[0].SampleText)
	assert.Contains(t, m.Sections[2].SampleText, "Work Experience")
}

func TestAnalyzeVectorColumns(t *testing.T) {
	pages := []types.PageGeometry{{Number: 1, Width: 612, Height: 792}}

	twoCol := []types.TextBlock{
		block(1, 50, 100, 250, 112, "left one"),
		block(1, 50, 120, 250, 132, "left two"),
		block(1, 320, 100, 560, 112, "right one"),
		block(1, 320, 120, 560, 132, "right two"),
	}
	m := newTestAnalyzer().AnalyzeVector(pages, twoCol)
	assert.Equal(t, 2, m.ColumnCount)

	// 超过三栏截断为三
	wide := []types.TextBlock{
		block(1, 10, 100, 100, 112, "a"),
		block(1, 140, 100, 230, 112, "b"),
		block(1, 270, 100, 360, 112, "c"),
		block(1, 400, 100, 490, 112, "d"),
		block(1, 530, 100, 600, 112, "e"),
	}
	m = newTestAnalyzer().AnalyzeVector(pages, wide)
	assert.Equal(t, 3, m.ColumnCount)
	assertInvariants(t, m)
}

func TestAnalyzeVectorRightAlignedDates(t *testing.T) {
	pages := []types.PageGeometry{{Number: 1, Width: 612, Height: 792}}

	// 单栏简历，日期右对齐在职位行尾
	blocks := []types.TextBlock{
		block(1, 72, 100, 300, 112, "Senior Engineer, Acme"),
		block(1, 480, 100, 540, 112, "2020 - 2023"),
		block(1, 72, 118, 400, 130, "Built the billing pipeline"),
		block(1, 72, 136, 300, 148, "Engineer, Globex"),
		block(1, 480, 136, 540, 148, "2017 - 2020"),
		block(1, 72, 154, 400, 166, "Ran the search team"),
		block(1, 72, 172, 400, 184, "Mentored new hires"),
	}
	m := newTestAnalyzer().AnalyzeVector(pages, blocks)
	assert.Equal(t, 1, m.ColumnCount)
	assertInvariants(t, m)

	// 右侧块自成行时仍是第二栏
	sidebar := append([]types.TextBlock{}, blocks...)
	sidebar = append(sidebar, block(1, 480, 200, 560, 212, "Go"))
	m = newTestAnalyzer().AnalyzeVector(pages, sidebar)
	assert.Equal(t, 2, m.ColumnCount)
}

func TestAnalyzeVectorFontSizesPerPage(t *testing.T) {
	pages := []types.PageGeometry{
		{Number: 1, Width: 612, Height: 792},
		{Number: 2, Width: 612, Height: 792},
	}
	sized := func(b types.TextBlock, size float64) types.TextBlock {
		b.FontSize = size
		return b
	}
	blocks := []types.TextBlock{
		sized(block(1, 72, 80, 300, 100, "Jane Doe"), 20),
		sized(block(1, 72, 120, 500, 132, "Backend engineer with ten years of experience"), 11),
		// 第二页正文更小，12 号在这一页是标题
		sized(block(2, 72, 80, 300, 94, "Projects"), 12),
		sized(block(2, 72, 110, 500, 120, "Rewrote the scheduler in Go for lower latency"), 9),
	}

	m := newTestAnalyzer().AnalyzeVector(pages, blocks)
	require.Len(t, m.PageFontSizes, 2)
	assert.Equal(t, []float64{11, 20}, m.PageFontSizes[0])
	assert.Equal(t, []float64{9, 12}, m.PageFontSizes[1])
	assert.Equal(t, m.PageFontSizes[0], m.FontSizes)

	texts := make([]string, 0, len(m.HeaderCandidates))
	for _, h := range m.HeaderCandidates {
		texts = append(texts, h.Text)
	}
	assert.Equal(t, []string{"Jane Doe", "Projects"}, texts)
}

func TestAnalyzeVectorEmpty(t *testing.T) {
	pages := []types.PageGeometry{{Number: 1, Width: 612, Height: 792}}
	m := newTestAnalyzer().AnalyzeVector(pages, nil)

	assert.Equal(t, types.TierHigh, m.ConfidenceTier)
	assert.Equal(t, 1, m.ColumnCount)
	assert.Equal(t, types.Margins{}, m.Margins)
	assert.Empty(t, m.HeaderCandidates)
	assert.Empty(t, m.Sections)
}

func TestAnalyzeRasterTopZoneHeader(t *testing.T) {
	pages := []types.PageGeometry{{Number: 1, Width: 1000, Height: 1000}}
	blocks := []types.TextBlock{
		block(1, 100, 50, 400, 70, "JANE DOE"),
		block(1, 100, 200, 800, 220, "line one"),
		block(1, 100, 230, 800, 250, "line two"),
		block(1, 100, 260, 800, 280, "line three"),
	}

	m := newTestAnalyzer().AnalyzeRaster(pages, blocks)
	assertInvariants(t, m)

	// 行高一致，只有位于页面顶部 10% 的块成为标题
	require.Len(t, m.HeaderCandidates, 1)
	assert.Equal(t, "JANE DOE", m.HeaderCandidates[0].Text)
	assert.Equal(t, 50.0, m.HeaderCandidates[0].Position)
	assert.Equal(t, 20.0, m.HeaderCandidates[0].Size)
	assert.Equal(t, 1, m.HeaderCandidates[0].Page)
}

func TestAnalyzeRasterColumns(t *testing.T) {
	pages := []types.PageGeometry{{Number: 1, Width: 1000, Height: 1400}}

	var twoCol []types.TextBlock
	for i := 0; i < 6; i++ {
		y := 200 + float64(i)*30
		twoCol = append(twoCol,
			block(1, 50, y, 250, y+20, "left"),
			block(1, 550, y, 750, y+20, "right"),
		)
	}
	m := newTestAnalyzer().AnalyzeRaster(pages, twoCol)
	assert.Equal(t, 2, m.ColumnCount)

	// 块数不超过 5 时不判断分栏
	few := []types.TextBlock{
		block(1, 50, 200, 250, 220, "a"),
		block(1, 550, 200, 750, 220, "b"),
		block(1, 50, 230, 250, 250, "c"),
		block(1, 550, 230, 750, 250, "d"),
	}
	m = newTestAnalyzer().AnalyzeRaster(pages, few)
	assert.Equal(t, 1, m.ColumnCount)

	var four []types.TextBlock
	for i, x := range []float64{0, 250, 500, 750, 0, 250, 500, 750} {
		y := 200 + float64(i/4)*30
		four = append(four, block(1, x, y, x+200, y+20, "cell"))
	}
	m = newTestAnalyzer().AnalyzeRaster(pages, four)
	assert.Equal(t, 3, m.ColumnCount)
}

func TestAnalyzeRasterTiers(t *testing.T) {
	pages := []types.PageGeometry{{Number: 1, Width: 1000, Height: 2000}}

	var good []types.TextBlock
	y := 300.0
	for s := 0; s < 3; s++ {
		good = append(good, block(1, 100, y, 600, y+40, "SECTION HEADER"))
		y += 50
		for i := 0; i < 10; i++ {
			good = append(good, block(1, 100, y, 900, y+20, "body text line"))
			y += 25
		}
	}
	m := newTestAnalyzer().AnalyzeRaster(pages, good)
	assert.Equal(t, types.TierMedium, m.ConfidenceTier)
	assert.Len(t, m.HeaderCandidates, 3)
	assert.Len(t, m.Sections, 3)
	assert.Equal(t, "SECTION HEADER body text line body text line", m.Sections[0].SampleText)

	poor := []types.TextBlock{
		block(1, 100, 300, 400, 310, "tiny"),
		block(1, 100, 400, 400, 430, "mid"),
		block(1, 100, 500, 400, 560, "huge"),
	}
	m = newTestAnalyzer().AnalyzeRaster(pages, poor)
	assert.Equal(t, types.TierLow, m.ConfidenceTier)
	assertInvariants(t, m)
}

func TestAnalyzeRasterMarginsClamped(t *testing.T) {
	pages := []types.PageGeometry{{Number: 1, Width: 1000, Height: 1000}}
	blocks := []types.TextBlock{
		block(1, 80, 200, 1040, 220, "overflowing line"),
		block(1, 120, 240, 900, 260, "normal line"),
	}

	m := newTestAnalyzer().AnalyzeRaster(pages, blocks)
	assert.Equal(t, 0.0, m.Margins.Right)
	assert.Equal(t, 80.0, m.Margins.Left)
	assert.Equal(t, 200.0, m.Margins.Top)
	assert.Equal(t, 740.0, m.Margins.Bottom)
}

func TestSampleTextTruncated(t *testing.T) {
	long := "Senior platform engineer responsible for distributed storage systems"
	pages := []types.PageGeometry{{Number: 1, Width: 1000, Height: 1000}}
	m := newTestAnalyzer().AnalyzeRaster(pages, []types.TextBlock{block(1, 100, 300, 900, 320, long)})

	require.Len(t, m.Sections, 1)
	assert.Equal(t, long[:50]+"...", m.Sections[0].SampleText)
}

func TestGuardDegradesOnPanic(t *testing.T) {
	pages := []types.PageGeometry{{Number: 1, Width: 2480, Height: 3508}, {Number: 2, Width: 2480, Height: 3508}}

	m := newTestAnalyzer().guard(pages, func() *types.LayoutMetrics { panic("boom") })
	require.NotNil(t, m)
	assert.Equal(t, types.TierNone, m.ConfidenceTier)
	assert.Equal(t, 2, m.PageCount)
	assert.Equal(t, 1, m.ColumnCount)
	assert.Equal(t, 2480.0, m.PageWidth)
	assert.Equal(t, 3508.0, m.PageHeight)
}

func TestAnalyzeDispatch(t *testing.T) {
	a := newTestAnalyzer()
	ex := &parser.Extraction{
		Kind:     types.DocumentKindImage,
		Strategy: parser.StrategyRaster,
		Pages:    []types.PageGeometry{{Number: 1, Width: 1000, Height: 1000}},
		Blocks:   []types.TextBlock{block(1, 100, 300, 900, 320, "only line")},
	}
	m := a.Analyze(context.Background(), ex)
	assert.Equal(t, types.DocumentKindImage, m.DocumentKind)
	assert.Contains(t, []types.ConfidenceTier{types.TierLow, types.TierMedium}, m.ConfidenceTier)

	m = a.Analyze(context.Background(), nil)
	assert.Equal(t, types.TierNone, m.ConfidenceTier)
}

func TestThresholdsFromConfig(t *testing.T) {
	assert.Equal(t, DefaultThresholds(), ThresholdsFromConfig(config.LayoutConfig{}))

	th := ThresholdsFromConfig(config.LayoutConfig{MaxColumns: 7, SectionGapFactor: 3, MaxSections: 4})
	assert.Equal(t, 3, th.MaxColumns)
	assert.Equal(t, 3.0, th.SectionGapFactor)
	assert.Equal(t, 4, th.MaxSections)
}

func TestAnalyzeRasterAllBlocksInTopZone(t *testing.T) {
	pages := []types.PageGeometry{{Number: 1, Width: 1000, Height: 1000}}
	blocks := []types.TextBlock{
		block(1, 100, 10, 400, 30, "Jane Doe"),
		block(1, 100, 40, 400, 60, "Berlin"),
		block(1, 100, 70, 400, 90, "jane@example.com"),
	}

	m := newTestAnalyzer().AnalyzeRaster(pages, blocks)
	assert.NotEmpty(t, m.HeaderCandidates)
	assertInvariants(t, m)
}
