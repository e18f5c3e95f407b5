package layout

import (
	"math"
	"sort"

	"resume-engine/internal/types"
)

// geometry 页面尺寸索引，缺页时退回到第一页或文本块外接框
type geometry struct {
	pages    []types.PageGeometry
	byNumber map[int]types.PageGeometry
	fallback types.PageGeometry
	offsets  map[int]float64
}

func newGeometry(pages []types.PageGeometry, blocks []types.TextBlock) *geometry {
	g := &geometry{
		byNumber: make(map[int]types.PageGeometry, len(pages)),
		offsets:  make(map[int]float64, len(pages)),
	}
	for _, p := range pages {
		if p.Width <= 0 || p.Height <= 0 {
			continue
		}
		g.byNumber[p.Number] = p
	}
	g.pages = pages

	if len(pages) > 0 && pages[0].Width > 0 && pages[0].Height > 0 {
		g.fallback = pages[0]
	} else {
		for _, b := range blocks {
			g.fallback.Width = math.Max(g.fallback.Width, b.BBox.X2)
			g.fallback.Height = math.Max(g.fallback.Height, b.BBox.Y2)
		}
	}

	nums := make([]int, 0, len(g.byNumber))
	for n := range g.byNumber {
		nums = append(nums, n)
	}
	for _, b := range blocks {
		if _, ok := g.byNumber[b.Page]; !ok {
			nums = append(nums, b.Page)
		}
	}
	sort.Ints(nums)
	acc := 0.0
	for _, n := range nums {
		if _, seen := g.offsets[n]; seen {
			continue
		}
		g.offsets[n] = acc
		acc += g.page(n).Height
	}
	return g
}

func (g *geometry) page(num int) types.PageGeometry {
	if p, ok := g.byNumber[num]; ok {
		return p
	}
	p := g.fallback
	p.Number = num
	return p
}

func (g *geometry) offset(num int) float64 {
	return g.offsets[num]
}

// base 公共字段
func (g *geometry) base() *types.LayoutMetrics {
	return &types.LayoutMetrics{
		PageCount:        len(g.pages),
		ColumnCount:      1,
		HeaderCandidates: []types.HeaderCandidate{},
		Sections:         []types.SectionBoundary{},
		PageWidth:        g.fallback.Width,
		PageHeight:       g.fallback.Height,
	}
}

// margins 每页取文本块到页边的最小距离，全文档再取各页最小值，不小于 0
func (g *geometry) margins(byPage map[int][]types.TextBlock) types.Margins {
	doc := types.Margins{Left: math.Inf(1), Right: math.Inf(1), Top: math.Inf(1), Bottom: math.Inf(1)}
	found := false
	for num, blocks := range byPage {
		if len(blocks) == 0 {
			continue
		}
		found = true
		page := g.page(num)
		for _, b := range blocks {
			doc.Left = math.Min(doc.Left, b.BBox.X1)
			doc.Right = math.Min(doc.Right, page.Width-b.BBox.X2)
			doc.Top = math.Min(doc.Top, b.BBox.Y1)
			doc.Bottom = math.Min(doc.Bottom, page.Height-b.BBox.Y2)
		}
	}
	if !found {
		return types.Margins{}
	}
	return types.Margins{
		Left:   nonNegative(doc.Left),
		Right:  nonNegative(doc.Right),
		Top:    nonNegative(doc.Top),
		Bottom: nonNegative(doc.Bottom),
	}
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
