package parser

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"resume-engine/internal/types"

	"github.com/ledongthuc/pdf"
)

// 找不到 MediaBox 时按 US Letter 处理
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// rowTolerance 同一行字符允许的基线偏差(pt)
const rowTolerance = 2.0

// wordGapFactor 字符间距超过 字号*该系数 时断开文本块
const wordGapFactor = 1.5

// PDFDocument 已打开的PDF，提供逐页的几何与带位置文本
// ledongthuc/pdf 对损坏的文件可能 panic，所有访问都做了 recover
type PDFDocument struct {
	reader *pdf.Reader
}

// OpenPDF 打开PDF，无法解析时返回 ErrDocumentUnreadable
func OpenPDF(uploadID string, data []byte) (doc *PDFDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = types.NewUnreadableError(uploadID, fmt.Sprintf("pdf reader panic: %v", r))
		}
	}()

	if len(data) == 0 {
		return nil, types.NewUnreadableError(uploadID, "空文件")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, types.NewUnreadableError(uploadID, err.Error())
	}
	if r.NumPage() == 0 {
		return nil, types.NewUnreadableError(uploadID, "PDF没有页面")
	}
	return &PDFDocument{reader: r}, nil
}

// NumPages 页数
func (d *PDFDocument) NumPages() int {
	return d.reader.NumPage()
}

// PageCharCount 第 n 页(从1开始)嵌入的非空白字符数，页面损坏时返回 0
func (d *PDFDocument) PageCharCount(n int) (count int) {
	defer func() {
		if recover() != nil {
			count = 0
		}
	}()

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return 0
	}
	for _, t := range page.Content().Text {
		for _, r := range t.S {
			if !unicode.IsSpace(r) {
				count++
			}
		}
	}
	return count
}

// Page 返回第 n 页(从1开始)的尺寸与文本块，坐标转换为自上而下
func (d *PDFDocument) Page(n int) (geom types.PageGeometry, blocks []types.TextBlock, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("读取第 %d 页失败: %v", n, r)
		}
	}()

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return types.PageGeometry{}, nil, fmt.Errorf("第 %d 页不存在", n)
	}

	width, height := pageSize(page.V)
	geom = types.PageGeometry{Number: n, Width: width, Height: height}
	blocks = mergeRuns(page.Content().Text, n, height)
	return geom, blocks, nil
}

// Pages 读取全部页面，跳过损坏的页
func (d *PDFDocument) Pages() ([]types.PageGeometry, []types.TextBlock) {
	var pages []types.PageGeometry
	var blocks []types.TextBlock
	for i := 1; i <= d.NumPages(); i++ {
		geom, pageBlocks, err := d.Page(i)
		if err != nil {
			continue
		}
		pages = append(pages, geom)
		blocks = append(blocks, pageBlocks...)
	}
	return pages, blocks
}

// pageSize 从 MediaBox 读取页面尺寸，MediaBox 可继承自父节点
func pageSize(v pdf.Value) (float64, float64) {
	for i := 0; i < 16 && !v.IsNull(); i++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			w := math.Abs(box.Index(2).Float64() - box.Index(0).Float64())
			h := math.Abs(box.Index(3).Float64() - box.Index(1).Float64())
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageWidth, defaultPageHeight
}

// mergeRuns 把同一基线上相邻的字符合并成文本块
func mergeRuns(texts []pdf.Text, pageNum int, pageHeight float64) []types.TextBlock {
	if len(texts) == 0 {
		return nil
	}

	type row struct {
		y     float64
		chars []pdf.Text
	}
	var rows []*row
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		var target *row
		for _, r := range rows {
			if math.Abs(r.y-t.Y) <= rowTolerance {
				target = r
				break
			}
		}
		if target == nil {
			target = &row{y: t.Y}
			rows = append(rows, target)
		}
		target.chars = append(target.chars, t)
	}

	// PDF 坐标 y 轴向上，先排最上面的行
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	var blocks []types.TextBlock
	for _, r := range rows {
		sort.SliceStable(r.chars, func(i, j int) bool { return r.chars[i].X < r.chars[j].X })

		var b strings.Builder
		var x1, x2, size float64
		flush := func() {
			text := strings.TrimSpace(b.String())
			if text != "" {
				top := pageHeight - r.y - size
				if top < 0 {
					top = 0
				}
				blocks = append(blocks, types.TextBlock{
					Text:       text,
					BBox:       types.BBox{X1: x1, Y1: top, X2: x2, Y2: pageHeight - r.y},
					Confidence: 1.0,
					Page:       pageNum,
					FontSize:   size,
				})
			}
			b.Reset()
		}

		for i, t := range r.chars {
			if i > 0 {
				gap := t.X - x2
				threshold := wordGapFactor * size
				if threshold <= 0 {
					threshold = 3.0
				}
				if gap > threshold || t.FontSize != size {
					flush()
				} else if gap > 0.25*size && !strings.HasSuffix(b.String(), " ") && t.S != " " {
					b.WriteByte(' ')
				}
			}
			if b.Len() == 0 {
				x1 = t.X
				size = t.FontSize
			}
			b.WriteString(t.S)
			x2 = t.X + t.W
		}
		flush()
	}
	return blocks
}
