package parser

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"resume-engine/internal/types"
)

// OCREngine 光栅识别引擎，返回行级文本块与页面像素尺寸
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) ([]types.TextBlock, types.PageGeometry, error)
}

// TesseractConfig tesseract 命令参数
type TesseractConfig struct {
	Binary      string
	Lang        string
	PSM         int
	OEM         int
	TessdataDir string
}

// TesseractOCR 通过 tesseract 的 TSV 输出识别图片
type TesseractOCR struct {
	cfg    TesseractConfig
	runner Runner
}

var _ OCREngine = (*TesseractOCR)(nil)

// NewTesseractOCR 创建 tesseract 引擎
func NewTesseractOCR(cfg TesseractConfig, runner Runner) *TesseractOCR {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &TesseractOCR{cfg: cfg, runner: runner}
}

// Recognize tesseract <img> stdout -l <lang> [--psm] [--oem] [--tessdata-dir] tsv
func (t *TesseractOCR) Recognize(ctx context.Context, imagePath string) ([]types.TextBlock, types.PageGeometry, error) {
	args := []string{imagePath, "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return nil, types.PageGeometry{}, fmt.Errorf("tesseract TSV: %w: %s", err, truncateOutput(string(errb), 512))
	}
	blocks, geom := ParseTesseractTSV(string(out))
	return blocks, geom, nil
}

// tsvLineKey TSV 中一行文字的标识
type tsvLineKey struct {
	page, block, par, line int
}

// ParseTesseractTSV 把词级TSV按 block/par/line 聚合成行级文本块
// 置信度为行内词置信度均值(0..1)，conf 为 -1 的行跳过
func ParseTesseractTSV(tsv string) ([]types.TextBlock, types.PageGeometry) {
	lines := strings.Split(strings.ReplaceAll(tsv, "\r\n", "\n"), "\n")
	if len(lines) == 0 {
		return nil, types.PageGeometry{}
	}

	cols := map[string]int{}
	for i, name := range strings.Split(lines[0], "\t") {
		cols[strings.TrimSpace(name)] = i
	}
	required := []string{"level", "page_num", "block_num", "par_num", "line_num", "left", "top", "width", "height", "conf", "text"}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, types.PageGeometry{}
		}
	}

	type lineAcc struct {
		words   []string
		bbox    types.BBox
		confSum float64
	}
	var order []tsvLineKey
	acc := map[tsvLineKey]*lineAcc{}
	geom := types.PageGeometry{Number: 1}

	for _, ln := range lines[1:] {
		if ln == "" {
			continue
		}
		fields := strings.Split(ln, "\t")
		if len(fields) < len(required) {
			continue
		}
		num := func(name string) int {
			v, _ := strconv.Atoi(strings.TrimSpace(fields[cols[name]]))
			return v
		}

		left, top, width, height := num("left"), num("top"), num("width"), num("height")
		switch num("level") {
		case 1:
			geom.Width = float64(width)
			geom.Height = float64(height)
			continue
		case 5:
		default:
			continue
		}

		text := ""
		if cols["text"] < len(fields) {
			text = strings.TrimSpace(fields[cols["text"]])
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(fields[cols["conf"]]), 64)
		if text == "" || err != nil || conf < 0 {
			continue
		}

		key := tsvLineKey{page: num("page_num"), block: num("block_num"), par: num("par_num"), line: num("line_num")}
		box := types.BBox{X1: float64(left), Y1: float64(top), X2: float64(left + width), Y2: float64(top + height)}
		a, ok := acc[key]
		if !ok {
			a = &lineAcc{bbox: box}
			acc[key] = a
			order = append(order, key)
		} else {
			a.bbox = unionBBox(a.bbox, box)
		}
		a.words = append(a.words, text)
		a.confSum += conf
	}

	blocks := make([]types.TextBlock, 0, len(order))
	for _, key := range order {
		a := acc[key]
		blocks = append(blocks, types.TextBlock{
			Text:       strings.Join(a.words, " "),
			BBox:       a.bbox,
			Confidence: a.confSum / float64(len(a.words)) / 100.0,
			Page:       1,
		})
	}
	return blocks, geom
}

func unionBBox(a, b types.BBox) types.BBox {
	if b.X1 < a.X1 {
		a.X1 = b.X1
	}
	if b.Y1 < a.Y1 {
		a.Y1 = b.Y1
	}
	if b.X2 > a.X2 {
		a.X2 = b.X2
	}
	if b.Y2 > a.Y2 {
		a.Y2 = b.Y2
	}
	return a
}
