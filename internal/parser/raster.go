package parser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
)

// PDFRasterizer 用 pdftoppm 把PDF渲染成PNG
type PDFRasterizer struct {
	Binary   string
	DPI      int
	MaxPages int
	runner   Runner
}

// NewPDFRasterizer 创建渲染器
func NewPDFRasterizer(binary string, dpi, maxPages int, runner Runner) *PDFRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &PDFRasterizer{Binary: binary, DPI: dpi, MaxPages: maxPages, runner: runner}
}

// Render pdftoppm -r <dpi> -png <in.pdf> <outDir/page>，返回按页排序的图片路径
func (p *PDFRasterizer) Render(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	prefix := filepath.Join(outDir, "page")
	args := []string{"-r", strconv.Itoa(p.DPI), "-png"}
	if p.MaxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(p.MaxPages))
	}
	args = append(args, pdfPath, prefix)

	if _, errb, err := p.runner.Run(ctx, p.Binary, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncateOutput(string(errb), 512))
	}

	// pdftoppm 输出 page-1.png 或补零的 page-01.png
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if p.MaxPages > 0 && len(matches) > p.MaxPages {
		matches = matches[:p.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}
	return matches, nil
}

// heicConverters 自动探测时的顺序
var heicConverters = []string{"heif-convert", "magick", "sips"}

// HEICConverter 把 HEIC/HEIF 转成 PNG
type HEICConverter struct {
	// Converter 为 heif-convert | magick | sips，空时按顺序探测 PATH
	Converter string
	runner    Runner
	lookPath  func(string) (string, error)
}

// NewHEICConverter 创建转换器
func NewHEICConverter(converter string, runner Runner) *HEICConverter {
	return &HEICConverter{Converter: converter, runner: runner, lookPath: exec.LookPath}
}

// Convert 转换为 outDir/page.png 并返回路径
func (h *HEICConverter) Convert(ctx context.Context, in, outDir string) (string, error) {
	converter := h.Converter
	if converter == "" {
		for _, c := range heicConverters {
			if _, err := h.lookPath(c); err == nil {
				converter = c
				break
			}
		}
	}

	out := filepath.Join(outDir, "page.png")
	var errb []byte
	var err error
	switch converter {
	case "heif-convert":
		_, errb, err = h.runner.Run(ctx, "heif-convert", in, out)
	case "magick":
		_, errb, err = h.runner.Run(ctx, "magick", in, out)
	case "sips":
		_, errb, err = h.runner.Run(ctx, "sips", "-s", "format", "png", in, "--out", out)
	default:
		return "", fmt.Errorf("HEIC not supported: install one of heif-convert | magick | sips")
	}
	if err != nil {
		return "", fmt.Errorf("%s convert failed: %w: %s", converter, err, truncateOutput(string(errb), 512))
	}
	if _, statErr := os.Stat(out); statErr != nil {
		return "", fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}
	return out, nil
}
