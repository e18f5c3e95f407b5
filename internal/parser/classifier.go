package parser

import (
	"resume-engine/internal/types"
)

// 分类参数
const (
	// ClassifierSamplePages 抽样的页数上限
	ClassifierSamplePages = 3
	// ClassifierMinPageChars 页面嵌入字符数超过该值才算有文本层
	ClassifierMinPageChars = 50
	// ClassifierVectorRatio 有文本层的页面占比超过该值判定为矢量PDF
	ClassifierVectorRatio = 0.5
)

// PageSampler 提供逐页字符数，PDFDocument 实现该接口
type PageSampler interface {
	NumPages() int
	PageCharCount(page int) int
}

// Classification 文档类型判定结果
type Classification struct {
	Kind types.DocumentKind
	// Confidence 为有文本层的抽样页占比；图片恒为 1
	Confidence   float64
	SampledPages int
	TextPages    int
}

// ClassifyPDF 抽样前几页判断是矢量PDF还是扫描件
func ClassifyPDF(sampler PageSampler) Classification {
	n := sampler.NumPages()
	if n > ClassifierSamplePages {
		n = ClassifierSamplePages
	}
	if n <= 0 {
		return Classification{Kind: types.DocumentKindScanned}
	}

	textPages := 0
	for i := 1; i <= n; i++ {
		if sampler.PageCharCount(i) > ClassifierMinPageChars {
			textPages++
		}
	}

	ratio := float64(textPages) / float64(n)
	kind := types.DocumentKindScanned
	if ratio > ClassifierVectorRatio {
		kind = types.DocumentKindVector
	}
	return Classification{Kind: kind, Confidence: ratio, SampledPages: n, TextPages: textPages}
}

// ClassifyImage 图片一律走光栅路径
func ClassifyImage() Classification {
	return Classification{Kind: types.DocumentKindImage, Confidence: 1}
}
