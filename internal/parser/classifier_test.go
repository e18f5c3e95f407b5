package parser

import (
	"testing"

	"resume-engine/internal/testutil"
	"resume-engine/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSampler struct {
	counts []int
}

func (f fakeSampler) NumPages() int { return len(f.counts) }

func (f fakeSampler) PageCharCount(page int) int { return f.counts[page-1] }

func TestClassifyPDF(t *testing.T) {
	tests := []struct {
		name      string
		counts    []int
		wantKind  types.DocumentKind
		wantRatio float64
	}{
		{"全部有文本层", []int{400, 300, 200}, types.DocumentKindVector, 1},
		{"多数有文本层", []int{400, 300, 10}, types.DocumentKindVector, 2.0 / 3.0},
		{"少数有文本层", []int{400, 0, 0}, types.DocumentKindScanned, 1.0 / 3.0},
		{"恰好50个字符不算", []int{50, 50}, types.DocumentKindScanned, 0},
		{"一半不超过阈值", []int{51, 0}, types.DocumentKindScanned, 0.5},
		{"只抽样前三页", []int{0, 0, 0, 500, 500, 500}, types.DocumentKindScanned, 0},
		{"没有页面", nil, types.DocumentKindScanned, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyPDF(fakeSampler{counts: tt.counts})
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.InDelta(t, tt.wantRatio, got.Confidence, 1e-9)
			assert.LessOrEqual(t, got.SampledPages, ClassifierSamplePages)
		})
	}
}

func TestClassifyGeneratedPDF(t *testing.T) {
	data := testutil.BuildPDF([][]testutil.PDFLine{testutil.ResumePage()})

	doc, err := OpenPDF("u1", data)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.NumPages())
	assert.Greater(t, doc.PageCharCount(1), ClassifierMinPageChars)

	class := ClassifyPDF(doc)
	assert.Equal(t, types.DocumentKindVector, class.Kind)

	empty, err := OpenPDF("u2", testutil.BuildPDF([][]testutil.PDFLine{{}}))
	require.NoError(t, err)
	assert.Equal(t, types.DocumentKindScanned, ClassifyPDF(empty).Kind)
}

func TestOpenPDFUnreadable(t *testing.T) {
	_, err := OpenPDF("u1", []byte("not a pdf at all"))
	require.ErrorIs(t, err, types.ErrDocumentUnreadable)

	_, err = OpenPDF("u1", nil)
	require.ErrorIs(t, err, types.ErrDocumentUnreadable)
}
