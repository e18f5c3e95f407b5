package parser

import (
	"strings"
	"testing"

	"resume-engine/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFDocumentPageBlocks(t *testing.T) {
	data := testutil.BuildPDF([][]testutil.PDFLine{testutil.ResumePage()})
	doc, err := OpenPDF("u1", data)
	require.NoError(t, err)

	geom, blocks, err := doc.Page(1)
	require.NoError(t, err)

	// MediaBox 继承自 Pages 节点
	assert.Equal(t, 612.0, geom.Width)
	assert.Equal(t, 792.0, geom.Height)
	require.NotEmpty(t, blocks)

	var texts []string
	for _, b := range blocks {
		texts = append(texts, b.Text)
		assert.Equal(t, 1.0, b.Confidence)
		assert.Equal(t, 1, b.Page)
		assert.GreaterOrEqual(t, b.BBox.Y1, 0.0)
		assert.LessOrEqual(t, b.BBox.Y2, geom.Height)
		assert.LessOrEqual(t, b.BBox.X1, b.BBox.X2)
	}
	joined := strings.Join(texts, "\n")
	assert.Contains(t, joined, "Work Experience")
	assert.Contains(t, joined, "Python, Go, Docker, Kubernetes, PostgreSQL")

	// 最上面的行排在最前，坐标转换为自上而下
	assert.Equal(t, "Jane Doe", blocks[0].Text)
	assert.Equal(t, 20.0, blocks[0].FontSize)
	assert.InDelta(t, 792-740, blocks[0].BBox.Y2, 0.01)
}

func TestPDFDocumentMissingPage(t *testing.T) {
	doc, err := OpenPDF("u1", testutil.BuildPDF([][]testutil.PDFLine{testutil.ResumePage()}))
	require.NoError(t, err)

	_, _, err = doc.Page(5)
	require.Error(t, err)

	pages, blocks := doc.Pages()
	assert.Len(t, pages, 1)
	assert.NotEmpty(t, blocks)
}
