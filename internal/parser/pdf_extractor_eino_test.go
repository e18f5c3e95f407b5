package parser

import (
	"context"
	"testing"
	"time"

	"resume-engine/internal/logger"
	"resume-engine/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEinoPDFTextExtractor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err, "创建PDF提取器不应返回错误")
	require.NotNil(t, extractor.parser)
	assert.Equal(t, 30*time.Second, extractor.timeout)

	custom, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(logger.Nop()), WithEinoTimeout(2*time.Second), WithEinoTimeout(0))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, custom.timeout, "非正数超时应被忽略")
}

func TestEinoExtractText(t *testing.T) {
	ctx := context.Background()
	extractor, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(logger.Nop()))
	require.NoError(t, err)

	data := testutil.BuildPDF([][]testutil.PDFLine{testutil.ResumePage()})
	text, err := extractor.ExtractText(ctx, data, "resume.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "Kubernetes")
}

func TestEinoExtractTextInvalidPDF(t *testing.T) {
	ctx := context.Background()
	extractor, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(logger.Nop()))
	require.NoError(t, err)

	_, err = extractor.ExtractText(ctx, []byte("this is not a pdf"), "broken.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.pdf")
}
