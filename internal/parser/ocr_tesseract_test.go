package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRunner 模拟外部命令
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	called := m.Called(name, args)
	var out, errb []byte
	if v := called.Get(0); v != nil {
		out = v.([]byte)
	}
	if v := called.Get(1); v != nil {
		errb = v.([]byte)
	}
	return out, errb, called.Error(2)
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t1240\t1754\t-1\t\n" +
	"2\t1\t1\t0\t0\t0\t100\t80\t400\t40\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t100\t80\t150\t40\t96.5\tWork\n" +
	"5\t1\t1\t1\t1\t2\t260\t82\t240\t38\t93.5\tExperience\n" +
	"5\t1\t2\t1\t1\t1\t100\t200\t120\t20\t10\tnoise\n" +
	"5\t1\t2\t1\t2\t1\t100\t230\t120\t20\t-1\t\n" +
	"5\t1\t3\t1\t1\t1\t100\t300\t300\t20\t88\tPython\n"

func TestParseTesseractTSV(t *testing.T) {
	blocks, geom := ParseTesseractTSV(sampleTSV)

	assert.Equal(t, 1240.0, geom.Width)
	assert.Equal(t, 1754.0, geom.Height)
	require.Len(t, blocks, 3)

	assert.Equal(t, "Work Experience", blocks[0].Text)
	assert.InDelta(t, 0.95, blocks[0].Confidence, 1e-9)
	assert.Equal(t, 100.0, blocks[0].BBox.X1)
	assert.Equal(t, 80.0, blocks[0].BBox.Y1)
	assert.Equal(t, 500.0, blocks[0].BBox.X2)
	assert.Equal(t, 120.0, blocks[0].BBox.Y2)

	assert.Equal(t, "noise", blocks[1].Text)
	assert.InDelta(t, 0.10, blocks[1].Confidence, 1e-9)
	assert.Equal(t, "Python", blocks[2].Text)
}

func TestParseTesseractTSVWithoutHeader(t *testing.T) {
	blocks, _ := ParseTesseractTSV("garbage\nmore garbage")
	assert.Empty(t, blocks)

	blocks, _ = ParseTesseractTSV("")
	assert.Empty(t, blocks)
}

func TestTesseractRecognizeArgs(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "tesseract", []string{"/tmp/p.png", "stdout", "-l", "eng+deu", "--psm", "3", "--oem", "1", "tsv"}).
		Return([]byte(sampleTSV), nil, nil).Once()

	ocr := NewTesseractOCR(TesseractConfig{Lang: "eng+deu", PSM: 3, OEM: 1}, runner)
	blocks, geom, err := ocr.Recognize(context.Background(), "/tmp/p.png")
	require.NoError(t, err)
	assert.Len(t, blocks, 3)
	assert.Equal(t, 1240.0, geom.Width)
	runner.AssertExpectations(t)
}

func TestTesseractRecognizeFailure(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", "tesseract", mock.Anything).
		Return(nil, []byte("Error opening data file"), errors.New("exit status 1")).Once()

	ocr := NewTesseractOCR(TesseractConfig{}, runner)
	_, _, err := ocr.Recognize(context.Background(), "/tmp/p.png")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Error opening data file"))
}
