package parser

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resume-engine/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTikaPDFExtractor(t *testing.T) {
	_, err := NewTikaPDFExtractor("  ")
	require.Error(t, err)

	e, err := NewTikaPDFExtractor("http://localhost:9998/", WithTimeout(5*time.Second), WithAnnotations(false))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9998", e.serverURL)
	assert.Equal(t, 5*time.Second, e.client.Timeout)
	assert.False(t, e.annotations)
}

func TestTikaExtractText(t *testing.T) {
	var gotHeaders http.Header
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		gotHeaders = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = w.Write([]byte("\n  Jane Doe\nSkills: Go, Python\n\n"))
	}))
	defer server.Close()

	e, err := NewTikaPDFExtractor(server.URL, WithAnnotations(false), WithTikaLogger(logger.Nop()))
	require.NoError(t, err)

	text, err := e.ExtractText(context.Background(), []byte("%PDF-1.4 fake"), "resume.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills: Go, Python", text)
	assert.Equal(t, "%PDF-1.4 fake", gotBody)
	assert.Equal(t, "application/pdf", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "text/plain", gotHeaders.Get("Accept"))
	assert.Equal(t, "resume.pdf", gotHeaders.Get("X-Tika-Resource-Name"))
	assert.Equal(t, "false", gotHeaders.Get("X-Tika-PDFExtractAnnotationText"))
}

func TestTikaExtractTextServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "parse failure", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	e, err := NewTikaPDFExtractor(server.URL, WithTikaLogger(logger.Nop()))
	require.NoError(t, err)

	_, err = e.ExtractText(context.Background(), []byte("x"), "bad.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "parse failure")
}
