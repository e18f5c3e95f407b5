package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"resume-engine/internal/processor"
	"resume-engine/internal/storage"
	"resume-engine/internal/testutil"
	"resume-engine/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *processor.Engine {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return processor.CreateEngine([]processor.ComponentOpt{processor.WithcompStore(store)}, nil)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadJobs(t *testing.T) {
	arr := writeFile(t, "jobs.json", []byte(`[{"id":"a","title":"Go Developer","description":"Go and Kubernetes"}]`))
	jobs, err := readJobs(arr)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].ID)

	wrapped := writeFile(t, "wrapped.json", []byte(`{"jobs":[{"id":"b","title":"Data"},{"id":"c","title":"Ops"}]}`))
	jobs, err = readJobs(wrapped)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	_, err = readJobs(writeFile(t, "bad.json", []byte(`{"positions":[]}`)))
	assert.Error(t, err)

	_, err = readJobs(writeFile(t, "broken.json", []byte(`not json`)))
	assert.Error(t, err)
}

func TestResolveUpload(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	id, err := resolveUpload(ctx, engine, options{uploadID: "given"})
	require.NoError(t, err)
	assert.Equal(t, "given", id)

	_, err = resolveUpload(ctx, engine, options{})
	assert.Error(t, err)

	_, err = resolveUpload(ctx, engine, options{filePath: writeFile(t, "resume.docx", []byte("x"))})
	assert.ErrorIs(t, err, types.ErrUnsupportedMediaType)

	pdf := writeFile(t, "resume.pdf", testutil.BuildPDF([][]testutil.PDFLine{testutil.ResumePage()}))
	id, err = resolveUpload(ctx, engine, options{filePath: pdf})
	require.NoError(t, err)

	doc, err := engine.Store().Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.MediaTypePDF, doc.MediaType)
}

func TestDispatchCommands(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	pdf := writeFile(t, "resume.pdf", testutil.BuildPDF([][]testutil.PDFLine{testutil.ResumePage()}))
	opts := options{filePath: pdf}

	out, err := dispatch(ctx, engine, "layout", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, out.(*types.LayoutMetrics).PageCount)

	out, err = dispatch(ctx, engine, "parse", opts)
	require.NoError(t, err)
	assert.True(t, out.(*types.ParsedResume).HasSections())

	out, err = dispatch(ctx, engine, "skills", options{text: "SKILLS: Python, React, Docker", topN: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Python", "React"}, out)

	out, err = dispatch(ctx, engine, "quality", opts)
	require.NoError(t, err)
	assert.Equal(t, 50, out.(*types.QualityReport).Scores["overall"])

	jobs := writeFile(t, "jobs.json", []byte(`[{"id":"k8s","title":"Platform Engineer","description":"Kubernetes and Go"}]`))
	out, err = dispatch(ctx, engine, "match", options{filePath: pdf, jobsPath: jobs})
	require.NoError(t, err)
	results := out.([]types.MatchResult)
	require.Len(t, results, 1)
	assert.Equal(t, "k8s", results[0].JobID)

	_, err = dispatch(ctx, engine, "match", opts)
	assert.Error(t, err)

	_, err = dispatch(ctx, engine, "unknown", opts)
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]string{"a": "<b>"}, false))
	assert.Equal(t, "{\"a\":\"<b>\"}\n", buf.String())

	buf.Reset()
	require.NoError(t, writeJSON(&buf, []string{"x"}, true))
	var got []string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []string{"x"}, got)
	assert.Contains(t, buf.String(), "\n  ")
}
