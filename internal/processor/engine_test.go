package processor

import (
	"context"
	"errors"
	"testing"

	"resume-engine/internal/config"
	"resume-engine/internal/parser"
	"resume-engine/internal/storage"
	"resume-engine/internal/testutil"
	"resume-engine/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func putDocument(t *testing.T, store DocumentStore, name string, data []byte) string {
	t.Helper()
	id, err := store.Put(context.Background(), name, data)
	require.NoError(t, err)
	return id
}

func TestAnalyzeLayoutVectorPDF(t *testing.T) {
	store := newLocalStore(t)
	id := putDocument(t, store, "resume.pdf", testutil.BuildPDF([][]testutil.PDFLine{testutil.ResumePage()}))
	engine := CreateEngine([]ComponentOpt{WithcompStore(store)}, nil)

	m, err := engine.AnalyzeLayout(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.TierHigh, m.ConfidenceTier)
	assert.Equal(t, types.DocumentKindVector, m.DocumentKind)
	assert.Equal(t, 1, m.PageCount)
	assert.Equal(t, 1, m.ColumnCount)
	assert.NotEmpty(t, m.HeaderCandidates)
}

func TestAnalyzeLayoutUnreadablePropagates(t *testing.T) {
	store := newLocalStore(t)
	id := putDocument(t, store, "broken.pdf", []byte("%PDF-garbage"))
	engine := CreateEngine([]ComponentOpt{WithcompStore(store)}, nil)

	_, err := engine.AnalyzeLayout(context.Background(), id)
	require.ErrorIs(t, err, types.ErrDocumentUnreadable)
}

func TestAnalyzeLayoutExtractionFailureIsDegraded(t *testing.T) {
	store := newLocalStore(t)
	// 两页都没有文本层，且没有配置OCR
	id := putDocument(t, store, "scan.pdf", testutil.BuildPDF([][]testutil.PDFLine{{}, {}}))
	engine := CreateEngine([]ComponentOpt{WithcompStore(store)}, nil)

	m, err := engine.AnalyzeLayout(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.TierNone, m.ConfidenceTier)
	assert.Equal(t, 2, m.PageCount)
	assert.Equal(t, 1, m.ColumnCount)
	assert.Empty(t, m.HeaderCandidates)
	assert.NotNil(t, m.Sections)
}

func TestAnalyzeLayoutNotFound(t *testing.T) {
	engine := CreateEngine([]ComponentOpt{WithcompStore(newLocalStore(t))}, nil)
	_, err := engine.AnalyzeLayout(context.Background(), "missing")
	require.ErrorIs(t, err, types.ErrDocumentNotFound)
}

func TestParse(t *testing.T) {
	store := newLocalStore(t)
	id := putDocument(t, store, "resume.pdf", testutil.BuildPDF([][]testutil.PDFLine{testutil.ResumePage()}))
	engine := CreateEngine([]ComponentOpt{WithcompStore(store)}, []SettingOpt{WithsetKeywordsTopN(5)})

	parsed, err := engine.Parse(context.Background(), id)
	require.NoError(t, err)

	for _, key := range types.AllSectionKeys {
		assert.Contains(t, parsed.Sections, key)
	}
	assert.Contains(t, parsed.Section(types.SectionExperience), "Senior Engineer")
	assert.Contains(t, parsed.Section(types.SectionSkills), "PostgreSQL")
	assert.Contains(t, parsed.Section(types.SectionEducation), "Computer Science")
	assert.Len(t, parsed.Keywords, 5)
	assert.Contains(t, parsed.FullText, "Jane Doe")
}

func TestParseWithoutStore(t *testing.T) {
	engine := NewEngine(nil, nil)
	_, err := engine.Parse(context.Background(), "any")
	require.Error(t, err)

	parsed := engine.ParseText("SKILLS: Python, React")
	assert.Equal(t, "Python, React", parsed.Section(types.SectionSkills))
}

func TestExtractSkills(t *testing.T) {
	engine := NewEngine(nil, nil)

	got := engine.ExtractSkills("SKILLS: Python, React, Docker", 0)
	assert.Equal(t, []string{"Python", "React", "Docker"}, got)

	assert.Len(t, engine.ExtractSkills("SKILLS: Python, React, Docker", 2), 2)
	assert.Equal(t, []string{}, engine.ExtractSkills("", 0))

	// 截断按首次出现顺序，不按频次
	repeated := "Docker, Docker and more Docker.\nSKILLS: Python, React, Docker"
	assert.Equal(t, []string{"Python", "React"}, engine.ExtractSkills(repeated, 2))
}

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Evaluate(ctx context.Context, parsed *types.ParsedResume, layout *types.LayoutMetrics) *types.QualityReport {
	args := m.Called(ctx, parsed, layout)
	return args.Get(0).(*types.QualityReport)
}

func TestEvaluateQualityDelegates(t *testing.T) {
	report := &types.QualityReport{Scores: map[string]int{"overall": 70}}
	parsed := &types.ParsedResume{FullText: "text"}
	layout := &types.LayoutMetrics{PageCount: 1}

	scorer := &mockScorer{}
	scorer.On("Evaluate", mock.Anything, parsed, layout).Return(report).Once()

	engine := CreateEngine([]ComponentOpt{WithcompQuality(scorer)}, nil)
	got, err := engine.EvaluateQuality(context.Background(), parsed, layout)
	require.NoError(t, err)
	assert.Same(t, report, got)
	scorer.AssertExpectations(t)

	_, err = engine.EvaluateQuality(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestEvaluateQualityDefaultsWithoutService(t *testing.T) {
	engine := NewEngine(nil, nil)
	report, err := engine.EvaluateQuality(context.Background(), &types.ParsedResume{FullText: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, report.Scores["overall"])
	assert.Equal(t, 50, report.Scores["language"])
}

func TestMatchJobs(t *testing.T) {
	engine := NewEngine(nil, nil)
	parsed := engine.ParseText("SKILLS: Python, React, Docker")

	results, err := engine.MatchJobs(context.Background(), parsed, []types.JobPosting{
		{ID: "j1", Title: "Developer", Description: "We need a Python and React developer"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Subset(t, results[0].MatchingSkills, []string{"Python", "React"})
	assert.NotContains(t, results[0].MissingSkills, "Python")
	assert.NotContains(t, results[0].MissingSkills, "React")

	empty, err := engine.MatchJobs(context.Background(), parsed, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = engine.MatchJobs(context.Background(), parsed, []types.JobPosting{{Title: "no id"}})
	assert.Error(t, err)
}

func TestCloseRunsClosers(t *testing.T) {
	var calls int
	engine := CreateEngine([]ComponentOpt{
		WithcompCloser(func() error { calls++; return nil }),
		WithcompCloser(func() error { calls++; return errors.New("redis gone") }),
	}, nil)

	err := engine.Close()
	assert.EqualError(t, err, "redis gone")
	assert.Equal(t, 2, calls)
	assert.NoError(t, engine.Close())
}

func TestNewEngineFromConfigDegradesWithoutServices(t *testing.T) {
	cfg := config.Default()
	cfg.Store.LocalDir = t.TempDir()
	cfg.LLM.APIKey = ""
	cfg.Redis.Enabled = false

	engine, err := NewEngineFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer engine.Close()

	id := putDocument(t, engine.store, "resume.pdf", testutil.BuildPDF([][]testutil.PDFLine{testutil.ResumePage()}))
	parsed, err := engine.Parse(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, parsed.FullText, "Kubernetes")

	report, err := engine.EvaluateQuality(context.Background(), parsed, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, report.Scores["overall"])

	results, err := engine.MatchJobs(context.Background(), parsed, []types.JobPosting{
		{ID: "k8s", Title: "Platform Engineer", Description: "Kubernetes and Go experience required."},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].ExternalScore)
}

func TestNewEngineFromConfigRejectsUnknownStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Type = "ftp"
	_, err := NewEngineFromConfig(context.Background(), cfg)
	require.Error(t, err)

	_, err = NewEngineFromConfig(context.Background(), nil)
	require.Error(t, err)
}

func TestResilienceConfig(t *testing.T) {
	rc := resilienceConfig(config.ResilienceConfig{
		RetryMaxAttempts:    4,
		RetryInitialBackoff: "50ms",
		RetryMaxBackoff:     "not-a-duration",
		BreakerEnabled:      true,
	})
	assert.Equal(t, 4, rc.RetryMaxAttempts)
	assert.Equal(t, "50ms", rc.RetryInitialBackoff.String())
	assert.Equal(t, "2s", rc.RetryMaxBackoff.String())
	assert.True(t, rc.BreakerEnabled)
}

func TestBuildFlatTextExtractor(t *testing.T) {
	flat, err := buildFlatTextExtractor(context.Background(), config.TikaConfig{Type: "eino", Timeout: 5})
	require.NoError(t, err)
	assert.IsType(t, &parser.EinoPDFTextExtractor{}, flat)

	flat, err = buildFlatTextExtractor(context.Background(), config.TikaConfig{Type: "tika", ServerURL: "http://localhost:9998"})
	require.NoError(t, err)
	assert.IsType(t, &parser.TikaPDFExtractor{}, flat)

	_, err = buildFlatTextExtractor(context.Background(), config.TikaConfig{Type: "tika"})
	assert.Error(t, err)
}
