package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/searchforge/catalog-ranker/internal/config"
	"github.com/searchforge/catalog-ranker/internal/models"
	"github.com/searchforge/catalog-ranker/internal/ratelimit"
	"github.com/searchforge/catalog-ranker/internal/report"
)

type stubSearcher struct {
	results map[string]searchResult
}

type searchResult struct {
	entries []models.ProductEntry
	outcome models.QueryOutcome
	err     error
}

func (s *stubSearcher) Run(_ context.Context, query string) ([]models.ProductEntry, models.QueryOutcome, error) {
	res, ok := s.results[query]
	if !ok {
		return nil, models.OutcomeFailed, errors.New("unexpected query")
	}
	return res.entries, res.outcome, res.err
}

type stubEvaluator struct{}

func (stubEvaluator) Evaluate(_ context.Context, query, _ string, entries []models.ProductEntry) *models.QueryEvaluation {
	records := make([]models.EvaluationRecord, len(entries))
	for i := range entries {
		records[i] = models.EvaluationRecord{ResultIndex: i, Relevance: "High", ParsedQuantity: 5, InventoryStatusParsed: "Available"}
	}
	return &models.QueryEvaluation{
		Query:       query,
		Shape:       "multi_term",
		Model:       "test-model",
		Status:      models.StatusSuccess,
		Evaluations: records,
	}
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, siteKey, siteName, siteURL, model string) (string, error) {
	args := m.Called(ctx, siteKey, siteName, siteURL, model)
	return args.String(0), args.Error(1)
}

func (m *mockStore) SaveQueryResult(ctx context.Context, runID string, result models.QueryResult) error {
	args := m.Called(ctx, runID, result.Query)
	return args.Error(0)
}

func (m *mockStore) FinishRun(ctx context.Context, runID string, total, successful, failed int) error {
	args := m.Called(ctx, runID, total, successful, failed)
	return args.Error(0)
}

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()

	return Options{
		SiteKey: "partshub",
		Site: config.SiteConfig{
			SiteName:  "PartsHub",
			TargetURL: "https://shop.example.com",
			SearchTasks: []config.SearchTask{
				{Query: "brake pad"},
				{Query: "unobtainium gasket"},
				{Query: "flux capacitor"},
			},
			Scraping: config.ScrapingConfig{MaxResultsPerQuery: 5},
			Output: config.OutputConfig{
				ReportFile: filepath.Join(dir, "report.json"),
			},
		},
		Inference:  config.InferenceConfig{Model: "test-model"},
		Evaluation: config.EvaluationConfig{ApplyPostRanking: true, DetailedAnalysis: true},
	}
}

func newTestSearcher() *stubSearcher {
	return &stubSearcher{results: map[string]searchResult{
		"brake pad": {
			entries: []models.ProductEntry{{Title: "Brake Pad", PartNumber: "BP-01", Quantity: "5"}},
			outcome: models.OutcomeEnumerated,
		},
		"unobtainium gasket": {outcome: models.OutcomeNoResults},
		"flux capacitor":     {outcome: models.OutcomeFailed, err: errors.New("no result cards matched")},
	}}
}

func TestPipelineRunIsolatesFailures(t *testing.T) {
	opts := testOptions(t)
	p := New(newTestSearcher(), stubEvaluator{}, report.NewWriter(slog.Default()), opts, slog.Default())

	final, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, final.SearchResults, 3)

	assert.Equal(t, "success", final.SearchResults[0].Status)
	assert.Equal(t, "no_results", final.SearchResults[1].Status)
	assert.Equal(t, "scraping_failed", final.SearchResults[2].Status)

	// One query evaluated, two failed to produce an evaluation.
	assert.Equal(t, 1, final.OverallSummary.SuccessfulQueries)
	assert.Equal(t, 2, final.OverallSummary.FailedQueries)

	// The successful query carries its detailed analysis.
	assert.NotNil(t, final.SearchResults[0].InventoryAnalysis)
	assert.NotNil(t, final.SearchResults[0].BusinessSummary)
}

func TestPipelineRunPersistsQueries(t *testing.T) {
	opts := testOptions(t)

	store := new(mockStore)
	store.On("CreateRun", mock.Anything, "partshub", "PartsHub", "https://shop.example.com", "test-model").
		Return("run-1", nil)
	store.On("SaveQueryResult", mock.Anything, "run-1", mock.Anything).Return(nil).Times(3)
	store.On("FinishRun", mock.Anything, "run-1", 3, 1, 2).Return(nil)

	p := New(newTestSearcher(), stubEvaluator{}, report.NewWriter(slog.Default()), opts, slog.Default()).
		WithStore(store)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestPipelineRunSurvivesStoreFailure(t *testing.T) {
	opts := testOptions(t)

	store := new(mockStore)
	store.On("CreateRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("connection refused"))

	p := New(newTestSearcher(), stubEvaluator{}, report.NewWriter(slog.Default()), opts, slog.Default()).
		WithStore(store)

	final, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, final.SearchResults, 3)
}

type spyPacer struct {
	waits     int
	successes int
	errors    int
}

func (s *spyPacer) Wait(context.Context) error { s.waits++; return nil }
func (s *spyPacer) RecordSuccess()             { s.successes++ }
func (s *spyPacer) RecordError()               { s.errors++ }

func TestPipelineDefaultsToAdaptivePacer(t *testing.T) {
	opts := testOptions(t)
	p := New(newTestSearcher(), stubEvaluator{}, report.NewWriter(slog.Default()), opts, slog.Default())

	_, ok := p.pacer.(*ratelimit.AdaptivePacer)
	assert.True(t, ok)
}

func TestPipelineRunFeedsPacerOutcomes(t *testing.T) {
	opts := testOptions(t)
	pacer := &spyPacer{}

	p := New(newTestSearcher(), stubEvaluator{}, report.NewWriter(slog.Default()), opts, slog.Default()).
		WithPacer(pacer)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, pacer.waits)
	// The evaluated query and the legitimate zero-match count as
	// successes; only the broken round-trip is an error.
	assert.Equal(t, 2, pacer.successes)
	assert.Equal(t, 1, pacer.errors)
}

type transportFailedEvaluator struct{}

func (transportFailedEvaluator) Evaluate(_ context.Context, query, _ string, _ []models.ProductEntry) *models.QueryEvaluation {
	return &models.QueryEvaluation{
		Query:  query,
		Shape:  "multi_term",
		Status: models.StatusTransportFailed,
		Error:  "inference failed after 3 attempts",
	}
}

func TestPipelineRunCountsTransportFailureAsPacerError(t *testing.T) {
	opts := testOptions(t)
	pacer := &spyPacer{}

	p := New(newTestSearcher(), transportFailedEvaluator{}, report.NewWriter(slog.Default()), opts, slog.Default()).
		WithPacer(pacer)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	// brake pad reaches evaluation and fails transport, flux capacitor
	// fails scraping; only the zero-match query counts as success.
	assert.Equal(t, 1, pacer.successes)
	assert.Equal(t, 2, pacer.errors)
}

func TestPipelineRunStopsOnCancellation(t *testing.T) {
	opts := testOptions(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(newTestSearcher(), stubEvaluator{}, report.NewWriter(slog.Default()), opts, slog.Default())

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
