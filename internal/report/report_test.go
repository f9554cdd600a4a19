package report

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchforge/catalog-ranker/internal/models"
)

func successEvaluation() *models.QueryEvaluation {
	return &models.QueryEvaluation{
		Query:  "brake pad",
		Shape:  "multi_term",
		Model:  "test-model",
		Status: models.StatusSuccess,
		Evaluations: []models.EvaluationRecord{
			{ResultIndex: 1, Relevance: "High", ParsedQuantity: 8, InventoryStatusParsed: "Available"},
			{ResultIndex: 0, Relevance: "High", ParsedQuantity: 0, InventoryStatusParsed: "Out of Stock"},
			{ResultIndex: 2, Relevance: "Low", ParsedQuantity: 3, InventoryStatusParsed: "Low Stock"},
		},
	}
}

func reportEntries() []models.ProductEntry {
	return []models.ProductEntry{
		{Title: "Brake Pad Set Front", PartNumber: "BP-01", Quantity: "0"},
		{Title: "Brake Pad Set Rear", PartNumber: "BP-02", Quantity: "8"},
		{Title: "Brake Fluid", PartNumber: "BF-99", Quantity: "3"},
	}
}

func TestAnalyzeInventoryImpactDetectsReorder(t *testing.T) {
	analysis := AnalyzeInventoryImpact(successEvaluation(), reportEntries())

	assert.True(t, analysis.ChangesDetected)
	require.Len(t, analysis.RankingChanges, 1)
	assert.Equal(t, "High", analysis.RankingChanges[0].RelevanceTier)
	assert.Equal(t, []int{0, 1}, analysis.RankingChanges[0].OriginalOrder)
	assert.Equal(t, []int{1, 0}, analysis.RankingChanges[0].NewOrder)

	assert.Equal(t, 3, analysis.Summary.TotalItems)
	assert.Equal(t, 2, analysis.Summary.InStockItems)
	assert.Equal(t, 1, analysis.Summary.OutOfStockItems)
	assert.InDelta(t, 0.667, analysis.Summary.StockAvailabilityRatio, 0.001)
	assert.NotEmpty(t, analysis.Recommendations)
}

func TestAnalyzeInventoryImpactSkipsFailedEvaluation(t *testing.T) {
	eval := &models.QueryEvaluation{Status: models.StatusTransportFailed}
	analysis := AnalyzeInventoryImpact(eval, nil)

	assert.False(t, analysis.ChangesDetected)
	assert.Empty(t, analysis.RankingChanges)
	assert.Zero(t, analysis.Summary.TotalItems)
}

func TestBuildBusinessSummarySuccess(t *testing.T) {
	eval := successEvaluation()
	analysis := AnalyzeInventoryImpact(eval, reportEntries())

	summary := BuildBusinessSummary("brake pad", "PartsHub", eval, reportEntries(), analysis)

	assert.Contains(t, summary.RelevancyAssessment, "'brake pad' on PartsHub")
	assert.Contains(t, summary.RelevancyAssessment, "3 results")
	assert.Contains(t, summary.RelevancyAssessment, "2 high, 0 medium, 1 low")

	// One out-of-stock item triggers a restock recommendation, and the
	// detected reorder endorses inventory-aware ranking.
	require.NotEmpty(t, summary.Recommendations)
	assert.Contains(t, summary.Recommendations[0], "Restock 1 out-of-stock")
	assert.Contains(t, summary.KeyInsights[0], "BP-02")
}

func TestBuildBusinessSummaryFailedQuery(t *testing.T) {
	eval := &models.QueryEvaluation{Status: models.StatusNoEvaluation}
	summary := BuildBusinessSummary("obscure widget", "PartsHub", eval, nil, nil)

	assert.Contains(t, summary.RelevancyAssessment, "failed to return evaluable results")
	require.Len(t, summary.ActionItems, 1)
	assert.Contains(t, summary.ActionItems[0], "Investigate")
}

func TestBuildOverallSummary(t *testing.T) {
	reports := []QueryReport{
		{Query: "brake pad", Evaluation: successEvaluation(), Entries: reportEntries()},
		{Query: "ghost part", Evaluation: &models.QueryEvaluation{Status: models.StatusTransportFailed}},
	}

	overall := BuildOverallSummary("PartsHub", "https://shop.example.com", reports, RunSettings{
		InventoryRankingEnabled: true,
		ModelUsed:               "test-model",
		MaxResultsPerQuery:      5,
	})

	assert.Equal(t, 2, overall.TotalQueries)
	assert.Equal(t, 1, overall.SuccessfulQueries)
	assert.Equal(t, 1, overall.FailedQueries)
	// High=3, High=3, Low=1 over 3 products.
	assert.InDelta(t, 2.33, overall.AverageRelevancyScore, 0.001)
	assert.Equal(t, 3, overall.InventoryPerformance.TotalProductsAnalyzed)
	assert.InDelta(t, 66.7, overall.InventoryPerformance.InStockPercentage, 0.001)
	assert.NotEmpty(t, overall.TopRecommendations)
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	final := &FinalReport{
		SearchResults: []QueryReport{
			{Query: "brake pad", Status: "success", Entries: reportEntries(), Evaluation: successEvaluation(), Timestamp: time.Now()},
		},
		OverallSummary: &OverallSummary{SiteName: "PartsHub"},
		Configuration:  RunConfiguration{SiteName: "PartsHub", GeneratedAt: time.Now()},
	}

	writer := NewWriter(slog.Default())
	require.NoError(t, writer.WriteFinal(path, final))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded FinalReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.SearchResults, 1)
	assert.Equal(t, "brake pad", decoded.SearchResults[0].Query)
	assert.Equal(t, "PartsHub", decoded.OverallSummary.SiteName)
}
