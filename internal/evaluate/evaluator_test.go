package evaluate

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchforge/catalog-ranker/internal/inference"
	"github.com/searchforge/catalog-ranker/internal/models"
)

type stubGenerator struct {
	output string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.output, s.err
}

func (s *stubGenerator) Model() string { return "test-model" }

func testEntries() []models.ProductEntry {
	return []models.ProductEntry{
		{Title: "Hydraulic Pump A", PartNumber: "HP-100", Price: "$120.00", Quantity: "0", URL: "https://shop.example.com/p/hp-100"},
		{Title: "Hydraulic Pump B", PartNumber: "HP-200", Price: "$140.00", Quantity: "12", URL: "https://shop.example.com/p/hp-200"},
	}
}

func TestEvaluateSuccessWithRerank(t *testing.T) {
	gen := &stubGenerator{output: `Here is my assessment:
{
  "evaluations": [
    {"result_index": 0, "relevance": "High", "inventory_status": "Out of Stock", "inventory_quantity": "0"},
    {"result_index": 1, "relevance": "High", "inventory_status": "In Stock", "inventory_quantity": "12"}
  ],
  "ranking_summary": "Both pumps match; second has stock."
}`}

	ev := New(gen, true, slog.Default())
	result := ev.Evaluate(context.Background(), "hydraulic pump", "", testEntries())

	require.Equal(t, models.StatusSuccess, result.Status)
	assert.Equal(t, "test-model", result.Model)
	assert.Equal(t, "Both pumps match; second has stock.", result.RankingSummary)

	// Both High relevance, so the in-stock entry is ranked ahead.
	require.Len(t, result.Evaluations, 2)
	assert.Equal(t, 1, result.Evaluations[0].ResultIndex)
	assert.Equal(t, 0, result.Evaluations[1].ResultIndex)
}

func TestEvaluateTransportFailure(t *testing.T) {
	gen := &stubGenerator{err: &inference.TransportError{Attempts: 3, Last: context.DeadlineExceeded}}

	ev := New(gen, true, slog.Default())
	result := ev.Evaluate(context.Background(), "hydraulic pump", "", testEntries())

	assert.Equal(t, models.StatusTransportFailed, result.Status)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Evaluations)
}

func TestEvaluateNoPayload(t *testing.T) {
	gen := &stubGenerator{output: "I could not evaluate these results, sorry."}

	ev := New(gen, true, slog.Default())
	result := ev.Evaluate(context.Background(), "hydraulic pump", "", testEntries())

	assert.Equal(t, models.StatusNoEvaluation, result.Status)
	assert.NotEmpty(t, result.Error)
}

func TestEvaluateDropsInvalidIndexes(t *testing.T) {
	gen := &stubGenerator{output: `{
  "evaluations": [
    {"result_index": 0, "relevance": "High"},
    {"result_index": 0, "relevance": "Low"},
    {"result_index": 7, "relevance": "Medium"},
    {"result_index": -1, "relevance": "Medium"}
  ]
}`}

	ev := New(gen, false, slog.Default())
	result := ev.Evaluate(context.Background(), "gasket", "", testEntries())

	require.Equal(t, models.StatusSuccess, result.Status)
	require.Len(t, result.Evaluations, 1)
	assert.Equal(t, 0, result.Evaluations[0].ResultIndex)
}

func TestEvaluateShapeOverride(t *testing.T) {
	gen := &stubGenerator{output: `{"evaluations": []}`}
	ev := New(gen, false, slog.Default())

	result := ev.Evaluate(context.Background(), "hydraulic pump seal", "coded_identifier", testEntries())
	assert.Equal(t, "coded_identifier", result.Shape)

	// Unknown override falls back to classification.
	result = ev.Evaluate(context.Background(), "hydraulic pump seal", "fancy", testEntries())
	assert.Equal(t, "multi_term", result.Shape)
}
