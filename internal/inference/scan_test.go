package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBraceScannerExtractsPayloadFromProse(t *testing.T) {
	raw := `Sure! Here is my evaluation of the results you provided:

{
  "evaluations": [
    {
      "result_index": 0,
      "relevance": "High",
      "inventory_status": "Available",
      "inventory_quantity": "500",
      "justification": "Exact part number match.",
      "inventory_impact": "None"
    },
  ],
  "ranking_summary": "Inventory did not change the order.",
}

Let me know if you need anything else!`

	payload, err := BraceScanner{}.Scan(raw)
	require.NoError(t, err)
	require.Len(t, payload.Evaluations, 1)
	assert.Equal(t, 0, payload.Evaluations[0].ResultIndex)
	assert.Equal(t, "High", payload.Evaluations[0].Relevance)
	assert.Equal(t, "Inventory did not change the order.", payload.RankingSummary)
}

func TestBraceScannerHandlesBracesInsideStrings(t *testing.T) {
	raw := `{"evaluations": [{"result_index": 0, "relevance": "Low", "justification": "title contains {odd} markup"}], "ranking_summary": "ok"}`

	payload, err := BraceScanner{}.Scan(raw)
	require.NoError(t, err)
	require.Len(t, payload.Evaluations, 1)
	assert.Equal(t, "title contains {odd} markup", payload.Evaluations[0].Justification)
}

func TestBraceScannerEmptyEvaluationsIsStillSuccess(t *testing.T) {
	raw := `{"evaluations": [], "ranking_summary": "nothing to rank"}`

	payload, err := BraceScanner{}.Scan(raw)
	require.NoError(t, err)
	assert.Empty(t, payload.Evaluations)
}

func TestBraceScannerNoPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain prose", "I could not evaluate these results."},
		{"json without evaluations key", `{"results": [1, 2, 3]}`},
		{"unbalanced object", `{"evaluations": [`},
		{"empty input", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := BraceScanner{}.Scan(tt.raw)
			assert.Nil(t, payload)
			assert.ErrorIs(t, err, ErrNoEvaluation)
		})
	}
}
