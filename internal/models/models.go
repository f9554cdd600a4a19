package models

import (
	"time"
)

// FieldMissing is the placeholder for any product field that could not be
// extracted. Entries where both Title and URL carry it are dropped.
const FieldMissing = "N/A"

// ProductEntry is one extracted listing from a search results page.
// Immutable after extraction.
type ProductEntry struct {
	Title      string `json:"title"`
	PartNumber string `json:"part_number"`
	Price      string `json:"price"`
	Quantity   string `json:"quantity"`
	URL        string `json:"url"`
}

// NewProductEntry returns an entry with every field unset.
func NewProductEntry() ProductEntry {
	return ProductEntry{
		Title:      FieldMissing,
		PartNumber: FieldMissing,
		Price:      FieldMissing,
		Quantity:   FieldMissing,
		URL:        FieldMissing,
	}
}

// Resolved reports whether the entry carries enough identity to be kept.
func (p ProductEntry) Resolved() bool {
	return p.Title != FieldMissing || p.URL != FieldMissing
}

// EvaluationRecord is the model's judgment of a single search result,
// linked to its ProductEntry by ResultIndex (0-based position in the
// pre-rerank entry sequence).
type EvaluationRecord struct {
	ResultIndex       int    `json:"result_index"`
	Relevance         string `json:"relevance"`
	InventoryStatus   string `json:"inventory_status"`
	InventoryQuantity string `json:"inventory_quantity"`
	Justification     string `json:"justification"`
	InventoryImpact   string `json:"inventory_impact"`

	// Derived during reranking, not supplied by the model.
	ParsedQuantity        int    `json:"parsed_quantity"`
	InventoryStatusParsed string `json:"inventory_status_parsed"`
}

// EvaluationStatus classifies the outcome of one evaluation round-trip.
type EvaluationStatus string

const (
	// StatusSuccess means the model returned a parseable evaluation payload.
	StatusSuccess EvaluationStatus = "success"
	// StatusTransportFailed means the inference endpoint stayed unreachable
	// or non-200 through all retry attempts.
	StatusTransportFailed EvaluationStatus = "transport_failed"
	// StatusNoEvaluation means the endpoint answered but no evaluation
	// payload could be recovered from the output. Indicates a prompting or
	// model problem, not connectivity.
	StatusNoEvaluation EvaluationStatus = "no_evaluation"
)

// QueryEvaluation is the full outcome of evaluating one query's results.
type QueryEvaluation struct {
	Query          string             `json:"query"`
	Shape          string             `json:"search_type"`
	Model          string             `json:"model_used"`
	Status         EvaluationStatus   `json:"status"`
	Evaluations    []EvaluationRecord `json:"evaluations"`
	RankingSummary string             `json:"ranking_summary,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// QueryOutcome classifies how a scrape round-trip for one query ended.
type QueryOutcome string

const (
	// OutcomeEnumerated means result cards were found and extracted.
	OutcomeEnumerated QueryOutcome = "enumerated"
	// OutcomeNoResults means the site reported a legitimate zero-match.
	OutcomeNoResults QueryOutcome = "no_results"
	// OutcomeFailed means a stage of the search round-trip failed.
	OutcomeFailed QueryOutcome = "failed"
)

// QueryResult bundles everything produced for a single query in a batch.
type QueryResult struct {
	Query     string           `json:"query"`
	Outcome   QueryOutcome     `json:"outcome"`
	Entries   []ProductEntry   `json:"scraped_results"`
	Evaluated *QueryEvaluation `json:"evaluation,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
