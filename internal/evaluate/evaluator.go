// Package evaluate runs the model evaluation round-trip for one query's
// extracted entries: prompt selection by query shape, inference with
// bounded retries, tolerant payload recovery, and the deterministic
// inventory-aware rerank.
package evaluate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/searchforge/catalog-ranker/internal/classify"
	"github.com/searchforge/catalog-ranker/internal/inference"
	"github.com/searchforge/catalog-ranker/internal/models"
	"github.com/searchforge/catalog-ranker/internal/rank"
)

// Generator produces model output for a prompt. Satisfied by
// *inference.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

type Evaluator struct {
	client           Generator
	scanner          inference.PayloadScanner
	applyPostRanking bool
	logger           *slog.Logger
}

func New(client Generator, applyPostRanking bool, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		client:           client,
		scanner:          inference.BraceScanner{},
		applyPostRanking: applyPostRanking,
		logger:           logger.With("component", "evaluator"),
	}
}

// WithScanner swaps the payload recovery heuristic.
func (ev *Evaluator) WithScanner(scanner inference.PayloadScanner) *Evaluator {
	ev.scanner = scanner
	return ev
}

// Evaluate judges the entries against the query. shapeOverride, when it
// names a known QueryShape, wins over classification. The returned
// evaluation always carries a status; a failure here affects this query
// only.
func (ev *Evaluator) Evaluate(ctx context.Context, query, shapeOverride string, entries []models.ProductEntry) *models.QueryEvaluation {
	shape := resolveShape(query, shapeOverride)

	result := &models.QueryEvaluation{
		Query: query,
		Shape: string(shape),
		Model: ev.client.Model(),
	}

	log := ev.logger.With("query", query, "shape", shape)
	log.Info("evaluating entries", "count", len(entries))

	prompt := inference.BuildPrompt(query, shape, entries)

	raw, err := ev.client.Generate(ctx, prompt)
	if err != nil {
		var transportErr *inference.TransportError
		if errors.As(err, &transportErr) {
			log.Error("inference transport failed", "attempts", transportErr.Attempts, "error", err)
		} else {
			log.Error("inference failed", "error", err)
		}
		result.Status = models.StatusTransportFailed
		result.Error = err.Error()
		return result
	}

	payload, err := ev.scanner.Scan(raw)
	if err != nil {
		// Distinct from a transport failure: the endpoint answered but the
		// output carried no usable evaluation.
		log.Error("no evaluation payload recovered", "error", err)
		result.Status = models.StatusNoEvaluation
		result.Error = err.Error()
		return result
	}

	records := sanitizeRecords(payload.Evaluations, len(entries), log)
	if ev.applyPostRanking {
		records = rank.Rerank(records, entries)
	}

	result.Status = models.StatusSuccess
	result.Evaluations = records
	result.RankingSummary = payload.RankingSummary
	return result
}

// sanitizeRecords enforces the linkage invariant: at most one record per
// entry, every ResultIndex referencing a valid position. Model output that
// violates it is dropped, not repaired.
func sanitizeRecords(records []models.EvaluationRecord, entryCount int, log *slog.Logger) []models.EvaluationRecord {
	kept := make([]models.EvaluationRecord, 0, len(records))
	seen := make(map[int]bool, len(records))

	for _, rec := range records {
		if rec.ResultIndex < 0 || rec.ResultIndex >= entryCount {
			log.Warn("dropping evaluation with out-of-range index", "result_index", rec.ResultIndex)
			continue
		}
		if seen[rec.ResultIndex] {
			log.Warn("dropping duplicate evaluation", "result_index", rec.ResultIndex)
			continue
		}
		seen[rec.ResultIndex] = true
		kept = append(kept, rec)
	}

	return kept
}

func resolveShape(query, override string) classify.QueryShape {
	switch classify.QueryShape(override) {
	case classify.SingleWord, classify.CodedIdentifier, classify.MultiTerm:
		return classify.QueryShape(override)
	}
	return classify.Classify(query)
}
