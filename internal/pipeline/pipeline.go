// Package pipeline runs a full batch against one site: scrape, evaluate,
// analyze, report. Queries run sequentially and a failure in one never
// aborts the rest of the batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/searchforge/catalog-ranker/internal/config"
	"github.com/searchforge/catalog-ranker/internal/models"
	"github.com/searchforge/catalog-ranker/internal/ratelimit"
	"github.com/searchforge/catalog-ranker/internal/report"
)

// Searcher runs one search round-trip. Satisfied by *search.Executor.
type Searcher interface {
	Run(ctx context.Context, query string) ([]models.ProductEntry, models.QueryOutcome, error)
}

// Evaluator judges one query's entries. Satisfied by *evaluate.Evaluator.
type Evaluator interface {
	Evaluate(ctx context.Context, query, shapeOverride string, entries []models.ProductEntry) *models.QueryEvaluation
}

// RunStore persists runs. Satisfied by *database.RunRepository; optional.
type RunStore interface {
	CreateRun(ctx context.Context, siteKey, siteName, siteURL, model string) (string, error)
	SaveQueryResult(ctx context.Context, runID string, result models.QueryResult) error
	FinishRun(ctx context.Context, runID string, total, successful, failed int) error
}

// EventPublisher emits per-query events. Satisfied by *events.Publisher;
// optional.
type EventPublisher interface {
	PublishQueryEvaluated(ctx context.Context, runID, siteKey string, result models.QueryResult) error
}

// Options bundle the per-run settings the pipeline needs beyond its
// collaborators.
type Options struct {
	SiteKey    string
	Site       config.SiteConfig
	Inference  config.InferenceConfig
	Evaluation config.EvaluationConfig
	DelayMin   time.Duration
	DelayMax   time.Duration
}

type Pipeline struct {
	searcher  Searcher
	evaluator Evaluator
	pacer     ratelimit.Pacer
	writer    *report.Writer
	store     RunStore
	publisher EventPublisher
	opts      Options
	logger    *slog.Logger
}

// outcomeRecorder is the feedback half of an adaptive pacer. Pacers that
// implement it get told how each query ended.
type outcomeRecorder interface {
	RecordSuccess()
	RecordError()
}

func New(searcher Searcher, evaluator Evaluator, writer *report.Writer, opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		searcher:  searcher,
		evaluator: evaluator,
		pacer:     ratelimit.NewAdaptivePacer(opts.DelayMin, opts.DelayMax),
		writer:    writer,
		opts:      opts,
		logger:    logger.With("component", "pipeline", "site", opts.SiteKey),
	}
}

// WithStore enables run persistence.
func (p *Pipeline) WithStore(store RunStore) *Pipeline {
	p.store = store
	return p
}

// WithPublisher enables per-query event publishing.
func (p *Pipeline) WithPublisher(publisher EventPublisher) *Pipeline {
	p.publisher = publisher
	return p
}

// WithPacer replaces the default jittered pacer.
func (p *Pipeline) WithPacer(pacer ratelimit.Pacer) *Pipeline {
	p.pacer = pacer
	return p
}

// Run executes every configured task and returns the final report. The
// report is also written to the configured output files. Run returns an
// error only for batch-level problems; per-query failures are recorded in
// the report instead.
func (p *Pipeline) Run(ctx context.Context) (*report.FinalReport, error) {
	tasks := p.opts.Site.AllTasks()

	p.logger.Info("starting batch run",
		"target_url", p.opts.Site.TargetURL,
		"queries", len(tasks),
		"model", p.opts.Inference.Model,
		"post_ranking", p.opts.Evaluation.ApplyPostRanking)

	runID := p.createRun(ctx)

	results := make([]report.QueryReport, 0, len(tasks))
	var detailed []report.DetailedEntry

	for i, task := range tasks {
		if task.Query == "" {
			p.logger.Warn("skipping task with no query", "index", i)
			continue
		}

		if err := p.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("batch interrupted: %w", err)
		}

		p.logger.Info("processing query", "index", i+1, "total", len(tasks), "query", task.Query)

		queryReport := p.runQuery(ctx, task)
		results = append(results, queryReport)
		p.recordOutcome(queryReport.Status)

		if p.opts.Evaluation.DetailedAnalysis && queryReport.Evaluation != nil {
			detailed = append(detailed, report.DetailedEntry{
				Query:             queryReport.Query,
				SearchType:        queryReport.SearchType,
				InventoryAnalysis: queryReport.InventoryAnalysis,
				BusinessSummary:   queryReport.BusinessSummary,
				ModelUsed:         queryReport.Evaluation.Model,
				RankingSummary:    queryReport.Evaluation.RankingSummary,
			})
		}

		p.persistQuery(ctx, runID, queryReport)
	}

	final := p.assemble(results)
	p.finishRun(ctx, runID, final.OverallSummary)

	if path := p.opts.Site.Output.ReportFile; path != "" {
		if err := p.writer.WriteFinal(path, final); err != nil {
			return final, err
		}
	}
	if path := p.opts.Site.Output.DetailedReportFile; path != "" && len(detailed) > 0 {
		doc := &report.DetailedReport{
			Analyses:    detailed,
			SiteName:    p.opts.Site.SiteName,
			GeneratedAt: time.Now(),
		}
		if err := p.writer.WriteDetailed(path, doc); err != nil {
			return final, err
		}
	}

	return final, nil
}

// runQuery executes one task end to end. All failure modes degrade to a
// report entry; nothing escapes to abort the batch.
func (p *Pipeline) runQuery(ctx context.Context, task config.SearchTask) report.QueryReport {
	queryReport := report.QueryReport{
		Query:     task.Query,
		Timestamp: time.Now(),
	}

	entries, outcome, err := p.searcher.Run(ctx, task.Query)
	if err != nil {
		p.logger.Error("search failed", "query", task.Query, "error", err)
	}

	switch outcome {
	case models.OutcomeNoResults:
		queryReport.Status = "no_results"
		queryReport.Entries = []models.ProductEntry{}
		queryReport.BusinessSummary = report.BuildBusinessSummary(
			task.Query, p.opts.Site.SiteName, nil, nil, nil)
		return queryReport
	case models.OutcomeFailed:
		queryReport.Status = "scraping_failed"
		queryReport.Entries = []models.ProductEntry{}
		queryReport.BusinessSummary = report.BuildBusinessSummary(
			task.Query, p.opts.Site.SiteName, nil, nil, nil)
		return queryReport
	}

	queryReport.Entries = entries

	evaluation := p.evaluator.Evaluate(ctx, task.Query, task.SearchType, entries)
	queryReport.Evaluation = evaluation
	queryReport.Status = string(evaluation.Status)
	queryReport.SearchType = evaluation.Shape

	if p.opts.Evaluation.DetailedAnalysis && evaluation.Status == models.StatusSuccess {
		queryReport.InventoryAnalysis = report.AnalyzeInventoryImpact(evaluation, entries)
	}
	queryReport.BusinessSummary = report.BuildBusinessSummary(
		task.Query, p.opts.Site.SiteName, evaluation, entries, queryReport.InventoryAnalysis)

	return queryReport
}

// recordOutcome feeds the query's fate back to the pacer so it can widen
// the gap after repeated failures. A legitimate zero-match counts as
// success; only a broken round-trip or unreachable inference endpoint is
// an error.
func (p *Pipeline) recordOutcome(status string) {
	recorder, ok := p.pacer.(outcomeRecorder)
	if !ok {
		return
	}

	switch status {
	case "scraping_failed", string(models.StatusTransportFailed):
		recorder.RecordError()
	default:
		recorder.RecordSuccess()
	}
}

func (p *Pipeline) assemble(results []report.QueryReport) *report.FinalReport {
	settings := report.RunSettings{
		InventoryRankingEnabled: p.opts.Evaluation.ApplyPostRanking,
		ModelUsed:               p.opts.Inference.Model,
		MaxResultsPerQuery:      p.opts.Site.Scraping.MaxResultsPerQuery,
	}

	return &report.FinalReport{
		SearchResults:  results,
		OverallSummary: report.BuildOverallSummary(p.opts.Site.SiteName, p.opts.Site.TargetURL, results, settings),
		Configuration: report.RunConfiguration{
			SiteName:                p.opts.Site.SiteName,
			SiteURL:                 p.opts.Site.TargetURL,
			InventoryRankingEnabled: p.opts.Evaluation.ApplyPostRanking,
			DetailedAnalysisEnabled: p.opts.Evaluation.DetailedAnalysis,
			ModelUsed:               p.opts.Inference.Model,
			TotalQueriesProcessed:   len(results),
			GeneratedAt:             time.Now(),
		},
	}
}

func (p *Pipeline) createRun(ctx context.Context) string {
	if p.store == nil {
		return ""
	}

	runID, err := p.store.CreateRun(ctx, p.opts.SiteKey, p.opts.Site.SiteName, p.opts.Site.TargetURL, p.opts.Inference.Model)
	if err != nil {
		p.logger.Error("failed to create run record, continuing without persistence", "error", err)
		return ""
	}

	p.logger.Info("run created", "run_id", runID)
	return runID
}

func (p *Pipeline) persistQuery(ctx context.Context, runID string, queryReport report.QueryReport) {
	result := models.QueryResult{
		Query:     queryReport.Query,
		Outcome:   outcomeFromStatus(queryReport.Status),
		Entries:   queryReport.Entries,
		Evaluated: queryReport.Evaluation,
		Timestamp: queryReport.Timestamp,
	}

	if p.store != nil && runID != "" {
		if err := p.store.SaveQueryResult(ctx, runID, result); err != nil {
			p.logger.Error("failed to persist query result", "query", result.Query, "error", err)
		}
	}

	if p.publisher != nil {
		if err := p.publisher.PublishQueryEvaluated(ctx, runID, p.opts.SiteKey, result); err != nil {
			p.logger.Error("failed to publish query event", "query", result.Query, "error", err)
		}
	}
}

func (p *Pipeline) finishRun(ctx context.Context, runID string, overall *report.OverallSummary) {
	if p.store == nil || runID == "" {
		return
	}

	err := p.store.FinishRun(ctx, runID, overall.TotalQueries, overall.SuccessfulQueries, overall.FailedQueries)
	if err != nil {
		p.logger.Error("failed to finish run record", "error", err)
	}
}

func outcomeFromStatus(status string) models.QueryOutcome {
	switch status {
	case "no_results":
		return models.OutcomeNoResults
	case "scraping_failed":
		return models.OutcomeFailed
	default:
		return models.OutcomeEnumerated
	}
}
