// Package report turns batch results into the persisted run report:
// per-query inventory impact analysis, business summaries, and the
// cross-query rollup.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/searchforge/catalog-ranker/internal/models"
	"github.com/searchforge/catalog-ranker/internal/rank"
)

// InventorySummary counts stock availability across one query's evaluated
// results.
type InventorySummary struct {
	TotalItems             int     `json:"total_items"`
	InStockItems           int     `json:"in_stock_items"`
	OutOfStockItems        int     `json:"out_of_stock_items"`
	StockAvailabilityRatio float64 `json:"stock_availability_ratio"`
}

// RankingChange records a reorder inside one relevance tier.
type RankingChange struct {
	RelevanceTier string `json:"relevance_tier"`
	OriginalOrder []int  `json:"original_order"`
	NewOrder      []int  `json:"new_order"`
	Reasoning     string `json:"reasoning"`
}

// InventoryAnalysis describes how stock levels reshaped the ranking
// relative to the model's relevance-only order.
type InventoryAnalysis struct {
	ChangesDetected bool             `json:"inventory_changes_detected"`
	RankingChanges  []RankingChange  `json:"ranking_changes"`
	Summary         InventorySummary `json:"inventory_summary"`
	Recommendations []string         `json:"recommendations"`
}

// AnalyzeInventoryImpact compares the evaluated order against the scraped
// order within each relevance tier. Returns an empty analysis for
// non-success evaluations.
func AnalyzeInventoryImpact(eval *models.QueryEvaluation, entries []models.ProductEntry) *InventoryAnalysis {
	analysis := &InventoryAnalysis{
		RankingChanges:  []RankingChange{},
		Recommendations: []string{},
	}

	if eval == nil || eval.Status != models.StatusSuccess {
		return analysis
	}

	tierOrder := map[string][]int{}
	outOfStock := 0
	for _, rec := range eval.Evaluations {
		tier := relevanceTier(rec.Relevance)
		tierOrder[tier] = append(tierOrder[tier], rec.ResultIndex)

		if qty := recordQuantity(rec, entries); qty == 0 {
			outOfStock++
		}
	}

	total := len(eval.Evaluations)
	analysis.Summary = InventorySummary{
		TotalItems:      total,
		InStockItems:    total - outOfStock,
		OutOfStockItems: outOfStock,
	}
	if total > 0 {
		analysis.Summary.StockAvailabilityRatio = float64(total-outOfStock) / float64(total)
	}

	for _, tier := range []string{"High", "Medium", "Low"} {
		current := tierOrder[tier]
		if len(current) < 2 {
			continue
		}

		original := append([]int(nil), current...)
		sort.Ints(original)

		if !equalOrder(original, current) {
			analysis.ChangesDetected = true
			analysis.RankingChanges = append(analysis.RankingChanges, RankingChange{
				RelevanceTier: tier,
				OriginalOrder: original,
				NewOrder:      current,
				Reasoning:     fmt.Sprintf("Inventory-based reordering within %s relevance tier", tier),
			})
		}
	}

	if outOfStock > 0 {
		analysis.Recommendations = append(analysis.Recommendations,
			fmt.Sprintf("Consider highlighting %d out-of-stock items differently in search results", outOfStock))
	}
	if analysis.ChangesDetected {
		analysis.Recommendations = append(analysis.Recommendations,
			"Inventory-based ranking is actively improving result relevance")
	} else {
		analysis.Recommendations = append(analysis.Recommendations,
			"No inventory-based ranking changes needed for this query")
	}

	return analysis
}

// BusinessSummary is the merchandising-facing readout for one query.
type BusinessSummary struct {
	RelevancyAssessment string   `json:"relevancy_assessment"`
	Recommendations     []string `json:"product_movement_recommendations"`
	KeyInsights         []string `json:"key_insights"`
	ActionItems         []string `json:"action_items"`
}

// BuildBusinessSummary distills one query's evaluation into relevancy and
// inventory health statements with concrete follow-ups.
func BuildBusinessSummary(query, siteName string, eval *models.QueryEvaluation, entries []models.ProductEntry, analysis *InventoryAnalysis) *BusinessSummary {
	summary := &BusinessSummary{
		Recommendations: []string{},
		KeyInsights:     []string{},
		ActionItems:     []string{},
	}

	if eval == nil || eval.Status != models.StatusSuccess || len(entries) == 0 {
		summary.RelevancyAssessment = fmt.Sprintf(
			"Search for '%s' failed to return evaluable results. Consider investigating search functionality or product catalog coverage for %s.",
			query, siteName)
		summary.ActionItems = append(summary.ActionItems, "Investigate why search failed to return results")
		return summary
	}

	total := len(eval.Evaluations)
	relevancy := map[string]int{}
	var inStock, outOfStock, lowStock int

	for _, rec := range eval.Evaluations {
		relevancy[relevanceTier(rec.Relevance)]++

		switch status := recordStatus(rec, entries); status {
		case rank.OutOfStock:
			outOfStock++
		case rank.LowStock:
			lowStock++
		default:
			inStock++
		}
	}

	highPct := percentage(relevancy["High"], total)
	inStockPct := percentage(inStock+lowStock, total)

	summary.RelevancyAssessment = fmt.Sprintf(
		"Search for '%s' on %s returned %d results with %s relevancy (%d high, %d medium, %d low relevance). Inventory availability is %s with %d items in stock, %d out of stock.",
		query, siteName, total, relevancyQuality(highPct),
		relevancy["High"], relevancy["Medium"], relevancy["Low"],
		availabilityQuality(inStockPct), inStock+lowStock, outOfStock)

	if outOfStock > 0 {
		summary.Recommendations = append(summary.Recommendations, fmt.Sprintf(
			"Restock %d out-of-stock items or consider removing them from search results to improve customer experience", outOfStock))
	}
	if relevancy["Low"] > relevancy["High"] {
		summary.Recommendations = append(summary.Recommendations, fmt.Sprintf(
			"Improve search algorithm or product tagging on %s to surface more relevant results higher in rankings", siteName))
	}
	if analysis != nil && analysis.ChangesDetected {
		summary.Recommendations = append(summary.Recommendations,
			"Continue using inventory-aware ranking as it's successfully prioritizing available products")
	}

	top, problem := leadingProducts(eval.Evaluations, entries)
	if len(top) > 0 {
		summary.KeyInsights = append(summary.KeyInsights,
			"Top performing products: "+strings.Join(top, ", "))
	}
	if len(problem) > 0 {
		summary.KeyInsights = append(summary.KeyInsights,
			"Products needing attention: "+strings.Join(problem, ", "))
	}
	if highPct < 30 {
		summary.KeyInsights = append(summary.KeyInsights, fmt.Sprintf(
			"Search relevancy on %s is below optimal, consider improving product metadata or search algorithm", siteName))
	}
	if inStockPct < 50 {
		summary.KeyInsights = append(summary.KeyInsights,
			"Low inventory availability may be impacting sales conversion")
	}

	if relevancy["High"] == 0 {
		summary.ActionItems = append(summary.ActionItems, fmt.Sprintf(
			"URGENT: No highly relevant results found on %s, review product catalog and search functionality", siteName))
	}
	if outOfStock > inStock+lowStock {
		summary.ActionItems = append(summary.ActionItems,
			"PRIORITY: More items out of stock than in stock, review inventory management")
	}
	if highPct > 70 && inStockPct > 70 {
		summary.ActionItems = append(summary.ActionItems,
			"OPTIMIZE: Strong performance, consider promoting these search results in marketing")
	}

	return summary
}

// InventoryPerformance is the cross-query stock rollup.
type InventoryPerformance struct {
	InStockPercentage     float64 `json:"in_stock_percentage"`
	OutOfStockPercentage  float64 `json:"out_of_stock_percentage"`
	TotalProductsAnalyzed int     `json:"total_products_analyzed"`
}

// RunSettings records the configuration a batch ran with.
type RunSettings struct {
	InventoryRankingEnabled bool   `json:"inventory_ranking_enabled"`
	ModelUsed               string `json:"model_used"`
	MaxResultsPerQuery      int    `json:"max_results_per_query"`
}

// OverallSummary aggregates a batch run for one site.
type OverallSummary struct {
	SiteName              string               `json:"site_name"`
	SiteURL               string               `json:"site_url"`
	TotalQueries          int                  `json:"total_queries"`
	SuccessfulQueries     int                  `json:"successful_queries"`
	FailedQueries         int                  `json:"failed_queries"`
	AverageRelevancyScore float64              `json:"average_relevancy_score"`
	InventoryPerformance  InventoryPerformance `json:"inventory_performance"`
	TopRecommendations    []string             `json:"top_recommendations"`
	CriticalIssues        []string             `json:"critical_issues"`
	Settings              RunSettings          `json:"configuration_summary"`
}

// BuildOverallSummary rolls all query results for a run into one summary.
// Relevancy is scored High=3, Medium=2, Low=1 and averaged over every
// evaluated product.
func BuildOverallSummary(siteName, siteURL string, results []QueryReport, settings RunSettings) *OverallSummary {
	overall := &OverallSummary{
		SiteName:           siteName,
		SiteURL:            siteURL,
		TotalQueries:       len(results),
		TopRecommendations: []string{},
		CriticalIssues:     []string{},
		Settings:           settings,
	}

	var scoreSum, products, inStock int
	for _, result := range results {
		if result.Evaluation == nil || result.Evaluation.Status != models.StatusSuccess {
			continue
		}
		overall.SuccessfulQueries++

		for _, rec := range result.Evaluation.Evaluations {
			products++
			switch relevanceTier(rec.Relevance) {
			case "High":
				scoreSum += 3
			case "Medium":
				scoreSum += 2
			default:
				scoreSum++
			}
			if recordQuantity(rec, result.Entries) > 0 {
				inStock++
			}
		}
	}
	overall.FailedQueries = overall.TotalQueries - overall.SuccessfulQueries

	if products > 0 {
		overall.AverageRelevancyScore = round2(float64(scoreSum) / float64(products))
		overall.InventoryPerformance = InventoryPerformance{
			InStockPercentage:     round1(float64(inStock) / float64(products) * 100),
			OutOfStockPercentage:  round1(float64(products-inStock) / float64(products) * 100),
			TotalProductsAnalyzed: products,
		}
	}

	if overall.AverageRelevancyScore < 2.0 {
		overall.TopRecommendations = append(overall.TopRecommendations, fmt.Sprintf(
			"Improve search relevancy algorithms on %s, average score below target", siteName))
	}
	inStockPct := overall.InventoryPerformance.InStockPercentage
	if inStockPct < 60 {
		overall.TopRecommendations = append(overall.TopRecommendations, fmt.Sprintf(
			"Address inventory issues on %s, only %.1f%% of products in stock", siteName, inStockPct))
	}
	if overall.FailedQueries > 0 {
		overall.TopRecommendations = append(overall.TopRecommendations, fmt.Sprintf(
			"Investigate %d failed searches on %s", overall.FailedQueries, siteName))
	}

	if overall.FailedQueries > overall.SuccessfulQueries {
		overall.CriticalIssues = append(overall.CriticalIssues, fmt.Sprintf(
			"More searches failing than succeeding on %s, major system issue", siteName))
	}
	if inStockPct < 30 {
		overall.CriticalIssues = append(overall.CriticalIssues, fmt.Sprintf(
			"Critical inventory shortage across most products on %s", siteName))
	}

	return overall
}

// QueryReport is the persisted record for a single query.
type QueryReport struct {
	Query             string                  `json:"query"`
	Status            string                  `json:"status"`
	SearchType        string                  `json:"search_type"`
	Entries           []models.ProductEntry   `json:"scraped_results"`
	Evaluation        *models.QueryEvaluation `json:"evaluation"`
	InventoryAnalysis *InventoryAnalysis      `json:"inventory_analysis,omitempty"`
	BusinessSummary   *BusinessSummary        `json:"business_summary,omitempty"`
	Timestamp         time.Time               `json:"timestamp"`
}

// RunConfiguration is the metadata block of the final report.
type RunConfiguration struct {
	SiteName                string    `json:"site_name"`
	SiteURL                 string    `json:"site_url"`
	InventoryRankingEnabled bool      `json:"inventory_ranking_enabled"`
	DetailedAnalysisEnabled bool      `json:"detailed_analysis_enabled"`
	ModelUsed               string    `json:"model_used"`
	TotalQueriesProcessed   int       `json:"total_queries_processed"`
	GeneratedAt             time.Time `json:"generation_timestamp"`
}

// FinalReport is the top-level document written at the end of a run.
type FinalReport struct {
	SearchResults  []QueryReport    `json:"search_results"`
	OverallSummary *OverallSummary  `json:"overall_summary"`
	Configuration  RunConfiguration `json:"configuration"`
}

// DetailedReport is the optional companion document carrying the per-query
// analyses without the raw scrape payloads.
type DetailedReport struct {
	Analyses    []DetailedEntry `json:"detailed_analysis"`
	SiteName    string          `json:"site_name"`
	GeneratedAt time.Time       `json:"generation_timestamp"`
}

type DetailedEntry struct {
	Query             string             `json:"query"`
	SearchType        string             `json:"search_type"`
	InventoryAnalysis *InventoryAnalysis `json:"inventory_analysis"`
	BusinessSummary   *BusinessSummary   `json:"business_summary"`
	ModelUsed         string             `json:"model_used"`
	RankingSummary    string             `json:"ranking_summary"`
}

// Writer persists reports as indented JSON.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger.With("component", "report")}
}

func (w *Writer) WriteFinal(path string, report *FinalReport) error {
	if err := w.writeJSON(path, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	w.logger.Info("report written", "path", path, "queries", len(report.SearchResults))
	return nil
}

func (w *Writer) WriteDetailed(path string, report *DetailedReport) error {
	if err := w.writeJSON(path, report); err != nil {
		return fmt.Errorf("failed to write detailed report: %w", err)
	}
	w.logger.Info("detailed report written", "path", path, "analyses", len(report.Analyses))
	return nil
}

func (w *Writer) writeJSON(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// recordQuantity resolves a record's stock count, falling back to the
// linked entry's raw quantity when the rerank pass did not run.
func recordQuantity(rec models.EvaluationRecord, entries []models.ProductEntry) int {
	if rec.InventoryStatusParsed != "" {
		return rec.ParsedQuantity
	}
	if rec.ResultIndex >= 0 && rec.ResultIndex < len(entries) {
		qty, _ := rank.ParseQuantity(entries[rec.ResultIndex].Quantity)
		return qty
	}
	return 0
}

func recordStatus(rec models.EvaluationRecord, entries []models.ProductEntry) rank.StockStatus {
	if rec.InventoryStatusParsed != "" {
		return rank.StockStatus(rec.InventoryStatusParsed)
	}
	if rec.ResultIndex >= 0 && rec.ResultIndex < len(entries) {
		_, status := rank.ParseQuantity(entries[rec.ResultIndex].Quantity)
		return status
	}
	return rank.Unknown
}

// leadingProducts inspects the top three ranked records and splits them
// into performers (High relevance, in stock) and problems (Low relevance
// or out of stock), identified by part number.
func leadingProducts(records []models.EvaluationRecord, entries []models.ProductEntry) (top, problem []string) {
	limit := 3
	if len(records) < limit {
		limit = len(records)
	}

	for _, rec := range records[:limit] {
		if rec.ResultIndex < 0 || rec.ResultIndex >= len(entries) {
			continue
		}
		name := entries[rec.ResultIndex].PartNumber
		if name == models.FieldMissing {
			name = fmt.Sprintf("Product %d", rec.ResultIndex)
		}

		qty := recordQuantity(rec, entries)
		tier := relevanceTier(rec.Relevance)
		switch {
		case tier == "High" && qty > 0:
			if len(top) < 2 {
				top = append(top, name)
			}
		case tier == "Low" || qty == 0:
			if len(problem) < 2 {
				problem = append(problem, name)
			}
		}
	}
	return top, problem
}

func relevanceTier(relevance string) string {
	switch relevance {
	case "High", "Medium":
		return relevance
	default:
		return "Low"
	}
}

func relevancyQuality(highPct float64) string {
	switch {
	case highPct >= 60:
		return "excellent"
	case highPct >= 40:
		return "good"
	case highPct >= 20:
		return "moderate"
	default:
		return "poor"
	}
}

func availabilityQuality(inStockPct float64) string {
	switch {
	case inStockPct >= 70:
		return "strong"
	case inStockPct >= 40:
		return "moderate"
	default:
		return "concerning"
	}
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func equalOrder(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
