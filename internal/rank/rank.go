// Package rank implements the deterministic inventory-aware re-ranking
// pass applied after model evaluation. Relevance tier is always the primary
// key; inventory quantity only breaks ties within a tier.
package rank

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/searchforge/catalog-ranker/internal/models"
)

// StockStatus is the qualitative availability derived from a quantity string.
type StockStatus string

const (
	OutOfStock StockStatus = "Out of Stock"
	LowStock   StockStatus = "Low Stock"
	Available  StockStatus = "Available"
	Unknown    StockStatus = "Unknown"
)

// lowStockThreshold is the quantity below which stock counts as low.
const lowStockThreshold = 5

// availableSentinel stands in for "known available, quantity unspecified".
const availableSentinel = 999

var numericRun = regexp.MustCompile(`\d+`)

// ParseQuantity derives a numeric quantity and stock status from the raw
// quantity string of a ProductEntry. Never persisted; recomputed whenever
// reranking needs it.
func ParseQuantity(raw string) (int, StockStatus) {
	if raw == "" || raw == models.FieldMissing {
		return 0, Unknown
	}

	if m := numericRun.FindString(raw); m != "" {
		qty, err := strconv.Atoi(m)
		if err == nil {
			switch {
			case qty == 0:
				return 0, OutOfStock
			case qty < lowStockThreshold:
				return qty, LowStock
			default:
				return qty, Available
			}
		}
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "out of stock"), strings.Contains(lower, "unavailable"):
		return 0, OutOfStock
	case strings.Contains(lower, "low stock"), strings.Contains(lower, "limited"):
		return 1, LowStock
	case strings.Contains(lower, "in stock"), strings.Contains(lower, "available"):
		return availableSentinel, Available
	}

	return 0, Unknown
}

// Rerank reorders evaluation records so that within each relevance tier
// records are sorted by parsed inventory quantity, descending. Tiers are a
// closed set: anything outside High/Medium collapses to Low. The sort is
// stable, so equal quantities keep their pre-sort relative order, and
// cross-tier reordering never occurs. ResultIndex values are untouched;
// they keep referencing positions in the original entry sequence.
func Rerank(evaluations []models.EvaluationRecord, entries []models.ProductEntry) []models.EvaluationRecord {
	tiers := map[string][]models.EvaluationRecord{
		"High":   nil,
		"Medium": nil,
		"Low":    nil,
	}

	for _, eval := range evaluations {
		if eval.ResultIndex >= 0 && eval.ResultIndex < len(entries) {
			qty, status := ParseQuantity(entries[eval.ResultIndex].Quantity)
			eval.ParsedQuantity = qty
			eval.InventoryStatusParsed = string(status)
		} else {
			eval.ParsedQuantity = 0
			eval.InventoryStatusParsed = string(Unknown)
		}

		tier := eval.Relevance
		if tier != "High" && tier != "Medium" {
			tier = "Low"
		}
		tiers[tier] = append(tiers[tier], eval)
	}

	reranked := make([]models.EvaluationRecord, 0, len(evaluations))
	for _, tier := range []string{"High", "Medium", "Low"} {
		group := tiers[tier]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].ParsedQuantity > group[j].ParsedQuantity
		})
		reranked = append(reranked, group...)
	}

	return reranked
}
