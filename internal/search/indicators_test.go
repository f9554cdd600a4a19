package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsZeroResultsPhrase(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"explicit zero results", `Your search for "widget" returned 0 results.`, true},
		{"no results wording", "Sorry, no results were found.", true},
		{"no items found", "No items found matching your criteria", true},
		{"no products found", "NO PRODUCTS FOUND", true},
		{"bare zero count", "0 results", true},
		{"ordinary result banner", `Showing 24 results for "gasket"`, false},
		{"unrelated alert", "Free shipping on orders over $50", false},
		{"empty text", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsZeroResultsPhrase(tt.text))
		})
	}
}
