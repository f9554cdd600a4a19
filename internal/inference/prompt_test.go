package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/searchforge/catalog-ranker/internal/classify"
	"github.com/searchforge/catalog-ranker/internal/models"
)

func TestBuildPromptSelectsCriteriaByShape(t *testing.T) {
	entries := []models.ProductEntry{
		{Title: "Gasket Kit", PartNumber: "GK-42", Price: "$15.00", Quantity: "7", URL: "https://shop.example.com/p/gk-42"},
	}

	single := BuildPrompt("gasket", classify.SingleWord, entries)
	assert.Contains(t, single, `contextually relevant to the search term "gasket"`)
	assert.Contains(t, single, "Search Type: single_word")

	coded := BuildPrompt("GK-42", classify.CodedIdentifier, entries)
	assert.Contains(t, coded, `the input part number "GK-42"`)
	assert.Contains(t, coded, "cross-reference")

	multi := BuildPrompt("stainless gasket kit", classify.MultiTerm, entries)
	assert.Contains(t, multi, "combination of key constraints")
}

func TestBuildPromptCarriesInventoryInstructionAndSchema(t *testing.T) {
	prompt := BuildPrompt("gasket", classify.SingleWord, nil)

	assert.Contains(t, prompt, "IMPORTANT INVENTORY CONSIDERATION")
	assert.Contains(t, prompt, `"result_index"`)
	assert.Contains(t, prompt, `"ranking_summary"`)
}

func TestBuildPromptUnknownShapeFallsBack(t *testing.T) {
	prompt := BuildPrompt("gasket", classify.QueryShape("mystery"), nil)
	assert.Contains(t, prompt, "contextually relevant to the search term")
}

func TestFormatEntriesEmphasizesInventory(t *testing.T) {
	entries := []models.ProductEntry{
		{Title: "Gasket Kit", PartNumber: "GK-42", Price: "$15.00", Quantity: "7", URL: "https://shop.example.com/p/gk-42"},
		{Title: "Seal Ring", PartNumber: "SR-11", Price: "$4.50", Quantity: "0", URL: "https://shop.example.com/p/sr-11"},
	}

	formatted := FormatEntries(entries)
	assert.Contains(t, formatted, "Result 0:\n")
	assert.Contains(t, formatted, "Result 1:\n")
	assert.Contains(t, formatted, "INVENTORY/QUANTITY: 7")
	assert.Contains(t, formatted, "INVENTORY/QUANTITY: 0")
}
