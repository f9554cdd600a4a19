package inference

import (
	"fmt"
	"strings"

	"github.com/searchforge/catalog-ranker/internal/classify"
	"github.com/searchforge/catalog-ranker/internal/models"
)

const inventoryInstruction = `
IMPORTANT INVENTORY CONSIDERATION:
When products have the same relevance level, prioritize those with higher available inventory/quantity.
- If two products both have "High" relevance, the one with more inventory should be ranked higher
- Only consider inventory as a tie-breaker when relevance levels are equal
- Products with 0 inventory should be ranked lower than those with available stock, even within the same relevance category
`

const evaluationSchema = `
Provide your evaluation for each result in JSON format. Include both relevance and inventory considerations:
{
  "evaluations": [
    {
      "result_index": 0,
      "relevance": "High|Medium|Low",
      "inventory_status": "Available|Low Stock|Out of Stock",
      "inventory_quantity": "parsed quantity or 'N/A'",
      "justification": "Your justification here, including inventory consideration if applicable",
      "inventory_impact": "Whether inventory affected the ranking within the same relevance tier"
    }
  ],
  "ranking_summary": "Brief explanation of how inventory influenced the final ranking"
}
`

var shapeCriteria = map[classify.QueryShape]string{
	classify.SingleWord: `Criteria: Assess if the product is contextually relevant to the search term "{query}" in an automotive/restaurant supply context. Direct matches (e.g., searching 'gasket' returns gaskets) are High relevance. Related items or accessories might be Medium. Unrelated items are Low.`,
	classify.CodedIdentifier: `Criteria: Assess the match between the input part number "{query}" and the part numbers listed in the results.
- High Relevance: Exact match of the primary part number in the 'Part Number' field or clearly in the 'Title'.
- Medium Relevance: Input is a substring of the result's part number, the result's part number is a substring of the input, or the result is explicitly identified as a cross-reference/alternative/compatible part in the title.
- Low Relevance: No discernible match or relationship found in the part number or title.`,
	classify.MultiTerm: `Criteria: Assess if the product result satisfies the combination of key constraints specified in the query "{query}". Consider product type, brand, application details, etc., mentioned in the query. High relevance if the product title/details match most or all key terms. Relevance decreases as fewer terms are matched or if details contradict the query.`,
}

// BuildPrompt assembles the evaluation prompt for a query and its extracted
// entries, selecting criteria by the query's shape.
func BuildPrompt(query string, shape classify.QueryShape, entries []models.ProductEntry) string {
	criteria, ok := shapeCriteria[shape]
	if !ok {
		criteria = shapeCriteria[classify.SingleWord]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate the relevance of the following search results for the query: %q.\n\n", query)
	fmt.Fprintf(&b, "Search Type: %s\n", shape)
	b.WriteString(strings.ReplaceAll(criteria, "{query}", query))
	b.WriteString("\n")
	b.WriteString(inventoryInstruction)
	b.WriteString("\nResults:\n")
	b.WriteString(FormatEntries(entries))
	b.WriteString(evaluationSchema)
	return b.String()
}

// FormatEntries renders entries in the numbered layout the evaluation
// prompt expects, with inventory called out prominently.
func FormatEntries(entries []models.ProductEntry) string {
	var b strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&b, "Result %d:\n", i)
		fmt.Fprintf(&b, "Title: %s\n", entry.Title)
		fmt.Fprintf(&b, "Part Number: %s\n", entry.PartNumber)
		fmt.Fprintf(&b, "Price: %s\n", entry.Price)
		fmt.Fprintf(&b, "INVENTORY/QUANTITY: %s\n", entry.Quantity)
		fmt.Fprintf(&b, "URL: %s\n", entry.URL)
		b.WriteString("---\n")
	}
	return b.String()
}
