package search

import "strings"

// zeroResultsPhrases are the recognized ways sites word an empty result
// set. Each phrase is an independent substring check against the indicator
// element's text.
var zeroResultsPhrases = []string{
	"0 results",
	"no results",
	"returned 0 results",
	"no items found",
	"no products found",
}

// ContainsZeroResultsPhrase reports whether text reads as a zero-match
// banner. Matching is case-insensitive.
func ContainsZeroResultsPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range zeroResultsPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
