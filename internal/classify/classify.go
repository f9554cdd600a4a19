// Package classify maps a free-text search query to its surface shape,
// which selects the prompt strategy used for evaluation.
package classify

import (
	"regexp"
	"strings"
)

// QueryShape is the surface form of a search query.
type QueryShape string

const (
	// SingleWord is a one-token plain-text query ("gasket").
	SingleWord QueryShape = "single_word"
	// CodedIdentifier is a one-token query containing digits, hyphens or
	// slashes, typical of part numbers ("BK608", "513188").
	CodedIdentifier QueryShape = "coded_identifier"
	// MultiTerm is a query with more than one whitespace-delimited token.
	MultiTerm QueryShape = "multi_term"
)

var codedPattern = regexp.MustCompile(`[0-9\-/]`)

// Classify derives the QueryShape from the query string alone.
// Deterministic, no I/O; callers recompute it as needed.
func Classify(query string) QueryShape {
	tokens := strings.Fields(query)
	if len(tokens) > 1 {
		return MultiTerm
	}
	if codedPattern.MatchString(query) {
		return CodedIdentifier
	}
	return SingleWord
}
