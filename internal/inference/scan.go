package inference

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/searchforge/catalog-ranker/internal/models"
)

// ErrNoEvaluation means the model output contained no recoverable
// evaluation payload. Callers must treat this as a distinct failure mode
// from a successful-but-empty evaluation.
var ErrNoEvaluation = errors.New("no evaluation payload in model output")

// EvaluationPayload is the structured record recovered from model output.
type EvaluationPayload struct {
	Evaluations    []models.EvaluationRecord `json:"evaluations"`
	RankingSummary string                    `json:"ranking_summary"`
}

// PayloadScanner extracts an EvaluationPayload from free-text model output.
// The extraction is heuristic; keeping it behind this interface lets the
// heuristic change without touching callers.
type PayloadScanner interface {
	Scan(raw string) (*EvaluationPayload, error)
}

// BraceScanner locates the first balanced JSON object containing an
// "evaluations" key and parses it after stripping trailing commas, a common
// model malformation. Models wrap the payload in prose, so this is a
// targeted scan rather than a strict parse of the whole output.
type BraceScanner struct{}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

func (BraceScanner) Scan(raw string) (*EvaluationPayload, error) {
	candidate := extractObjectWithKey(raw, `"evaluations"`)
	if candidate == "" {
		return nil, ErrNoEvaluation
	}

	cleaned := trailingComma.ReplaceAllString(candidate, "$1")

	var payload EvaluationPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, ErrNoEvaluation
	}
	if payload.Evaluations == nil {
		return nil, ErrNoEvaluation
	}

	return &payload, nil
}

// extractObjectWithKey returns the first balanced {...} substring that
// contains key, or "" if none exists. String literals are skipped so braces
// inside justification text do not break the balance count.
func extractObjectWithKey(raw, key string) string {
	keyAt := strings.Index(raw, key)
	if keyAt < 0 {
		return ""
	}

	// Walk back to the opening brace of the object holding the key.
	start := strings.LastIndex(raw[:keyAt], "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}

	return ""
}
