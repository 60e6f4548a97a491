package reranker

import (
	"context"
	"strings"
)

// TermOverlap is a local Scorer based on query-term overlap. It stands in
// for a cross-encoder service when none is configured: cheap, fully
// deterministic, and good enough to push lexically matching chunks ahead
// of near-miss semantic neighbors.
type TermOverlap struct{}

// NewTermOverlap creates a TermOverlap scorer.
func NewTermOverlap() *TermOverlap {
	return &TermOverlap{}
}

// Score returns the fraction of unique query terms present in text,
// in [0, 1]. A query with no usable terms scores every text 0.
func (t *TermOverlap) Score(_ context.Context, query, text string) (float32, error) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0, nil
	}

	docTokens := make(map[string]bool)
	for _, token := range tokenize(text) {
		docTokens[token] = true
	}

	matched := 0
	uniqueQuery := make(map[string]bool)
	for _, token := range queryTokens {
		if uniqueQuery[token] {
			continue
		}
		uniqueQuery[token] = true
		if docTokens[token] {
			matched++
		}
	}

	return float32(matched) / float32(len(uniqueQuery)), nil
}

// tokenize splits text into lowercase terms, dropping stopwords and
// tokens shorter than three characters.
func tokenize(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isAlphanumeric(r)
	})

	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !stopwords[token] && len(token) > 2 {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_'
}

var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "are": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "you": true, "they": true, "what": true, "which": true,
	"who": true, "when": true, "where": true, "why": true, "how": true,
}
