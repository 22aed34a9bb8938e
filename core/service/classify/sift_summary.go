// Package classify implements the dual-path email classification pipeline:
// a model-backed importance classifier with a deterministic keyword fallback.
package classify

import (
	"strings"
	"unicode/utf8"
)

const (
	summaryMaxLen     = 200
	emptySummary      = "No content to summarize"
	sentenceSeparator = "... "
)

// Summarize builds a short extractive summary: first and last sentence of
// the content, capped at 200 characters. Shared by both classification
// paths.
func Summarize(content string) string {
	var sentences []string
	for _, s := range strings.Split(content, ".") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	var summary string
	switch {
	case len(sentences) >= 2:
		summary = sentences[0] + sentenceSeparator + sentences[len(sentences)-1]
	case len(sentences) == 1:
		summary = sentences[0]
	default:
		summary = emptySummary
	}

	if utf8.RuneCountInString(summary) > summaryMaxLen {
		summary = string([]rune(summary)[:summaryMaxLen]) + "..."
	}

	return summary
}
