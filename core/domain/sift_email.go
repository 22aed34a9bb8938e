// Package domain holds the core email records produced by the pipeline.
package domain

import "time"

// =============================================================================
// Importance (model-classified)
// =============================================================================

// Importance is the three-level verdict produced by the model classifier.
type Importance string

const (
	ImportanceUnimportant   Importance = "Unimportant"
	ImportanceImportant     Importance = "Important"
	ImportanceVeryImportant Importance = "Very Important"
)

// Valid reports whether the label is one of the three known levels.
func (i Importance) Valid() bool {
	switch i {
	case ImportanceUnimportant, ImportanceImportant, ImportanceVeryImportant:
		return true
	}
	return false
}

// =============================================================================
// Category (rule-classified)
// =============================================================================

// Category is a keyword-derived tag produced by the rule classifier.
type Category string

const (
	CategoryImportant      Category = "IMPORTANT"
	CategoryDeadline       Category = "DEADLINE"
	CategoryActionRequired Category = "ACTION_REQUIRED"
	CategoryMeeting        Category = "MEETING"
)

// =============================================================================
// Normalized record
// =============================================================================

// NormalizedEmail is a provider message flattened to encoding-resolved,
// markup-free text. Content is never empty once normalization succeeds.
type NormalizedEmail struct {
	ID           string `json:"id"`
	Subject      string `json:"subject"`
	Content      string `json:"content"`
	Snippet      string `json:"snippet"`
	FromRaw      string `json:"from"`
	FromName     string `json:"from_name"`
	FromEmail    string `json:"from_email"`
	DateHeader   string `json:"date_header"`
	ReceivedTime string `json:"received_time"`
}

// =============================================================================
// Classification verdict (tagged union)
// =============================================================================

// Verdict is the classification outcome. Exactly one of the two shapes is
// produced per email: LLMVerdict in model mode, RuleVerdict in rule mode.
type Verdict interface {
	Mode() string
}

// LLMVerdict carries the importance level from the model classifier.
type LLMVerdict struct {
	ImportanceLevel Importance `json:"importance_level"`
}

// Mode returns "llm".
func (LLMVerdict) Mode() string { return "llm" }

// RuleVerdict carries the category tags from the rule classifier.
type RuleVerdict struct {
	Categories []Category `json:"categories"`
}

// Mode returns "rule".
func (RuleVerdict) Mode() string { return "rule" }

// HasCategory reports whether the verdict contains the given tag.
func (v RuleVerdict) HasCategory(c Category) bool {
	for _, got := range v.Categories {
		if got == c {
			return true
		}
	}
	return false
}

// =============================================================================
// Processed record
// =============================================================================

// ProcessedEmail is the terminal artifact handed to persistence and
// presentation collaborators. Immutable once built.
type ProcessedEmail struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	FromRaw      string    `json:"from"`
	FromName     string    `json:"from_name"`
	FromEmail    string    `json:"from_email"`
	Summary      string    `json:"summary"`
	Verdict      Verdict   `json:"-"`
	IsImportant  bool      `json:"is_important"`
	HasDeadline  bool      `json:"has_deadline"`
	ProcessedAt  time.Time `json:"processed_at"`
	ReceivedTime string    `json:"received_time,omitempty"`
}

// ImportanceLevel returns the model verdict, if this email was
// model-classified.
func (e *ProcessedEmail) ImportanceLevel() (Importance, bool) {
	v, ok := e.Verdict.(LLMVerdict)
	if !ok {
		return "", false
	}
	return v.ImportanceLevel, true
}

// Categories returns the rule verdict tags, if this email was
// rule-classified.
func (e *ProcessedEmail) Categories() ([]Category, bool) {
	v, ok := e.Verdict.(RuleVerdict)
	if !ok {
		return nil, false
	}
	return v.Categories, true
}
