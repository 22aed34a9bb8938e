// Package classify implements the dual-path email classification pipeline.
package classify

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"sift_server/core/domain"
)

// fakeCompleter returns a canned answer or error.
type fakeCompleter struct {
	answer string
	err    error
	calls  int
}

func (f *fakeCompleter) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

// slowCompleter blocks until the context is done.
type slowCompleter struct{}

func (slowCompleter) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// TestSummarize tests the first/last sentence summary.
func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "two sentences should join first and last",
			content: "First sentence. Last sentence.",
			want:    "First sentence... Last sentence",
		},
		{
			name:    "middle sentences should be dropped",
			content: "Opening. Middle one. Middle two. Closing.",
			want:    "Opening... Closing",
		},
		{
			name:    "single sentence should pass through",
			content: "Just one thought",
			want:    "Just one thought",
		},
		{
			name:    "empty content should use the sentinel",
			content: "",
			want:    "No content to summarize",
		},
		{
			name:    "only periods should use the sentinel",
			content: "...",
			want:    "No content to summarize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.content); got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestSummarizeCap tests the 200-character truncation.
func TestSummarizeCap(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := Summarize(long)

	if n := utf8.RuneCountInString(got); n != 203 {
		t.Errorf("summary length = %d runes, want 203 (200 + ellipsis)", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("capped summary should end with ellipsis, got %q", got[len(got)-10:])
	}

	// Truncation must not split a multi-byte rune
	multibyte := strings.Repeat("é", 500)
	if capped := Summarize(multibyte); !utf8.ValidString(capped) {
		t.Error("capped multi-byte summary is not valid UTF-8")
	}
}

// TestCategorize tests the keyword rule table.
func TestCategorize(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		content string
		want    []domain.Category
	}{
		{
			name:    "urgent deadline email should get both tags",
			subject: "URGENT: project deadline",
			content: "This needs to ship this week",
			want:    []domain.Category{domain.CategoryImportant, domain.CategoryDeadline},
		},
		{
			name:    "matching should be case-insensitive",
			subject: "CRITICAL issue",
			content: "",
			want:    []domain.Category{domain.CategoryImportant},
		},
		{
			name:    "meeting keyword in content should tag meeting",
			subject: "Sync",
			content: "Can we schedule a quick call?",
			want:    []domain.Category{domain.CategoryMeeting},
		},
		{
			name:    "action phrase should tag action required",
			subject: "Invoice",
			content: "Action required: confirm the amount",
			want:    []domain.Category{domain.CategoryActionRequired},
		},
		{
			name:    "neutral text should get no tags",
			subject: "Lunch photos",
			content: "Here are the pictures from Saturday",
			want:    nil,
		},
		{
			name:    "tag order should follow the rule table",
			subject: "Meeting about the urgent deadline",
			content: "action required",
			want: []domain.Category{
				domain.CategoryImportant,
				domain.CategoryDeadline,
				domain.CategoryActionRequired,
				domain.CategoryMeeting,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.subject, tt.content); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Categorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestParseVerdict tests the model response parser.
func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   domain.Importance
	}{
		{
			name:   "structured JSON should win",
			answer: `{"importance_level": "Very Important"}`,
			want:   domain.ImportanceVeryImportant,
		},
		{
			name:   "JSON with surrounding whitespace should parse",
			answer: "\n  {\"importance_level\": \"Important\"}  \n",
			want:   domain.ImportanceImportant,
		},
		{
			name:   "JSON with unknown label should fall through to scan",
			answer: `{"importance_level": "Critical"}`,
			want:   domain.ImportanceUnimportant,
		},
		{
			name:   "plain Very Important should scan before Important",
			answer: "The email is Very Important.",
			want:   domain.ImportanceVeryImportant,
		},
		{
			name:   "plain Important should scan",
			answer: "Importance: Important",
			want:   domain.ImportanceImportant,
		},
		{
			name:   "plain Unimportant should scan",
			answer: "Unimportant",
			want:   domain.ImportanceUnimportant,
		},
		{
			name:   "garbage should default to Unimportant",
			answer: "I cannot classify this email",
			want:   domain.ImportanceUnimportant,
		},
		{
			name:   "empty answer should default to Unimportant",
			answer: "",
			want:   domain.ImportanceUnimportant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseVerdict(tt.answer); got != tt.want {
				t.Errorf("parseVerdict(%q) = %q, want %q", tt.answer, got, tt.want)
			}
		})
	}
}

// TestLLMClassifier tests the model-backed path end to end.
func TestLLMClassifier(t *testing.T) {
	t.Run("successful completion should return the parsed label", func(t *testing.T) {
		completer := &fakeCompleter{answer: `{"importance_level": "Very Important"}`}
		c := NewLLMClassifier(completer, time.Second)

		got := c.Classify(context.Background(), "Launch", "We ship tomorrow")
		if got != domain.ImportanceVeryImportant {
			t.Errorf("Classify() = %q, want Very Important", got)
		}
		if completer.calls != 1 {
			t.Errorf("completer called %d times, want 1", completer.calls)
		}
	})

	t.Run("completion error should degrade to Unimportant", func(t *testing.T) {
		completer := &fakeCompleter{err: errors.New("connection refused")}
		c := NewLLMClassifier(completer, time.Second)

		if got := c.Classify(context.Background(), "s", "b"); got != domain.ImportanceUnimportant {
			t.Errorf("Classify() = %q, want Unimportant on error", got)
		}
	})

	t.Run("timeout should degrade to Unimportant without hanging", func(t *testing.T) {
		c := NewLLMClassifier(slowCompleter{}, 20*time.Millisecond)

		start := time.Now()
		got := c.Classify(context.Background(), "s", "b")
		if got != domain.ImportanceUnimportant {
			t.Errorf("Classify() = %q, want Unimportant on timeout", got)
		}
		if time.Since(start) > time.Second {
			t.Error("Classify() did not respect the timeout")
		}
	})

	t.Run("prompt should carry subject, body and output cue", func(t *testing.T) {
		prompt := buildPrompt("Budget review", "Numbers attached")
		for _, fragment := range []string{
			"Subject: Budget review",
			"Body: Numbers attached",
			"Output:",
			"Return only a JSON object with the field importance_level",
		} {
			if !strings.Contains(prompt, fragment) {
				t.Errorf("prompt missing %q", fragment)
			}
		}
	})
}

// TestRouter tests path selection and verdict mapping.
func TestRouter(t *testing.T) {
	email := &domain.NormalizedEmail{
		ID:      "m1",
		Subject: "URGENT: deadline moved",
		Content: "The submission deadline is now Friday. Please respond.",
	}

	t.Run("rule path should map category flags", func(t *testing.T) {
		r := NewRouter(nil)

		got := r.Route(context.Background(), email, false)
		if got.Verdict.Mode() != "rule" {
			t.Fatalf("Mode() = %q, want rule", got.Verdict.Mode())
		}
		if !got.IsImportant {
			t.Error("IsImportant = false, want true for urgent subject")
		}
		if !got.HasDeadline {
			t.Error("HasDeadline = false, want true for deadline keyword")
		}
	})

	t.Run("llm path should only flag Very Important as important", func(t *testing.T) {
		r := NewRouter(NewLLMClassifier(&fakeCompleter{answer: `{"importance_level": "Important"}`}, time.Second))

		got := r.Route(context.Background(), email, true)
		if got.Verdict.Mode() != "llm" {
			t.Fatalf("Mode() = %q, want llm", got.Verdict.Mode())
		}
		if got.IsImportant {
			t.Error("IsImportant = true, want false for Important (not Very Important)")
		}
		if got.HasDeadline {
			t.Error("HasDeadline = true, model path never sets it")
		}
		if level, ok := got.ImportanceLevel(); !ok || level != domain.ImportanceImportant {
			t.Errorf("ImportanceLevel() = %q, %v", level, ok)
		}
	})

	t.Run("llm path with Very Important should flag important", func(t *testing.T) {
		r := NewRouter(NewLLMClassifier(&fakeCompleter{answer: "Very Important"}, time.Second))

		got := r.Route(context.Background(), email, true)
		if !got.IsImportant {
			t.Error("IsImportant = false, want true for Very Important")
		}
	})

	t.Run("useLLM without wired classifier should fall back to rules", func(t *testing.T) {
		r := NewRouter(nil)

		got := r.Route(context.Background(), email, true)
		if got.Verdict.Mode() != "rule" {
			t.Errorf("Mode() = %q, want rule fallback", got.Verdict.Mode())
		}
	})

	t.Run("summary should come from the shared summarizer", func(t *testing.T) {
		r := NewRouter(nil)

		got := r.Route(context.Background(), email, false)
		if got.Summary != Summarize(email.Content) {
			t.Errorf("Summary = %q", got.Summary)
		}
	})
}
