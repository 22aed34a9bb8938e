package classify

import (
	"context"
	"time"

	"sift_server/core/domain"
)

// Router chooses the classification path and builds the final processed
// record. Stateless per call; the mode is injected by the caller instead of
// living in process-wide state.
type Router struct {
	llm *LLMClassifier
}

// NewRouter creates a router. llm may be nil when no model capability is
// configured; such a router always takes the rule path.
func NewRouter(llm *LLMClassifier) *Router {
	return &Router{llm: llm}
}

// Route classifies one normalized email and returns the processed record.
// useLLM selects the model path when the capability is available; otherwise
// the deterministic keyword rules apply.
func (r *Router) Route(ctx context.Context, email *domain.NormalizedEmail, useLLM bool) *domain.ProcessedEmail {
	processed := &domain.ProcessedEmail{
		ID:           email.ID,
		Subject:      email.Subject,
		FromRaw:      email.FromRaw,
		FromName:     email.FromName,
		FromEmail:    email.FromEmail,
		Summary:      Summarize(email.Content),
		ProcessedAt:  time.Now(),
		ReceivedTime: email.ReceivedTime,
	}

	if useLLM && r.llm != nil {
		level := r.llm.Classify(ctx, email.Subject, email.Content)
		processed.Verdict = domain.LLMVerdict{ImportanceLevel: level}
		processed.IsImportant = level == domain.ImportanceVeryImportant
		// The model path does not extract deadlines; HasDeadline stays false.
		return processed
	}

	verdict := domain.RuleVerdict{Categories: Categorize(email.Subject, email.Content)}
	processed.Verdict = verdict
	processed.IsImportant = verdict.HasCategory(domain.CategoryImportant)
	processed.HasDeadline = verdict.HasCategory(domain.CategoryDeadline)
	return processed
}
