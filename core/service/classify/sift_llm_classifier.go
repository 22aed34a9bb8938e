package classify

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"sift_server/core/domain"
	"sift_server/core/port/out"
	"sift_server/pkg/logger"
)

const classifierSystemPrompt = "You are an expert email assistant."

// classifierPrompt is the fixed few-shot instruction: the labeled taxonomy
// followed by worked examples. The target email is appended by buildPrompt.
const classifierPrompt = `You are an expert email assistant. For each email, classify its importance as one of:
- "Unimportant": Social invitations, newsletters, advertisements, or emails that do not require any action or have no significant impact.
- "Important": Emails that require action soon, involve deadlines, reminders, bills, appointments, or are work-related but not life-changing.
- "Very Important": Life-changing, urgent, or highly time-sensitive emails such as job offers, university acceptance, legal notices, or critical health/family matters.
Return only a JSON object with the field importance_level. Do not explain your answer.

Example 1:
Subject: Distant Friend's Wedding
Body: Hey, just letting you know my wedding is next month. Would love to see you there!
Output: {"importance_level": "Unimportant"}

Example 2:
Subject: License Renewal Reminder
Body: Your license will expire in 7 days. Please renew to avoid interruption.
Output: {"importance_level": "Important"}

Example 3:
Subject: Congratulations! MIT/NUS Acceptance
Body: You have been accepted to MIT/NUS! Please check your portal for next steps.
Output: {"importance_level": "Very Important"}

Example 4:
Subject: Newsletter - Top 10 Travel Destinations
Body: Check out our latest list of travel destinations for 2025!
Output: {"importance_level": "Unimportant"}

Example 5:
Subject: Payment Overdue - Immediate Action Required
Body: Your electricity bill is overdue. Please pay immediately to avoid disconnection.
Output: {"importance_level": "Important"}

Example 6:
Subject: Job Offer from Google
Body: We are pleased to offer you a position at Google. Please review and sign the attached contract.
Output: {"importance_level": "Very Important"}

Example 7:
Subject: Weekly Grocery Deals
Body: Save big on your weekly shopping with these deals!
Output: {"importance_level": "Unimportant"}

Example 8:
Subject: Doctor's Appointment Confirmation
Body: Your appointment is scheduled for 10:00 AM on July 10th at City Clinic.
Output: {"importance_level": "Important"}

Example 9:
Subject: Family Emergency
Body: Please call me as soon as possible. It's urgent.
Output: {"importance_level": "Very Important"}

Example 10:
Subject: Your Amazon Order Has Shipped
Body: Your order #12345 has shipped and will arrive soon.
Output: {"importance_level": "Unimportant"}

Example 11:
Subject: Final Notice: Tax Filing Deadline
Body: The deadline to file your taxes is tomorrow. Please submit your documents to avoid penalties.
Output: {"importance_level": "Important"}

Example 12:
Subject: Scholarship Awarded
Body: Congratulations! You have been awarded a full scholarship for your studies.
Output: {"importance_level": "Very Important"}

Now classify this email:
`

// labelScanOrder is the fallback scan priority over the raw response.
// "Important" is a substring of "Very Important", so order matters.
var labelScanOrder = []domain.Importance{
	domain.ImportanceVeryImportant,
	domain.ImportanceImportant,
	domain.ImportanceUnimportant,
}

// LLMClassifier assigns an importance level via the external
// text-completion capability.
type LLMClassifier struct {
	completer out.TextCompleter
	timeout   time.Duration
}

// NewLLMClassifier creates a new model-backed classifier. The timeout bounds
// each completion call; zero means 30 seconds.
func NewLLMClassifier(completer out.TextCompleter, timeout time.Duration) *LLMClassifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMClassifier{completer: completer, timeout: timeout}
}

// Classify returns one of the three importance labels. Capability failure of
// any kind (timeout, transport error, unparseable response) degrades to
// Unimportant and is never surfaced as an error.
func (c *LLMClassifier) Classify(ctx context.Context, subject, content string) domain.Importance {
	if c == nil || c.completer == nil {
		return domain.ImportanceUnimportant
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	answer, err := c.completer.CompleteWithSystem(ctx, classifierSystemPrompt, buildPrompt(subject, content))
	if err != nil {
		logger.WithError(err).Warn("LLM classification failed, defaulting to Unimportant")
		return domain.ImportanceUnimportant
	}

	return parseVerdict(answer)
}

func buildPrompt(subject, content string) string {
	var sb strings.Builder
	sb.WriteString(classifierPrompt)
	sb.WriteString("Subject: ")
	sb.WriteString(subject)
	sb.WriteString("\nBody: ")
	sb.WriteString(content)
	sb.WriteString("\nOutput:")
	return sb.String()
}

// parseVerdict extracts the importance label from the raw model response:
// structured JSON first, then a priority-ordered label scan, then the
// Unimportant default.
func parseVerdict(answer string) domain.Importance {
	answer = strings.TrimSpace(answer)

	var verdict struct {
		ImportanceLevel string `json:"importance_level"`
	}
	if err := json.Unmarshal([]byte(answer), &verdict); err == nil {
		if level := domain.Importance(verdict.ImportanceLevel); level.Valid() {
			return level
		}
	}

	for _, level := range labelScanOrder {
		if strings.Contains(answer, string(level)) {
			return level
		}
	}

	return domain.ImportanceUnimportant
}
