package classify

import (
	"strings"

	"sift_server/core/domain"
)

// categoryRule binds one category tag to its trigger keywords.
type categoryRule struct {
	tag      domain.Category
	keywords []string
}

// categoryRules is the fixed keyword table. Output tag order follows
// declaration order.
var categoryRules = []categoryRule{
	{domain.CategoryImportant, []string{"urgent", "important", "critical", "asap"}},
	{domain.CategoryDeadline, []string{"deadline", "due", "by", "before"}},
	{domain.CategoryActionRequired, []string{"action required", "please respond", "needs your attention"}},
	{domain.CategoryMeeting, []string{"meeting", "schedule", "appointment", "call"}},
}

// Categorize tags an email by substring lookup over the lowercased
// "{subject} {content}" search string. Pure function, no I/O; a tag is
// included when any of its keywords matches, and tags may co-occur.
func Categorize(subject, content string) []domain.Category {
	text := strings.ToLower(subject + " " + content)

	var tags []domain.Category
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}

	return tags
}
