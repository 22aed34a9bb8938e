package extract

import (
	"strconv"
	"strings"

	"sift_server/core/domain"
	"sift_server/core/port/out"
)

// Sentinel values for absent header or body content.
const (
	NoSubject = "No Subject"
	NoContent = "No content available"
)

// Normalize flattens a raw provider message into a NormalizedEmail.
// It returns nil only when the message carries no payload at all; any
// malformed-but-present payload degrades to a snippet-backed record.
// Pure function: normalizing the same message twice yields the same record.
func Normalize(msg *out.RawMessage) *domain.NormalizedEmail {
	if msg == nil || msg.Payload == nil {
		return nil
	}

	headers := ParseHeaders(msg.Payload.Headers)

	content := strings.TrimSpace(strings.Join(WalkParts(msg.Payload), "\n\n"))
	if content == "" {
		content = strings.TrimSpace(msg.Snippet)
	}
	if content == "" {
		content = NoContent
	}

	return &domain.NormalizedEmail{
		ID:           msg.ID,
		Subject:      headers.Subject,
		Content:      content,
		Snippet:      msg.Snippet,
		FromRaw:      headers.FromRaw,
		FromName:     headers.FromName,
		FromEmail:    headers.FromEmail,
		DateHeader:   headers.DateHeader,
		ReceivedTime: internalDateString(msg.InternalDate),
	}
}

// internalDateString keeps the provider-internal timestamp as the opaque
// millisecond string the provider reports, empty when absent.
func internalDateString(internalDate int64) string {
	if internalDate == 0 {
		return ""
	}
	return strconv.FormatInt(internalDate, 10)
}
