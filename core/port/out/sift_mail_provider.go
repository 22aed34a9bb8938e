// Package out defines outbound ports (driven ports) for the application.
// These interfaces represent dependencies that the application needs.
package out

import "context"

// =============================================================================
// Mail Provider Port (Gmail)
// =============================================================================

// MailProvider defines the outbound port for the external mail provider.
type MailProvider interface {
	// ListMessages returns message ids matching the query, newest first.
	ListMessages(ctx context.Context, query string, maxResults int) ([]string, error)

	// GetMessage retrieves a full message by id.
	GetMessage(ctx context.Context, id string) (*RawMessage, error)

	// MarkRead removes the unread marker from a message.
	MarkRead(ctx context.Context, id string) error
}

// =============================================================================
// Provider DTOs
// =============================================================================

// RawMessage is a provider message as fetched, read-only input to the
// normalization pipeline.
type RawMessage struct {
	ID           string
	Snippet      string
	InternalDate int64
	Payload      *RawPart
}

// RawHeader is one name/value header pair. Names match case-insensitively.
type RawHeader struct {
	Name  string
	Value string
}

// RawPart is one node of the provider's multi-part body tree.
type RawPart struct {
	MimeType string
	Filename string
	// Data is the base64url-encoded payload, empty when the part carries
	// no direct content.
	Data    string
	Headers []RawHeader
	Parts   []*RawPart
}

// HasData reports whether the part carries direct payload data.
func (p *RawPart) HasData() bool {
	return p != nil && p.Data != ""
}
