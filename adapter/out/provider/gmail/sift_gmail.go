// Package gmail provides the Gmail API adapter.
package gmail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"sift_server/core/port/out"
	"sift_server/pkg/logger"
)

// Provider implements out.MailProvider for Gmail.
type Provider struct {
	service *gmailapi.Service
	cb      *gobreaker.CircuitBreaker
}

// NewProvider creates a new Gmail provider from an authenticated HTTP client.
func NewProvider(ctx context.Context, client *http.Client) (*Provider, error) {
	service, err := gmailapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{"from": from.String(), "to": to.String()}).
				Warn("Circuit breaker %s changed state", name)
		},
	}

	return &Provider{
		service: service,
		cb:      gobreaker.NewCircuitBreaker(cbSettings),
	}, nil
}

// ListMessages returns the ids of messages matching the query.
func (p *Provider) ListMessages(ctx context.Context, query string, maxResults int) ([]string, error) {
	result, err := p.cb.Execute(func() (interface{}, error) {
		req := p.service.Users.Messages.List("me")
		if query != "" {
			req = req.Q(query)
		}
		if maxResults > 0 {
			req = req.MaxResults(int64(maxResults))
		}
		return req.Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	resp := result.(*gmailapi.ListMessagesResponse)
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// GetMessage retrieves a full message by id.
func (p *Provider) GetMessage(ctx context.Context, id string) (*out.RawMessage, error) {
	result, err := p.cb.Execute(func() (interface{}, error) {
		return p.service.Users.Messages.Get("me", id).
			Format("full").
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	return convertMessage(result.(*gmailapi.Message)), nil
}

// MarkRead removes the UNREAD label from a message.
func (p *Provider) MarkRead(ctx context.Context, id string) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return p.service.Users.Messages.Modify("me", id, &gmailapi.ModifyMessageRequest{
			RemoveLabelIds: []string{"UNREAD"},
		}).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to mark message %s read: %w", id, err)
	}
	return nil
}

// =============================================================================
// API type conversion
// =============================================================================

func convertMessage(msg *gmailapi.Message) *out.RawMessage {
	return &out.RawMessage{
		ID:           msg.Id,
		Snippet:      msg.Snippet,
		InternalDate: msg.InternalDate,
		Payload:      convertPart(msg.Payload),
	}
}

func convertPart(part *gmailapi.MessagePart) *out.RawPart {
	if part == nil {
		return nil
	}

	raw := &out.RawPart{
		MimeType: part.MimeType,
		Filename: part.Filename,
	}

	if part.Body != nil {
		raw.Data = part.Body.Data
	}

	if len(part.Headers) > 0 {
		raw.Headers = make([]out.RawHeader, 0, len(part.Headers))
		for _, h := range part.Headers {
			raw.Headers = append(raw.Headers, out.RawHeader{Name: h.Name, Value: h.Value})
		}
	}

	for _, child := range part.Parts {
		raw.Parts = append(raw.Parts, convertPart(child))
	}

	return raw
}

// Ensure Provider implements out.MailProvider
var _ out.MailProvider = (*Provider)(nil)
