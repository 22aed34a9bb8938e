// Package in defines inbound ports (driving ports) for the application.
package in

import (
	"context"

	"sift_server/core/domain"
)

// ProcessService drives the inbox triage pipeline.
type ProcessService interface {
	// ProcessInbox fetches unread messages, normalizes and classifies them,
	// persists the results and returns them in fetch order. One malformed
	// message never aborts the batch.
	ProcessInbox(ctx context.Context) (*ProcessResult, error)

	// Query operations over persisted results
	ListProcessed(ctx context.Context, limit int) ([]*domain.ProcessedEmail, error)
	GetProcessed(ctx context.Context, id string) (*domain.ProcessedEmail, error)
}

// ProcessResult summarizes one ProcessInbox run.
type ProcessResult struct {
	Emails  []*domain.ProcessedEmail `json:"emails"`
	Method  string                   `json:"method"` // "llm" or "rule"
	Fetched int                      `json:"fetched"`
	Skipped int                      `json:"skipped"`
}
