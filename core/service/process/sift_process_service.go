// Package process orchestrates the inbox triage pipeline: fetch, normalize,
// classify, persist.
package process

import (
	"context"
	"fmt"
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/in"
	"sift_server/core/port/out"
	"sift_server/core/service/classify"
	"sift_server/core/service/extract"
	"sift_server/pkg/logger"
)

// Options tune one processing run.
type Options struct {
	Query          string
	MaxMessages    int
	FetchWorkers   int
	MarkReadAfter  bool
	UseLLM         bool
	ProcessedIDTTL time.Duration
}

// Service implements in.ProcessService.
type Service struct {
	provider out.MailProvider
	repo     out.ProcessedEmailRepository
	cache    out.ProcessedIDCache
	router   *classify.Router
	opts     Options
}

// NewService wires the pipeline. cache may be nil; dedupe is then disabled.
func NewService(
	provider out.MailProvider,
	repo out.ProcessedEmailRepository,
	cache out.ProcessedIDCache,
	router *classify.Router,
	opts Options,
) *Service {
	if opts.Query == "" {
		opts.Query = "is:unread in:inbox"
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 10
	}
	if opts.FetchWorkers <= 0 {
		opts.FetchWorkers = 5
	}
	if opts.ProcessedIDTTL <= 0 {
		opts.ProcessedIDTTL = 72 * time.Hour
	}
	return &Service{
		provider: provider,
		repo:     repo,
		cache:    cache,
		router:   router,
		opts:     opts,
	}
}

// ProcessInbox runs one triage batch. Per-message failures degrade to a
// skipped message; only provider listing and persistence errors abort the
// run. Output order matches fetch order regardless of worker scheduling.
func (s *Service) ProcessInbox(ctx context.Context) (*in.ProcessResult, error) {
	ids, err := s.provider.ListMessages(ctx, s.opts.Query, s.opts.MaxMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids, skipped := s.filterProcessed(ctx, ids)

	processed := s.processBatch(ctx, ids)

	if len(processed) > 0 {
		if err := s.repo.SaveBatch(ctx, processed); err != nil {
			return nil, fmt.Errorf("failed to persist processed emails: %w", err)
		}
	}

	s.finishMessages(ctx, processed)

	method := "rule"
	if s.opts.UseLLM {
		method = "llm"
	}

	logger.WithFields(map[string]any{
		"fetched": len(ids),
		"emails":  len(processed),
		"skipped": skipped,
		"method":  method,
	}).Info("Inbox processing run complete")

	return &in.ProcessResult{
		Emails:  processed,
		Method:  method,
		Fetched: len(ids),
		Skipped: skipped,
	}, nil
}

// processBatch fetches and classifies messages with bounded concurrency.
// Results are correlated by index so batch order is stable.
func (s *Service) processBatch(ctx context.Context, ids []string) []*domain.ProcessedEmail {
	if len(ids) == 0 {
		return nil
	}

	type slot struct {
		index int
		email *domain.ProcessedEmail
	}

	results := make(chan slot, len(ids))
	semaphore := make(chan struct{}, s.opts.FetchWorkers)

	for i, id := range ids {
		go func(idx int, messageID string) {
			semaphore <- struct{}{}        // acquire
			defer func() { <-semaphore }() // release

			results <- slot{index: idx, email: s.processOne(ctx, messageID)}
		}(i, id)
	}

	ordered := make([]*domain.ProcessedEmail, len(ids))
	for range ids {
		r := <-results
		ordered[r.index] = r.email
	}

	// Drop skipped messages, keeping input order
	emails := make([]*domain.ProcessedEmail, 0, len(ids))
	for _, email := range ordered {
		if email != nil {
			emails = append(emails, email)
		}
	}

	return emails
}

// processOne fetches, normalizes and classifies a single message. Returns
// nil when the message cannot be fetched or has no payload; either way the
// rest of the batch proceeds.
func (s *Service) processOne(ctx context.Context, id string) *domain.ProcessedEmail {
	msg, err := s.provider.GetMessage(ctx, id)
	if err != nil {
		logger.WithField("message_id", id).WithError(err).Warn("Failed to fetch message, skipping")
		return nil
	}

	normalized := extract.Normalize(msg)
	if normalized == nil {
		logger.WithField("message_id", id).Debug("Message has no payload, skipping")
		return nil
	}

	return s.router.Route(ctx, normalized, s.opts.UseLLM)
}

// filterProcessed drops ids the dedupe cache already knows. Cache errors
// only disable the filter for this run.
func (s *Service) filterProcessed(ctx context.Context, ids []string) ([]string, int) {
	if s.cache == nil {
		return ids, 0
	}

	fresh := make([]string, 0, len(ids))
	skipped := 0
	for _, id := range ids {
		done, err := s.cache.IsProcessed(ctx, id)
		if err != nil {
			logger.WithError(err).Debug("Processed-id cache unavailable")
			fresh = append(fresh, id)
			continue
		}
		if done {
			skipped++
			continue
		}
		fresh = append(fresh, id)
	}

	return fresh, skipped
}

// finishMessages records processed ids and marks messages read. Both are
// best effort; failures never fail the run.
func (s *Service) finishMessages(ctx context.Context, emails []*domain.ProcessedEmail) {
	for _, email := range emails {
		if s.cache != nil {
			if err := s.cache.MarkProcessed(ctx, email.ID, s.opts.ProcessedIDTTL); err != nil {
				logger.WithField("message_id", email.ID).WithError(err).Debug("Failed to record processed id")
			}
		}
		if s.opts.MarkReadAfter {
			if err := s.provider.MarkRead(ctx, email.ID); err != nil {
				logger.WithField("message_id", email.ID).WithError(err).Warn("Failed to mark message read")
			}
		}
	}
}

// ListProcessed returns persisted results, newest first.
func (s *Service) ListProcessed(ctx context.Context, limit int) ([]*domain.ProcessedEmail, error) {
	return s.repo.List(ctx, limit)
}

// GetProcessed returns one persisted result, nil when unknown.
func (s *Service) GetProcessed(ctx context.Context, id string) (*domain.ProcessedEmail, error) {
	return s.repo.GetByID(ctx, id)
}

// Ensure Service implements in.ProcessService
var _ in.ProcessService = (*Service)(nil)
