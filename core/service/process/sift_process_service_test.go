package process

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sift_server/core/domain"
	"sift_server/core/port/out"
	"sift_server/core/service/classify"
)

// fakeProvider serves canned messages keyed by id.
type fakeProvider struct {
	mu       sync.Mutex
	ids      []string
	messages map[string]*out.RawMessage
	listErr  error
	getErr   map[string]error
	marked   []string
}

func (f *fakeProvider) ListMessages(ctx context.Context, query string, maxResults int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ids, nil
}

func (f *fakeProvider) GetMessage(ctx context.Context, id string) (*out.RawMessage, error) {
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	return f.messages[id], nil
}

func (f *fakeProvider) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

// fakeRepo records saved batches in memory.
type fakeRepo struct {
	mu      sync.Mutex
	saved   []*domain.ProcessedEmail
	saveErr error
}

func (f *fakeRepo) Save(ctx context.Context, email *domain.ProcessedEmail) error {
	return f.SaveBatch(ctx, []*domain.ProcessedEmail{email})
}

func (f *fakeRepo) SaveBatch(ctx context.Context, emails []*domain.ProcessedEmail) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, emails...)
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*domain.ProcessedEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.saved {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) List(ctx context.Context, limit int) ([]*domain.ProcessedEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.saved) {
		limit = len(f.saved)
	}
	return f.saved[:limit], nil
}

// fakeIDCache is an in-memory processed-id set.
type fakeIDCache struct {
	mu     sync.Mutex
	seen   map[string]bool
	err    error
	marked []string
}

func (f *fakeIDCache) IsProcessed(ctx context.Context, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[id], nil
}

func (f *fakeIDCache) MarkProcessed(ctx context.Context, id string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	f.seen[id] = true
	f.marked = append(f.marked, id)
	return nil
}

func rawMessage(id, subject, body string) *out.RawMessage {
	return &out.RawMessage{
		ID:      id,
		Snippet: body,
		Payload: &out.RawPart{
			MimeType: "text/plain",
			Data:     base64.RawURLEncoding.EncodeToString([]byte(body)),
			Headers:  []out.RawHeader{{Name: "Subject", Value: subject}},
		},
	}
}

func newTestService(provider *fakeProvider, repo *fakeRepo, cache out.ProcessedIDCache, opts Options) *Service {
	return NewService(provider, repo, cache, classify.NewRouter(nil), opts)
}

// TestProcessInbox tests one full triage run.
func TestProcessInbox(t *testing.T) {
	t.Run("batch order should match fetch order under concurrency", func(t *testing.T) {
		const n = 40
		provider := &fakeProvider{messages: make(map[string]*out.RawMessage)}
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("msg-%03d", i)
			provider.ids = append(provider.ids, id)
			provider.messages[id] = rawMessage(id, "subject", "body text")
		}

		svc := newTestService(provider, &fakeRepo{}, nil, Options{MaxMessages: n, FetchWorkers: 7})

		result, err := svc.ProcessInbox(context.Background())
		if err != nil {
			t.Fatalf("ProcessInbox() error = %v", err)
		}
		if len(result.Emails) != n {
			t.Fatalf("got %d emails, want %d", len(result.Emails), n)
		}
		for i, email := range result.Emails {
			if want := fmt.Sprintf("msg-%03d", i); email.ID != want {
				t.Fatalf("position %d has id %s, want %s", i, email.ID, want)
			}
		}
	})

	t.Run("already-processed ids should be skipped", func(t *testing.T) {
		provider := &fakeProvider{
			ids: []string{"a", "b", "c"},
			messages: map[string]*out.RawMessage{
				"a": rawMessage("a", "s", "body"),
				"b": rawMessage("b", "s", "body"),
				"c": rawMessage("c", "s", "body"),
			},
		}
		cache := &fakeIDCache{seen: map[string]bool{"b": true}}
		repo := &fakeRepo{}

		svc := newTestService(provider, repo, cache, Options{})

		result, err := svc.ProcessInbox(context.Background())
		if err != nil {
			t.Fatalf("ProcessInbox() error = %v", err)
		}
		if result.Skipped != 1 {
			t.Errorf("Skipped = %d, want 1", result.Skipped)
		}
		if len(result.Emails) != 2 {
			t.Errorf("got %d emails, want 2", len(result.Emails))
		}
		for _, e := range result.Emails {
			if e.ID == "b" {
				t.Error("already-processed message b was reprocessed")
			}
		}
	})

	t.Run("cache error should disable the filter, not the run", func(t *testing.T) {
		provider := &fakeProvider{
			ids:      []string{"a"},
			messages: map[string]*out.RawMessage{"a": rawMessage("a", "s", "body")},
		}
		cache := &fakeIDCache{err: errors.New("redis down")}

		svc := newTestService(provider, &fakeRepo{}, cache, Options{})

		result, err := svc.ProcessInbox(context.Background())
		if err != nil {
			t.Fatalf("ProcessInbox() error = %v", err)
		}
		if len(result.Emails) != 1 {
			t.Errorf("got %d emails, want 1", len(result.Emails))
		}
	})

	t.Run("fetch failure should skip the message, not abort", func(t *testing.T) {
		provider := &fakeProvider{
			ids: []string{"good", "bad", "also-good"},
			messages: map[string]*out.RawMessage{
				"good":      rawMessage("good", "s", "body"),
				"also-good": rawMessage("also-good", "s", "body"),
			},
			getErr: map[string]error{"bad": errors.New("transient 500")},
		}

		svc := newTestService(provider, &fakeRepo{}, nil, Options{})

		result, err := svc.ProcessInbox(context.Background())
		if err != nil {
			t.Fatalf("ProcessInbox() error = %v", err)
		}
		if len(result.Emails) != 2 {
			t.Fatalf("got %d emails, want 2", len(result.Emails))
		}
		if result.Emails[0].ID != "good" || result.Emails[1].ID != "also-good" {
			t.Errorf("order not preserved after skip: %s, %s", result.Emails[0].ID, result.Emails[1].ID)
		}
	})

	t.Run("payload-less message should be skipped", func(t *testing.T) {
		provider := &fakeProvider{
			ids: []string{"empty", "full"},
			messages: map[string]*out.RawMessage{
				"empty": {ID: "empty", Snippet: "no payload here"},
				"full":  rawMessage("full", "s", "body"),
			},
		}

		svc := newTestService(provider, &fakeRepo{}, nil, Options{})

		result, err := svc.ProcessInbox(context.Background())
		if err != nil {
			t.Fatalf("ProcessInbox() error = %v", err)
		}
		if len(result.Emails) != 1 || result.Emails[0].ID != "full" {
			t.Errorf("expected only the payload-bearing message, got %d", len(result.Emails))
		}
	})

	t.Run("listing failure should abort the run", func(t *testing.T) {
		provider := &fakeProvider{listErr: errors.New("quota exceeded")}

		svc := newTestService(provider, &fakeRepo{}, nil, Options{})

		if _, err := svc.ProcessInbox(context.Background()); err == nil {
			t.Error("ProcessInbox() should fail when listing fails")
		}
	})

	t.Run("persistence failure should abort the run", func(t *testing.T) {
		provider := &fakeProvider{
			ids:      []string{"a"},
			messages: map[string]*out.RawMessage{"a": rawMessage("a", "s", "body")},
		}
		repo := &fakeRepo{saveErr: errors.New("connection reset")}

		svc := newTestService(provider, repo, nil, Options{})

		if _, err := svc.ProcessInbox(context.Background()); err == nil {
			t.Error("ProcessInbox() should fail when persistence fails")
		}
	})

	t.Run("processed messages should be marked read and cached", func(t *testing.T) {
		provider := &fakeProvider{
			ids:      []string{"a", "b"},
			messages: map[string]*out.RawMessage{"a": rawMessage("a", "s", "body"), "b": rawMessage("b", "s", "body")},
		}
		cache := &fakeIDCache{}
		repo := &fakeRepo{}

		svc := newTestService(provider, repo, cache, Options{MarkReadAfter: true})

		if _, err := svc.ProcessInbox(context.Background()); err != nil {
			t.Fatalf("ProcessInbox() error = %v", err)
		}
		if len(provider.marked) != 2 {
			t.Errorf("marked read %d messages, want 2", len(provider.marked))
		}
		if len(cache.marked) != 2 {
			t.Errorf("cached %d processed ids, want 2", len(cache.marked))
		}
		if len(repo.saved) != 2 {
			t.Errorf("persisted %d emails, want 2", len(repo.saved))
		}
	})

	t.Run("mark read disabled should leave messages unread", func(t *testing.T) {
		provider := &fakeProvider{
			ids:      []string{"a"},
			messages: map[string]*out.RawMessage{"a": rawMessage("a", "s", "body")},
		}

		svc := newTestService(provider, &fakeRepo{}, nil, Options{MarkReadAfter: false})

		if _, err := svc.ProcessInbox(context.Background()); err != nil {
			t.Fatalf("ProcessInbox() error = %v", err)
		}
		if len(provider.marked) != 0 {
			t.Errorf("marked read %d messages, want 0", len(provider.marked))
		}
	})

	t.Run("rule method should be reported without an API key", func(t *testing.T) {
		provider := &fakeProvider{
			ids:      []string{"a"},
			messages: map[string]*out.RawMessage{"a": rawMessage("a", "Meeting invite", "Meeting at 3pm. See you there.")},
		}

		svc := newTestService(provider, &fakeRepo{}, nil, Options{})

		result, err := svc.ProcessInbox(context.Background())
		if err != nil {
			t.Fatalf("ProcessInbox() error = %v", err)
		}
		if result.Method != "rule" {
			t.Errorf("Method = %q, want rule", result.Method)
		}

		email := result.Emails[0]
		if email.Verdict.Mode() != "rule" {
			t.Errorf("Mode() = %q, want rule", email.Verdict.Mode())
		}
		if !email.Verdict.(domain.RuleVerdict).HasCategory(domain.CategoryMeeting) {
			t.Error("meeting invite should carry the MEETING tag")
		}
		if email.HasDeadline {
			t.Error("HasDeadline = true, want false")
		}
	})
}

// TestProcessInboxEmpty tests the no-unread-mail case.
func TestProcessInboxEmpty(t *testing.T) {
	svc := newTestService(&fakeProvider{}, &fakeRepo{}, nil, Options{})

	result, err := svc.ProcessInbox(context.Background())
	if err != nil {
		t.Fatalf("ProcessInbox() error = %v", err)
	}
	if len(result.Emails) != 0 {
		t.Errorf("got %d emails, want 0", len(result.Emails))
	}
	if result.Fetched != 0 || result.Skipped != 0 {
		t.Errorf("Fetched = %d, Skipped = %d, want 0, 0", result.Fetched, result.Skipped)
	}
}
