// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"sift_server/core/domain"
	"sift_server/core/port/out"
)

// =============================================================================
// Processed Email Adapter
// =============================================================================

// ProcessedEmailAdapter implements out.ProcessedEmailRepository.
type ProcessedEmailAdapter struct {
	db *sqlx.DB
}

// NewProcessedEmailAdapter creates a new ProcessedEmailAdapter.
func NewProcessedEmailAdapter(db *sqlx.DB) *ProcessedEmailAdapter {
	return &ProcessedEmailAdapter{db: db}
}

// processedEmailRow represents the database row. The two verdict shapes
// share one table: mode picks the column set that is populated.
type processedEmailRow struct {
	ID              string         `db:"id"`
	Subject         string         `db:"subject"`
	FromRaw         string         `db:"from_raw"`
	FromName        string         `db:"from_name"`
	FromEmail       string         `db:"from_email"`
	Summary         string         `db:"summary"`
	Mode            string         `db:"mode"`
	ImportanceLevel sql.NullString `db:"importance_level"`
	Categories      pq.StringArray `db:"categories"`
	IsImportant     bool           `db:"is_important"`
	HasDeadline     bool           `db:"has_deadline"`
	ProcessedAt     time.Time      `db:"processed_at"`
	ReceivedTime    string         `db:"received_time"`
}

func (r *processedEmailRow) toEntity() *domain.ProcessedEmail {
	email := &domain.ProcessedEmail{
		ID:           r.ID,
		Subject:      r.Subject,
		FromRaw:      r.FromRaw,
		FromName:     r.FromName,
		FromEmail:    r.FromEmail,
		Summary:      r.Summary,
		IsImportant:  r.IsImportant,
		HasDeadline:  r.HasDeadline,
		ProcessedAt:  r.ProcessedAt,
		ReceivedTime: r.ReceivedTime,
	}

	switch r.Mode {
	case "llm":
		email.Verdict = domain.LLMVerdict{ImportanceLevel: domain.Importance(r.ImportanceLevel.String)}
	default:
		categories := make([]domain.Category, 0, len(r.Categories))
		for _, c := range r.Categories {
			categories = append(categories, domain.Category(c))
		}
		email.Verdict = domain.RuleVerdict{Categories: categories}
	}

	return email
}

func fromEntity(email *domain.ProcessedEmail) *processedEmailRow {
	row := &processedEmailRow{
		ID:           email.ID,
		Subject:      email.Subject,
		FromRaw:      email.FromRaw,
		FromName:     email.FromName,
		FromEmail:    email.FromEmail,
		Summary:      email.Summary,
		IsImportant:  email.IsImportant,
		HasDeadline:  email.HasDeadline,
		ProcessedAt:  email.ProcessedAt,
		ReceivedTime: email.ReceivedTime,
		Categories:   pq.StringArray{},
	}

	switch v := email.Verdict.(type) {
	case domain.LLMVerdict:
		row.Mode = "llm"
		row.ImportanceLevel = sql.NullString{String: string(v.ImportanceLevel), Valid: true}
	case domain.RuleVerdict:
		row.Mode = "rule"
		for _, c := range v.Categories {
			row.Categories = append(row.Categories, string(c))
		}
	}

	return row
}

const upsertQuery = `
	INSERT INTO processed_emails (
		id, subject, from_raw, from_name, from_email, summary,
		mode, importance_level, categories, is_important, has_deadline,
		processed_at, received_time
	) VALUES (
		:id, :subject, :from_raw, :from_name, :from_email, :summary,
		:mode, :importance_level, :categories, :is_important, :has_deadline,
		:processed_at, :received_time
	)
	ON CONFLICT (id) DO UPDATE SET
		subject = EXCLUDED.subject,
		from_raw = EXCLUDED.from_raw,
		from_name = EXCLUDED.from_name,
		from_email = EXCLUDED.from_email,
		summary = EXCLUDED.summary,
		mode = EXCLUDED.mode,
		importance_level = EXCLUDED.importance_level,
		categories = EXCLUDED.categories,
		is_important = EXCLUDED.is_important,
		has_deadline = EXCLUDED.has_deadline,
		processed_at = EXCLUDED.processed_at,
		received_time = EXCLUDED.received_time`

// Save persists one record, replacing a previous run's row for the same id.
func (a *ProcessedEmailAdapter) Save(ctx context.Context, email *domain.ProcessedEmail) error {
	if _, err := a.db.NamedExecContext(ctx, upsertQuery, fromEntity(email)); err != nil {
		return fmt.Errorf("failed to save processed email: %w", err)
	}
	return nil
}

// SaveBatch persists a batch in one transaction.
func (a *ProcessedEmailAdapter) SaveBatch(ctx context.Context, emails []*domain.ProcessedEmail) error {
	if len(emails) == 0 {
		return nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, email := range emails {
		if _, err := tx.NamedExecContext(ctx, upsertQuery, fromEntity(email)); err != nil {
			return fmt.Errorf("failed to save processed email %s: %w", email.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// GetByID retrieves one record, nil when not found.
func (a *ProcessedEmailAdapter) GetByID(ctx context.Context, id string) (*domain.ProcessedEmail, error) {
	var row processedEmailRow
	query := `SELECT * FROM processed_emails WHERE id = $1`

	if err := a.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get processed email: %w", err)
	}

	return row.toEntity(), nil
}

// List retrieves records, newest first.
func (a *ProcessedEmailAdapter) List(ctx context.Context, limit int) ([]*domain.ProcessedEmail, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []processedEmailRow
	query := `SELECT * FROM processed_emails ORDER BY processed_at DESC LIMIT $1`

	if err := a.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list processed emails: %w", err)
	}

	emails := make([]*domain.ProcessedEmail, len(rows))
	for i := range rows {
		emails[i] = rows[i].toEntity()
	}
	return emails, nil
}

// EnsureSchema creates the processed_emails table when missing.
func (a *ProcessedEmailAdapter) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed_emails (
		id               TEXT PRIMARY KEY,
		subject          TEXT NOT NULL DEFAULT '',
		from_raw         TEXT NOT NULL DEFAULT '',
		from_name        TEXT NOT NULL DEFAULT '',
		from_email       TEXT NOT NULL DEFAULT '',
		summary          TEXT NOT NULL DEFAULT '',
		mode             TEXT NOT NULL,
		importance_level TEXT,
		categories       TEXT[] NOT NULL DEFAULT '{}',
		is_important     BOOLEAN NOT NULL DEFAULT FALSE,
		has_deadline     BOOLEAN NOT NULL DEFAULT FALSE,
		processed_at     TIMESTAMPTZ NOT NULL,
		received_time    TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_processed_emails_processed_at
		ON processed_emails (processed_at DESC)`

	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Ensure ProcessedEmailAdapter implements out.ProcessedEmailRepository
var _ out.ProcessedEmailRepository = (*ProcessedEmailAdapter)(nil)
