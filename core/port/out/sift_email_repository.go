package out

import (
	"context"

	"sift_server/core/domain"
)

// =============================================================================
// Processed Email Repository (PostgreSQL)
// =============================================================================

// ProcessedEmailRepository defines the outbound port for processed-record
// persistence. Records are write-once; Save replaces on id conflict so a
// reprocessed message does not duplicate.
type ProcessedEmailRepository interface {
	Save(ctx context.Context, email *domain.ProcessedEmail) error
	SaveBatch(ctx context.Context, emails []*domain.ProcessedEmail) error
	GetByID(ctx context.Context, id string) (*domain.ProcessedEmail, error)
	List(ctx context.Context, limit int) ([]*domain.ProcessedEmail, error)
}
