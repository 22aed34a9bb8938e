package out

import (
	"context"
	"time"
)

// ProcessedIDCache remembers message ids that already went through the
// pipeline so a re-run skips them. Best effort: a cache miss or error only
// means the message is processed again.
type ProcessedIDCache interface {
	IsProcessed(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) error
}
