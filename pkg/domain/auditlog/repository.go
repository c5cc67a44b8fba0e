package auditlog

import (
	"context"
	"time"
)

type Repository interface {
	Save(ctx context.Context, log *AuditLog) error
	// ForEachBatch walks all audit entries newest-first in fixed-size
	// batches, for streaming exports without loading the table in memory.
	ForEachBatch(ctx context.Context, batchSize int, fn func(logs []AuditLog) error) error
	// DeleteOlderThan removes entries created before the cutoff. When
	// category is non-empty only entries of that category are targeted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time, category string) (int64, error)
	Count(ctx context.Context) (int64, error)
}
