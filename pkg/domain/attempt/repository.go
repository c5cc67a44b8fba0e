package attempt

import (
	"context"
	"time"
)

// Filter narrows Query results. Zero values mean "no constraint".
type Filter struct {
	Type       Kind
	Severity   Severity
	IPContains string
}

// Stats is the aggregate view computed at query time.
type Stats struct {
	Total    int64          `json:"total"`
	ByType   map[Kind]int64 `json:"by_type"`
	Critical int64          `json:"critical"`
	Last24h  int64          `json:"last_24h"`
}

type Repository interface {
	// Save appends one attempt. It never updates existing rows.
	Save(ctx context.Context, attempt *InjectionAttempt) error
	// Query returns a page of attempts ordered newest-first plus the total
	// count matching the filter.
	Query(ctx context.Context, filter Filter, page, pageSize int) ([]InjectionAttempt, int64, error)
	Stats(ctx context.Context) (*Stats, error)
	// DeleteOlderThan removes attempts with CreatedAt before the cutoff and
	// returns how many rows were deleted. Only the retention job calls this.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
