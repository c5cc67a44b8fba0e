package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/injectguard/injectguard/pkg/domain"
	"github.com/injectguard/injectguard/pkg/domain/auditlog"
	"gorm.io/gorm"
)

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) auditlog.Repository {
	return &auditLogRepository{
		db: db,
	}
}

func (r *auditLogRepository) Save(ctx context.Context, log *auditlog.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return domain.NewStorageError("save audit log", err)
	}
	return nil
}

func (r *auditLogRepository) ForEachBatch(
	ctx context.Context,
	batchSize int,
	fn func(logs []auditlog.AuditLog) error,
) error {
	if batchSize < 1 {
		batchSize = 500
	}

	// Keyset pagination over (created_at, id): FindInBatches advances by
	// primary key, which with random UUIDs would skip and repeat rows once
	// an explicit ordering is applied. The id tiebreak keeps the cursor
	// stable across rows sharing a timestamp.
	var (
		cursorSet bool
		cursorAt  time.Time
		cursorID  uuid.UUID
	)
	for {
		query := r.db.WithContext(ctx).
			Order("created_at DESC, id DESC").
			Limit(batchSize)
		if cursorSet {
			query = query.Where(
				"created_at < ? OR (created_at = ? AND id < ?)",
				cursorAt, cursorAt, cursorID,
			)
		}

		var batch []auditlog.AuditLog
		if err := query.Find(&batch).Error; err != nil {
			return domain.NewStorageError("export audit logs", err)
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}

		last := batch[len(batch)-1]
		cursorAt, cursorID, cursorSet = last.CreatedAt, last.ID, true
	}
}

func (r *auditLogRepository) DeleteOlderThan(
	ctx context.Context,
	cutoff time.Time,
	category string,
) (int64, error) {
	query := r.db.WithContext(ctx).Where("created_at < ?", cutoff)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	result := query.Delete(&auditlog.AuditLog{})
	if result.Error != nil {
		return 0, domain.NewStorageError("delete audit logs", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *auditLogRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&auditlog.AuditLog{}).Count(&total).Error
	if err != nil {
		return 0, domain.NewStorageError("count audit logs", err)
	}
	return total, nil
}
