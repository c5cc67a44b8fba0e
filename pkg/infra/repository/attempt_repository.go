package repository

import (
	"context"
	"time"

	"github.com/injectguard/injectguard/pkg/domain"
	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"gorm.io/gorm"
)

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) attempt.Repository {
	return &attemptRepository{
		db: db,
	}
}

func (r *attemptRepository) Save(ctx context.Context, a *attempt.InjectionAttempt) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return domain.NewStorageError("save attempt", err)
	}
	return nil
}

func (r *attemptRepository) Query(
	ctx context.Context,
	filter attempt.Filter,
	page, pageSize int,
) ([]attempt.InjectionAttempt, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	query := r.db.WithContext(ctx).Model(&attempt.InjectionAttempt{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.IPContains != "" {
		query = query.Where("ip_address ILIKE ?", "%"+filter.IPContains+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domain.NewStorageError("count attempts", err)
	}

	var attempts []attempt.InjectionAttempt
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&attempts).Error
	if err != nil {
		return nil, 0, domain.NewStorageError("query attempts", err)
	}

	return attempts, total, nil
}

func (r *attemptRepository) Stats(ctx context.Context) (*attempt.Stats, error) {
	stats := &attempt.Stats{ByType: make(map[attempt.Kind]int64)}

	model := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&attempt.InjectionAttempt{})
	}

	if err := model().Count(&stats.Total).Error; err != nil {
		return nil, domain.NewStorageError("stats total", err)
	}

	type kindCount struct {
		Type  attempt.Kind
		Count int64
	}
	var counts []kindCount
	err := model().
		Select("type, COUNT(*) as count").
		Group("type").
		Scan(&counts).Error
	if err != nil {
		return nil, domain.NewStorageError("stats by type", err)
	}
	for _, c := range counts {
		stats.ByType[c.Type] = c.Count
	}

	err = model().
		Where("severity = ?", attempt.SeverityCritical).
		Count(&stats.Critical).Error
	if err != nil {
		return nil, domain.NewStorageError("stats critical", err)
	}

	err = model().
		Where("created_at > ?", time.Now().Add(-24*time.Hour)).
		Count(&stats.Last24h).Error
	if err != nil {
		return nil, domain.NewStorageError("stats last24h", err)
	}

	return stats, nil
}

func (r *attemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&attempt.InjectionAttempt{})
	if result.Error != nil {
		return 0, domain.NewStorageError("delete attempts", result.Error)
	}
	return result.RowsAffected, nil
}
