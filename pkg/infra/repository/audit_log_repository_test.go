package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/injectguard/injectguard/pkg/domain/auditlog"
	"github.com/injectguard/injectguard/pkg/infra/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newAuditLogDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// The attached schema lives on the connection; a second pooled
	// connection would see neither it nor the in-memory data.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Exec("ATTACH DATABASE ':memory:' AS public").Error)
	require.NoError(t, db.Exec(`CREATE TABLE public.audit_logs (
		id          text PRIMARY KEY,
		admin_id    text,
		admin_email text,
		action      text,
		category    text,
		resource    text,
		resource_id text,
		details     text,
		ip_address  text,
		user_agent  text,
		created_at  datetime
	)`).Error)

	return db
}

func seedEntry(t *testing.T, repo auditlog.Repository, action string, createdAt time.Time) {
	t.Helper()
	entry := &auditlog.AuditLog{
		AdminID:   "admin-1",
		Action:    action,
		Category:  auditlog.CategoryAdminAction,
		Resource:  "audit_logs",
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Save(context.Background(), entry))
}

func TestForEachBatchDeliversEveryRowExactlyOnce(t *testing.T) {
	repo := repository.NewAuditLogRepository(newAuditLogDB(t))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	const total = 25
	for i := 0; i < total; i++ {
		seedEntry(t, repo, fmt.Sprintf("action-%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	seen := make(map[uuid.UUID]int)
	var batches int
	var collected []auditlog.AuditLog
	err := repo.ForEachBatch(context.Background(), 10, func(logs []auditlog.AuditLog) error {
		batches++
		for _, l := range logs {
			seen[l.ID]++
			collected = append(collected, l)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 3, batches)
	require.Len(t, collected, total)
	for id, count := range seen {
		assert.Equalf(t, 1, count, "row %s delivered %d times", id, count)
	}
	for i := 1; i < len(collected); i++ {
		assert.False(t, collected[i].CreatedAt.After(collected[i-1].CreatedAt),
			"rows must stream newest-first across batch boundaries")
	}
}

func TestForEachBatchHandlesSharedTimestamps(t *testing.T) {
	repo := repository.NewAuditLogRepository(newAuditLogDB(t))

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	const total = 7
	for i := 0; i < total; i++ {
		seedEntry(t, repo, fmt.Sprintf("action-%d", i), at)
	}

	seen := make(map[uuid.UUID]int)
	err := repo.ForEachBatch(context.Background(), 3, func(logs []auditlog.AuditLog) error {
		for _, l := range logs {
			seen[l.ID]++
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, seen, total)
	for id, count := range seen {
		assert.Equalf(t, 1, count, "row %s delivered %d times", id, count)
	}
}

func TestForEachBatchStopsOnCallbackError(t *testing.T) {
	repo := repository.NewAuditLogRepository(newAuditLogDB(t))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedEntry(t, repo, fmt.Sprintf("action-%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	wantErr := fmt.Errorf("writer closed")
	var calls int
	err := repo.ForEachBatch(context.Background(), 2, func(logs []auditlog.AuditLog) error {
		calls++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestForEachBatchEmptyTable(t *testing.T) {
	repo := repository.NewAuditLogRepository(newAuditLogDB(t))

	var calls int
	err := repo.ForEachBatch(context.Background(), 10, func(logs []auditlog.AuditLog) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, calls)
}
