package mocks

import (
	"context"
	"time"

	"github.com/injectguard/injectguard/pkg/domain/auditlog"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, log *auditlog.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockRepository) ForEachBatch(
	ctx context.Context,
	batchSize int,
	fn func(logs []auditlog.AuditLog) error,
) error {
	args := m.Called(ctx, batchSize, fn)
	return args.Error(0)
}

func (m *MockRepository) DeleteOlderThan(
	ctx context.Context,
	cutoff time.Time,
	category string,
) (int64, error) {
	args := m.Called(ctx, cutoff, category)
	deleted, _ := args.Get(0).(int64)
	return deleted, args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	count, _ := args.Get(0).(int64)
	return count, args.Error(1)
}
