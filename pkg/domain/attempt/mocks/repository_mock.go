package mocks

import (
	"context"
	"time"

	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, row *attempt.InjectionAttempt) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockRepository) Query(
	ctx context.Context,
	filter attempt.Filter,
	page, pageSize int,
) ([]attempt.InjectionAttempt, int64, error) {
	args := m.Called(ctx, filter, page, pageSize)
	rows, _ := args.Get(0).([]attempt.InjectionAttempt)
	total, _ := args.Get(1).(int64)
	return rows, total, args.Error(2)
}

func (m *MockRepository) Stats(ctx context.Context) (*attempt.Stats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*attempt.Stats)
	return stats, args.Error(1)
}

func (m *MockRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	deleted, _ := args.Get(0).(int64)
	return deleted, args.Error(1)
}
