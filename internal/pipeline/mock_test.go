package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/dse-bonds/internal/model"
	"github.com/sells-group/dse-bonds/internal/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ExistingTradeDates(ctx context.Context, dates []string) ([]string, error) {
	args := m.Called(ctx, dates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) LoadBatch(ctx context.Context, trades []model.BondTrade) (*store.LoadResult, error) {
	args := m.Called(ctx, trades)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.LoadResult), args.Error(1)
}

func (m *mockStore) RecordUpload(ctx context.Context, u *model.Upload) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockStore) ListUploads(ctx context.Context, filter store.UploadFilter) ([]model.Upload, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Upload), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
