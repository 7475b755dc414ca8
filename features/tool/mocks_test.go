package tool_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ragindexer/features/tool"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Get(ctx context.Context, id string) (*tool.Tool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tool.Tool), args.Error(1)
}

func (m *MockRepo) List(ctx context.Context) ([]tool.Tool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tool.Tool), args.Error(1)
}

func (m *MockRepo) Create(ctx context.Context, t *tool.Tool) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
