package tool_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ragindexer/features/tool"
)

func TestCachedRegistry_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("Hit After First Lookup", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("Get", ctx, "t1").Return(&tool.Tool{ID: "t1", Name: "Slack"}, nil).Once()

		reg, err := tool.NewCachedRegistry(repo, 8)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			got, err := reg.Get(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, "Slack", got.Name)
		}
		repo.AssertNumberOfCalls(t, "Get", 1)
	})

	t.Run("Misses Are Not Cached", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("Get", ctx, "gone").Return(nil, tool.ErrNotFound).Twice()

		reg, err := tool.NewCachedRegistry(repo, 8)
		require.NoError(t, err)

		_, err = reg.Get(ctx, "gone")
		assert.ErrorIs(t, err, tool.ErrNotFound)
		_, err = reg.Get(ctx, "gone")
		assert.ErrorIs(t, err, tool.ErrNotFound)
		repo.AssertExpectations(t)
	})

	t.Run("Purge", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("Get", ctx, "t1").Return(&tool.Tool{ID: "t1"}, nil).Twice()

		reg, err := tool.NewCachedRegistry(repo, 8)
		require.NoError(t, err)

		_, _ = reg.Get(ctx, "t1")
		reg.Purge()
		_, _ = reg.Get(ctx, "t1")
		repo.AssertExpectations(t)
	})
}

func TestCachedRegistry_Create(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	repo.On("Create", ctx, mock.AnythingOfType("*tool.Tool")).Run(func(args mock.Arguments) {
		args.Get(1).(*tool.Tool).ID = "created"
	}).Return(nil)

	reg, err := tool.NewCachedRegistry(repo, 0)
	require.NoError(t, err)

	require.NoError(t, reg.Create(ctx, &tool.Tool{Name: "Jira"}))

	got, err := reg.Get(ctx, "created")
	require.NoError(t, err)
	assert.Equal(t, "Jira", got.Name)
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
