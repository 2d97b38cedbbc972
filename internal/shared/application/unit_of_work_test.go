package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type txMarker struct{}

func TestWithUnitOfWork(t *testing.T) {
	t.Run("commits after the body succeeds", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		txCtx := context.WithValue(ctx, txMarker{}, "tx")

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)

		var seen context.Context
		err := WithUnitOfWork(ctx, uow, func(ctx context.Context) error {
			seen = ctx
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, txCtx, seen)
		uow.AssertExpectations(t)
		uow.AssertNotCalled(t, "Rollback", mock.Anything)
	})

	t.Run("rolls back and returns the body error", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		bodyErr := errors.New("boom")

		uow.On("Begin", ctx).Return(ctx, nil)
		uow.On("Rollback", ctx).Return(nil)

		err := WithUnitOfWork(ctx, uow, func(context.Context) error { return bodyErr })

		assert.ErrorIs(t, err, bodyErr)
		uow.AssertExpectations(t)
		uow.AssertNotCalled(t, "Commit", mock.Anything)
	})

	t.Run("does not run the body when begin fails", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		beginErr := errors.New("no connection")

		uow.On("Begin", ctx).Return(ctx, beginErr)

		ran := false
		err := WithUnitOfWork(ctx, uow, func(context.Context) error {
			ran = true
			return nil
		})

		assert.ErrorIs(t, err, beginErr)
		assert.False(t, ran)
	})
}

func TestNoopUnitOfWork_PassesContextThrough(t *testing.T) {
	ctx := context.WithValue(context.Background(), txMarker{}, "x")
	var seen context.Context
	err := WithUnitOfWork(ctx, NoopUnitOfWork{}, func(c context.Context) error {
		seen = c
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, ctx, seen)
}
