package services

import (
	"context"
	"errors"
	"testing"

	"github.com/glassline/admin-dashboard/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockTransactionManager is a mock implementation of TransactionManager
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

// MockTransaction is a mock implementation of Transaction
type MockTransaction struct {
	mock.Mock
	committed  bool
	rolledback bool
}

func (m *MockTransaction) Commit() error {
	args := m.Called()
	m.committed = true
	return args.Error(0)
}

func (m *MockTransaction) Rollback() error {
	args := m.Called()
	m.rolledback = true
	return args.Error(0)
}

func (m *MockTransaction) Context() context.Context {
	args := m.Called()
	return args.Get(0).(context.Context)
}

func TestWithTransaction_Success(t *testing.T) {
	ctx := context.Background()
	mockTxMgr := new(MockTransactionManager)
	mockTx := new(MockTransaction)

	mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("Context").Return(ctx)
	mockTx.On("Commit").Return(nil)

	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) error {
		// Simulate successful operation
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, mockTx.committed)
	assert.False(t, mockTx.rolledback)
	mockTxMgr.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestWithTransaction_ErrorInFunction(t *testing.T) {
	t.Run("store error becomes unavailable", func(t *testing.T) {
		ctx := context.Background()
		mockTxMgr := new(MockTransactionManager)
		mockTx := new(MockTransaction)
		storeErr := errors.New("connection reset")

		mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
		mockTx.On("Context").Return(ctx)
		mockTx.On("Rollback").Return(nil)

		err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) error {
			return storeErr
		})

		assert.True(t, errors.Is(err, ErrStoreUnavailable))
		assert.ErrorIs(t, err, storeErr)
		assert.False(t, mockTx.committed)
		assert.True(t, mockTx.rolledback)
		mockTx.AssertExpectations(t)
	})

	t.Run("domain error passes through", func(t *testing.T) {
		ctx := context.Background()
		mockTxMgr := new(MockTransactionManager)
		mockTx := new(MockTransaction)

		mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
		mockTx.On("Context").Return(ctx)
		mockTx.On("Rollback").Return(nil)

		err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) error {
			return ErrDuplicateName
		})

		assert.Equal(t, ErrDuplicateName, err)
		assert.True(t, mockTx.rolledback)
	})
}

func TestWithTransaction_BeginError(t *testing.T) {
	ctx := context.Background()
	mockTxMgr := new(MockTransactionManager)

	mockTxMgr.On("Begin", ctx).Return(nil, errors.New("too many connections"))

	called := false
	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) error {
		called = true
		return nil
	})

	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.Contains(t, err.Error(), "begin transaction")
	assert.False(t, called)
	mockTxMgr.AssertExpectations(t)
}

func TestWithTransaction_CommitError(t *testing.T) {
	ctx := context.Background()
	mockTxMgr := new(MockTransactionManager)
	mockTx := new(MockTransaction)

	mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("Context").Return(ctx)
	mockTx.On("Commit").Return(errors.New("commit failed"))

	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) error {
		return nil
	})

	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.Contains(t, err.Error(), "commit transaction")
	assert.True(t, mockTx.committed)
	mockTx.AssertExpectations(t)
}

func TestWithTransaction_RollbackError(t *testing.T) {
	ctx := context.Background()
	mockTxMgr := new(MockTransactionManager)
	mockTx := new(MockTransaction)

	mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("Context").Return(ctx)
	mockTx.On("Rollback").Return(errors.New("rollback failed"))

	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) error {
		return ErrPositionNotFound
	})

	// The domain error still decides the response
	assert.True(t, errors.Is(err, ErrPositionNotFound))
	assert.Contains(t, err.Error(), "rollback failed")
	assert.True(t, mockTx.rolledback)
	mockTx.AssertExpectations(t)
}

func TestWithTransaction_Panic(t *testing.T) {
	ctx := context.Background()
	mockTxMgr := new(MockTransactionManager)
	mockTx := new(MockTransaction)

	mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("Context").Return(ctx)
	mockTx.On("Rollback").Return(nil)

	assert.PanicsWithValue(t, "boom", func() {
		_ = WithTransaction(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) error {
			panic("boom")
		})
	})
	assert.True(t, mockTx.rolledback)
}

func TestWithTransactionResult_Success(t *testing.T) {
	ctx := context.Background()
	mockTxMgr := new(MockTransactionManager)
	mockTx := new(MockTransaction)
	expectedResult := "success"

	mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("Context").Return(ctx)
	mockTx.On("Commit").Return(nil)

	result, err := WithTransactionResult(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) (string, error) {
		return expectedResult, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, expectedResult, result)
	assert.True(t, mockTx.committed)
	assert.False(t, mockTx.rolledback)
	mockTxMgr.AssertExpectations(t)
	mockTx.AssertExpectations(t)
}

func TestWithTransactionResult_ErrorInFunction(t *testing.T) {
	ctx := context.Background()
	mockTxMgr := new(MockTransactionManager)
	mockTx := new(MockTransaction)

	mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("Context").Return(ctx)
	mockTx.On("Rollback").Return(nil)

	result, err := WithTransactionResult(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) (string, error) {
		return "partial", ErrInvalidInput
	})

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "", result)
	assert.False(t, mockTx.committed)
	assert.True(t, mockTx.rolledback)
}

func TestWithTransactionResult_CommitError(t *testing.T) {
	ctx := context.Background()
	mockTxMgr := new(MockTransactionManager)
	mockTx := new(MockTransaction)

	mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("Context").Return(ctx)
	mockTx.On("Commit").Return(errors.New("commit failed"))

	result, err := WithTransactionResult(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) (int, error) {
		return 42, nil
	})

	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.Equal(t, 0, result)
	assert.True(t, mockTx.committed)
}

type txMarker struct{}

func TestWithTransaction_PassesTransactionContext(t *testing.T) {
	ctx := context.Background()
	txCtx := context.WithValue(ctx, txMarker{}, "in-tx")
	mockTxMgr := new(MockTransactionManager)
	mockTx := new(MockTransaction)

	mockTxMgr.On("Begin", ctx).Return(mockTx, nil)
	mockTx.On("Context").Return(txCtx)
	mockTx.On("Commit").Return(nil)

	var seen interface{}
	err := WithTransaction(ctx, mockTxMgr, func(ctx context.Context, tx repositories.Transaction) error {
		seen = ctx.Value(txMarker{})
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "in-tx", seen)
	mockTx.AssertExpectations(t)
}
