package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/glassline/admin-dashboard/repositories"
)

// WithTransaction runs fn inside a transaction. fn receives the transaction's
// context so repositories join it. A domain error returned by fn passes
// through unchanged after rollback; any other failure, including begin and
// commit, comes back as ErrStoreUnavailable.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	_, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// WithTransactionResult is WithTransaction for functions that produce a value.
// The zero value is returned whenever the transaction does not commit.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) (T, error)) (T, error) {
	var zero T

	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return zero, ErrStoreUnavailable.Wrap(fmt.Errorf("begin transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	result, err := fn(tx.Context(), tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return zero, asStoreError(err)
	}

	if err := tx.Commit(); err != nil {
		return zero, ErrStoreUnavailable.Wrap(fmt.Errorf("commit transaction: %w", err))
	}

	return result, nil
}

func asStoreError(err error) error {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return ErrStoreUnavailable.Wrap(err)
}
