package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
}

// DefaultTxOptions uses READ COMMITTED. Conditional stock updates rely on it: a
// blocked UPDATE re-checks its WHERE clause against the committed row instead of
// failing with a serialization error.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		ReadOnly:       false,
	}
}

// WithTransaction runs fn inside one transaction. The transaction is committed
// only when fn returns nil; any error or panic rolls it back.
func WithTransaction(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{
		Isolation: opts.IsolationLevel,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		// A cancelled context already rolled the transaction back.
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
