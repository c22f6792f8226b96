package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxRunner runs a function inside a unit of work.
// Services depend on this interface so tests can substitute an in-memory runner.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PgTxRunner runs units of work as PostgreSQL transactions on the scope connection.
type PgTxRunner struct{}

// NewTxRunner creates a TxRunner backed by the connection in context.
func NewTxRunner() *PgTxRunner {
	return &PgTxRunner{}
}

var _ TxRunner = (*PgTxRunner)(nil)

// RunInTx begins a transaction, calls fn with the transaction in context and commits.
// Any error from fn (or a panic) rolls the transaction back. A call nested inside
// an open transaction joins it instead of starting another.
func (r *PgTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTx(ctx) {
		return fn(ctx)
	}

	scope, ok := GetScope(ctx)
	if !ok {
		return ErrNoScope
	}

	tx, err := scope.Conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(context.WithValue(ctx, TxKey, tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
