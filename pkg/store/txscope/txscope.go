// Package txscope provides ambient, context-carried database transactions.
//
// Run opens a transaction and stores it in the context; nested Run calls
// reuse the outer transaction so every operation joins exactly one commit
// point. Queriers pick the ambient transaction when present and fall back
// to the pool otherwise, so read paths work with or without a scope.
package txscope

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type contextKey struct{}

var scopeKey = contextKey{}

// scope is the per-transaction state carried in the context. depth counts
// nested Run calls; only the outermost one commits or rolls back. There
// are no savepoints: any failure aborts the whole scope.
type scope struct {
	tx    pgx.Tx
	depth int
}

// Run executes fn inside a transaction. If the context already carries a
// transaction the call nests and joins it; otherwise a new transaction is
// opened, committed when fn returns nil and rolled back when it errors.
func Run(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if s, ok := ctx.Value(scopeKey).(*scope); ok {
		s.depth++
		defer func() { s.depth-- }()
		return fn(ctx)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	s := &scope{tx: tx, depth: 1}
	err = fn(context.WithValue(ctx, scopeKey, s))
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// From returns the ambient transaction, or nil when the context carries
// none.
func From(ctx context.Context) pgx.Tx {
	if s, ok := ctx.Value(scopeKey).(*scope); ok {
		return s.tx
	}
	return nil
}

// QuerierFor returns the ambient transaction when one is present and the
// pool otherwise.
func QuerierFor(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx := From(ctx); tx != nil {
		return tx
	}
	return pool
}

// InScope reports whether the context carries an open transaction.
func InScope(ctx context.Context) bool {
	return From(ctx) != nil
}
