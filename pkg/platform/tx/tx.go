// Package tx carries an open SQL transaction through a context so writes
// from different packages can join one atomic commit. The audit store uses
// this to persist its event in the same transaction as the business write
// that produced it.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

// Executor is the subset of *sql.DB and *sql.Tx the stores write through.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WithTx returns a context carrying the transaction. A nil tx leaves the
// context unchanged.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From extracts the transaction, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}

// ExecutorOr returns the context's transaction when present, the fallback
// otherwise.
func ExecutorOr(ctx context.Context, fallback Executor) Executor {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return fallback
}
