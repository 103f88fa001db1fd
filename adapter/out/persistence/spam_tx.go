package persistence

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"

	"spam_filter/core/port/out"
)

// txScope is the out.Tx handle of the sqlx adapters. Statements on one
// connection must not overlap, so mu serializes them.
type txScope struct {
	tx *sqlx.Tx
	mu sync.Mutex
}

func newTxScope(tx *sqlx.Tx) *out.Tx {
	return out.NewTx(&txScope{tx: tx})
}

// joinedTx returns the sqlx transaction carried by ctx, if any.
func joinedTx(ctx context.Context) (*out.Tx, *txScope, bool) {
	utx, ok := out.TxFrom(ctx)
	if !ok {
		return nil, nil, false
	}
	scope, ok := utx.Handle().(*txScope)
	if !ok {
		return nil, nil, false
	}
	return utx, scope, true
}

// queryer picks the joined transaction or the pool. release must be called
// once the statement is done.
func queryer(ctx context.Context, db *sqlx.DB) (q sqlx.ExtContext, release func()) {
	if _, scope, ok := joinedTx(ctx); ok {
		scope.mu.Lock()
		return scope.tx, scope.mu.Unlock
	}
	return db, func() {}
}
