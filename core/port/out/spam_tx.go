package out

import (
	"context"
	"sync"
)

// Tx is a unit of work shared by several stores through the context.
// Stores that join it leave committing to the owner, defer their
// invalidations until Commit and register undo steps for Rollback.
type Tx struct {
	handle any

	mu         sync.Mutex
	onCommit   []func(context.Context)
	onRollback []func()
}

type txKey struct{}

// NewTx wraps a backend transaction handle. Memory stores pass nil.
func NewTx(handle any) *Tx {
	return &Tx{handle: handle}
}

// WithTx returns a context carrying tx.
func WithTx(ctx context.Context, tx *Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFrom returns the unit of work carried by ctx.
func TxFrom(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return tx, ok && tx != nil
}

// Handle returns the backend transaction handle.
func (t *Tx) Handle() any {
	return t.handle
}

// AfterCommit registers fn to run once the owner committed.
func (t *Tx) AfterCommit(fn func(ctx context.Context)) {
	t.mu.Lock()
	t.onCommit = append(t.onCommit, fn)
	t.mu.Unlock()
}

// OnRollback registers an undo step. Steps run in reverse order.
func (t *Tx) OnRollback(fn func()) {
	t.mu.Lock()
	t.onRollback = append(t.onRollback, fn)
	t.mu.Unlock()
}

// Committed runs the commit callbacks. Called by the owner after its commit.
func (t *Tx) Committed(ctx context.Context) {
	t.mu.Lock()
	fns := t.onCommit
	t.onCommit, t.onRollback = nil, nil
	t.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}

// RolledBack runs the undo steps. Called by the owner after a failure.
func (t *Tx) RolledBack() {
	t.mu.Lock()
	fns := t.onRollback
	t.onCommit, t.onRollback = nil, nil
	t.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
