// Package dbtest holds test doubles for the database layer.
package dbtest

import (
	"context"
	"sync"
)

// Tx is a Transactor for in-memory stores. Calls are serialized so the
// fakes behave like row-locked transactions; nested calls join the outer one.
type Tx struct {
	mu sync.Mutex
}

type joinedKey struct{}

func (t *Tx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(joinedKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(context.WithValue(ctx, joinedKey{}, true))
}
