// Package coalesce collapses concurrent identical computations into one
// in-flight call whose result fans out to every waiter. A waiter that
// abandons its context detaches without cancelling the shared work.
package coalesce

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Group deduplicates computations by key.
type Group[T any] struct {
	sf singleflight.Group
}

// Do runs fn under key, attaching to an existing in-flight computation
// when one exists. The in-flight entry is removed once fn returns, so a
// later call recomputes. shared reports whether the result was delivered
// to more than one caller.
//
// fn must not observe the caller's ctx: the shared computation belongs to
// every attached waiter, and this caller cancelling only detaches it.
func (g *Group[T]) Do(ctx context.Context, key string, fn func() (T, error)) (v T, shared bool, err error) {
	ch := g.sf.DoChan(key, func() (interface{}, error) {
		return fn()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Shared, res.Err
		}
		return res.Val.(T), res.Shared, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// Forget drops the in-flight entry for key; future callers recompute.
func (g *Group[T]) Forget(key string) {
	g.sf.Forget(key)
}
