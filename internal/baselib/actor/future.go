package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Future represents the result of an in-flight ask. It allows a caller to
// block until the result is available (Await) or register a callback to be
// invoked when it is (OnComplete).
type Future[T any] interface {
	// Await blocks until the result is available or ctx is cancelled,
	// whichever happens first. A cancelled ctx yields
	// fn.Err[T](ctx.Err()).
	Await(ctx context.Context) fn.Result[T]

	// OnComplete registers fn to run when the result becomes available.
	// If ctx is cancelled first, fn runs once with the context's error.
	OnComplete(ctx context.Context, fn func(fn.Result[T]))
}

// Promise is the write side of a Future: exactly one of its Complete calls
// wins, and that result is what every Await/OnComplete observer sees.
type Promise[T any] interface {
	// Future returns the read side of this promise.
	Future() Future[T]

	// Complete attempts to resolve the future with result. Returns true
	// if this call was the first to resolve it.
	Complete(result fn.Result[T]) bool
}

// chanPromise is a channel-backed Promise/Future pair. done is closed
// exactly once, by whichever Complete call wins the race (guarded by once).
type chanPromise[T any] struct {
	once   sync.Once
	done   chan struct{}
	result fn.Result[T]
}

// NewPromise creates an unresolved Promise[T].
func NewPromise[T any]() Promise[T] {
	return &chanPromise[T]{
		done: make(chan struct{}),
	}
}

func (p *chanPromise[T]) Complete(result fn.Result[T]) bool {
	won := false
	p.once.Do(func() {
		p.result = result
		close(p.done)
		won = true
	})

	return won
}

func (p *chanPromise[T]) Future() Future[T] {
	return p
}

func (p *chanPromise[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-p.done:
		return p.result

	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

func (p *chanPromise[T]) OnComplete(ctx context.Context, cb func(fn.Result[T])) {
	go func() {
		select {
		case <-p.done:
			cb(p.result)

		case <-ctx.Done():
			cb(fn.Err[T](ctx.Err()))
		}
	}()
}
