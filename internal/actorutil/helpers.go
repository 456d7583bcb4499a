// Package actorutil provides convenience helpers layered on top of
// internal/system's spawn/send/ask primitives: blocking ask-await,
// fan-out/fan-in across multiple addresses, and fn.Result slice
// combinators. None of this is part of the core runtime — every function
// here is expressible in terms of System.Ask/Send alone.
package actorutil

import (
	"context"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/elkhart-labs/actorcore/internal/baselib/actor"
	"github.com/elkhart-labs/actorcore/internal/system"
)

// AskAwait sends msg to to and blocks until the reply (or ctx
// cancellation/timeout) is available, unpacking the Result directly.
func AskAwait(ctx context.Context, sys *system.System, to actor.Address,
	msg actor.Message, timeout time.Duration) (actor.Message, error) {

	future := sys.Ask(ctx, to, msg, timeout)

	return future.Await(ctx).Unpack()
}

// AskAwaitTyped is like AskAwait but additionally type-asserts the reply to
// T, useful when an actor's reply is a union and the caller expects one
// specific member of it.
func AskAwaitTyped[T any](ctx context.Context, sys *system.System, to actor.Address,
	msg actor.Message, timeout time.Duration) (T, error) {

	reply, err := AskAwait(ctx, sys, to, msg, timeout)
	if err != nil {
		var zero T

		return zero, err
	}

	typed, ok := reply.(T)
	if !ok {
		var zero T

		return zero, fmt.Errorf("actorutil: unexpected reply type: got %T, want %T", reply, zero)
	}

	return typed, nil
}

// TellAll sends msg, fire-and-forget, to every address in to.
func TellAll(ctx context.Context, sys *system.System, to []actor.Address, msg actor.Message) {
	for _, addr := range to {
		sys.Send(ctx, addr, msg)
	}
}

// ParallelAsk sends one message per address concurrently and awaits every
// reply, in input order. to and msgs must be the same length.
func ParallelAsk(ctx context.Context, sys *system.System, to []actor.Address,
	msgs []actor.Message, timeout time.Duration) []fn.Result[any] {

	if len(to) != len(msgs) {
		panic("actorutil: to and msgs must have the same length")
	}

	futures := make([]actor.Future[any], len(to))
	for i, addr := range to {
		futures[i] = sys.Ask(ctx, addr, msgs[i], timeout)
	}

	return awaitAll(ctx, futures)
}

// ParallelAskSame sends the same message to every address concurrently and
// awaits every reply, in input order.
func ParallelAskSame(ctx context.Context, sys *system.System, to []actor.Address,
	msg actor.Message, timeout time.Duration) []fn.Result[any] {

	futures := make([]actor.Future[any], len(to))
	for i, addr := range to {
		futures[i] = sys.Ask(ctx, addr, msg, timeout)
	}

	return awaitAll(ctx, futures)
}

func awaitAll(ctx context.Context, futures []actor.Future[any]) []fn.Result[any] {
	results := make([]fn.Result[any], len(futures))
	for i, f := range futures {
		results[i] = f.Await(ctx)
	}

	return results
}

// FirstSuccess asks every address the same message concurrently and
// returns the first successful reply. If every ask fails, the last
// observed error is returned.
func FirstSuccess(ctx context.Context, sys *system.System, to []actor.Address,
	msg actor.Message, timeout time.Duration) (actor.Message, error) {

	if len(to) == 0 {
		return nil, fmt.Errorf("actorutil: no addresses provided")
	}

	type indexed struct {
		result fn.Result[any]
	}

	resultCh := make(chan indexed, len(to))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, addr := range to {
		go func(a actor.Address) {
			future := sys.Ask(ctx, a, msg, timeout)
			res := future.Await(ctx)

			select {
			case resultCh <- indexed{result: res}:
			case <-ctx.Done():
			}
		}(addr)
	}

	var lastErr error

	for received := 0; received < len(to); received++ {
		select {
		case res := <-resultCh:
			val, err := res.result.Unpack()
			if err == nil {
				cancel()

				return val, nil
			}
			lastErr = err

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// MapResponses transforms each successful result with mapFn, passing
// errors through unchanged.
func MapResponses[T any](results []fn.Result[any], mapFn func(any) T) []fn.Result[T] {
	mapped := make([]fn.Result[T], len(results))
	for i, r := range results {
		val, err := r.Unpack()
		if err != nil {
			mapped[i] = fn.Err[T](err)

			continue
		}
		mapped[i] = fn.Ok(mapFn(val))
	}

	return mapped
}

// CollectSuccesses returns only the successful values from results,
// discarding errors.
func CollectSuccesses(results []fn.Result[any]) []any {
	var out []any
	for _, r := range results {
		if val, err := r.Unpack(); err == nil {
			out = append(out, val)
		}
	}

	return out
}

// AllSucceeded reports whether every result in results is successful.
func AllSucceeded(results []fn.Result[any]) bool {
	for _, r := range results {
		if _, err := r.Unpack(); err != nil {
			return false
		}
	}

	return true
}

// FirstError returns the first error found in results, or nil if every
// result succeeded.
func FirstError(results []fn.Result[any]) error {
	for _, r := range results {
		if _, err := r.Unpack(); err != nil {
			return err
		}
	}

	return nil
}
