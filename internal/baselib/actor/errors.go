package actor

import "errors"

// ErrActorTerminated indicates an operation failed because the target actor
// was stopped or in the process of shutting down.
var ErrActorTerminated = errors.New("actor terminated")

// ErrNotIdle is returned by Start when the actor is not in the Idle state.
var ErrNotIdle = errors.New("actor: start called on non-idle actor")

// ErrNotRunning is returned by Deliver when the actor is not Running.
var ErrNotRunning = errors.New("actor: not running")

// ErrMailboxFull is returned by Instance.Deliver when Enqueue reports the
// Failed verdict (the "fail" overflow policy at capacity).
var ErrMailboxFull = errors.New("actor: mailbox full")

// ErrMailboxClosed names a mailbox closed for new sends. Enqueue itself
// reports that case as the Failed verdict rather than as this error.
var ErrMailboxClosed = errors.New("actor: mailbox closed")
