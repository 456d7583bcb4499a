// Package actor implements the core of an actor runtime: addressable,
// single-threaded message-processing instances backed by a bounded mailbox,
// a uniform behavior-dispatch contract, and an ask/reply future for
// request-response messaging.
//
// This package intentionally knows nothing about supervision, directories,
// or scheduling — those live in sibling packages (internal/supervisor,
// internal/directory, internal/scheduler) and are wired together by
// internal/system.System.
package actor
