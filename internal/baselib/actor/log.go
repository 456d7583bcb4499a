package actor

import "github.com/btcsuite/btclog/v2"

// log is this package's subsystem logger. It defaults to a disabled logger
// so the package is silent until a caller wires up a real one via UseLogger,
// matching the lnd-style per-package logging convention used throughout this
// module (see internal/build.HandlerSet and cmd/actorcored/commands/run.go).
var log btclog.Logger = btclog.Disabled

// UseLogger sets the subsystem logger used by the actor package. Callers
// typically pass a btclog.Logger obtained from an internal/build.HandlerSet
// so actor lifecycle events are interleaved with the rest of the daemon's
// logs.
func UseLogger(logger btclog.Logger) {
	log = logger
}
