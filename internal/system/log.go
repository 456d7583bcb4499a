package system

import "github.com/btcsuite/btclog/v2"

// log is this package's subsystem logger, following the per-package
// btclog convention used throughout this module (see
// internal/build/handler_set.go and cmd/actorcored/commands/run.go's
// UseLogger wiring). Disabled until UseLogger is called.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the subsystem logger used by the system package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
