package supervisor

import "github.com/btcsuite/btclog/v2"

// log is this package's subsystem logger, following the per-package
// btclog convention used throughout this module. Disabled until
// UseLogger is called.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-level logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
