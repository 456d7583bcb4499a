package system

import "errors"

// ErrTargetNotFound fails a pending ask when Ask is given an address with
// no locally-registered instance. Send has no error return and routes such
// messages to the dead-letter record instead.
var ErrTargetNotFound = errors.New("system: target address not found")

// ErrAlreadySpawned is returned by Spawn when the computed address
// collides with an already-running instance.
var ErrAlreadySpawned = errors.New("system: address already spawned")
