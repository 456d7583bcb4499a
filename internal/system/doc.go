// Package system wires the actor runtime's components together into the
// single entry point applications use: spawn, send, ask, system event
// subscription, and a coordinated shutdown that drains every mailbox
// before the correlation manager and scheduler are torn down.
//
// It is the only package in this module that imports
// internal/baselib/actor, internal/correlation, internal/scheduler,
// internal/supervisor, and internal/directory all at once — everything
// else in those packages is independent and unaware of the others.
package system
