// Package gateway is the host-facing boundary of the engine.
//
// A Gateway assembles the whole engine (registry, command queue,
// result board, subsystem adapters, loop, snapshot publisher) and is
// the only type hosts touch. Any goroutine may call it concurrently:
// mutations go in as commands and come back as ticketed results;
// reads come from the latest published snapshot and never block the
// loop.
//
// The adapter set follows the profile. A client carries all four
// subsystems; a headless server carries physics and compute only, and
// commands for absent subsystems fail with a subsystem-unavailable
// result rather than an error at submit time.
//
// ResultCode flattens the error taxonomy to a stable int32 for
// callers on the other side of an FFI boundary.
package gateway
