// Package engine runs the simulation loop that owns all native engine
// state.
//
// Exactly one goroutine, the loop, may mutate subsystem state or the
// live registry. Host calls never reach it directly: they enter as
// queued commands and leave as published snapshots or ticket results.
//
// # Tick Anatomy
//
// Every tick, in order:
//
//  1. Drain the command queue (everything enqueued up to that point).
//  2. Apply non-destroy commands in fixed subsystem order: physics,
//     audio, compute, render. Destroys are set aside.
//  3. Step physics on the fixed-timestep accumulator, bounded by the
//     catch-up limit.
//  4. Tick audio and compute with the wall-clock delta.
//  5. Present the frame.
//  6. Apply the deferred destroys.
//  7. Build and publish the tick's snapshot.
//
// The fixed subsystem order makes intra-tick data dependencies
// deterministic: render always sees the transforms physics produced in
// the same tick.
//
// # Failure Policy
//
// A command failure becomes that command's result; the loop keeps
// running. A periodic (tick/present) failure degrades the subsystem for
// the remainder of the tick and is retried the next tick. Only a fatal
// invariant violation forces Stopping, where remaining commands fail
// with SubsystemUnavailable, all resources are released, and the loop
// lands in the terminal Stopped state.
package engine
