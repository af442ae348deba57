// Package snapshot publishes immutable per-tick views of engine state.
//
// The live registry and subsystem state are owned by the engine loop
// goroutine. Everything any other goroutine is allowed to see lives
// here: once per tick the loop builds a fresh Snapshot, fills it, and
// swaps it in atomically. Host reads are a pointer load plus a value
// copy: no locks on the hot read path and no torn state.
package snapshot
