// Package command carries host-originated requests into the engine
// loop.
//
// Hosts enqueue value-copied Command structs and receive a Ticket; the
// loop drains the queue once per tick, applies each command, and
// publishes a Result under that ticket on the Board. Application
// happens on a different thread than enqueue, which is the whole reason
// tickets exist.
//
// Ordering: the queue is one logical FIFO. A single producer's commands
// are applied in enqueue order; producers interleave in arrival order;
// each command is atomic: fully applied or not applied before the
// next.
//
// Backpressure: the queue is bounded and Enqueue never blocks. At
// capacity it fails with QueueFull and the queue contents are unchanged;
// the engine never silently drops a mutating request.
package command
