// Package registry provides generation-checked handle tables for all
// native-side engine resources.
//
// Every physics body, audio voice, drawable and compute kernel lives in
// exactly one slot of exactly one per-kind table, reachable only
// through an opaque Handle. A Handle packs kind, generation and slot
// index into a single uint64, so it crosses the host boundary as a
// plain integer and survives any amount of copying.
//
// # Generations
//
// Freeing a slot bumps its generation, so every outstanding handle to
// the old resource goes stale at that instant. A stale handle always
// resolves to "not found", never to whatever newer resource happens to
// occupy the recycled slot. This is the property that makes handle
// reuse across a foreign boundary safe without reference counting.
//
// # Ownership
//
// The live registry is owned by the engine loop goroutine. Tables carry
// no locks on purpose: any cross-thread access is a bug in the caller,
// not a race to be papered over. All concurrent observation happens
// through the snapshot package.
package registry
