// Package render is the draw-list subsystem adapter.
//
// Drawables reference physics bodies by handle only; each Present the
// graph resolves those handles to this tick's transforms, composes a
// layer-ordered draw list, and hands it to the Surface. Present runs
// last in the tick, so it always sees the physics state produced
// earlier in the same tick.
//
// The actual windowing and GPU work (SDL, OpenGL) stays behind
// Surface; Headless is the default for server profiles and tests.
package render
