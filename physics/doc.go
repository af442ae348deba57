// Package physics is the rigid-body subsystem adapter.
//
// Bodies are bounding spheres integrated with semi-implicit Euler under
// configurable gravity, with pairwise impulse contact resolution, an
// optional floor plane, per-body damping and sleeping. The engine loop
// drives the world with a fixed timestep, so simulation results are
// independent of render framerate.
//
// The heavy solver the original engine delegates to an external
// rigid-body library; this package keeps that role behind the same
// adapter surface, so swapping the integrator out never touches the
// loop or the boundary.
package physics
