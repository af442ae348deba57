// Package config loads engine settings from the environment.
//
// Every knob has a FERRICIA_-prefixed variable and a default that
// matches the engine's own fallback, so an empty environment yields a
// working engine. Load validates cross-field constraints (the physics
// rate must keep up with the tick rate) and the accessors translate
// the flat environment view into each package's own config type.
package config
