package engine

import (
	"time"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/snapshot"
)

// Adapter is the uniform contract every subsystem wrapper implements.
// All methods are called only by the engine loop goroutine; adapters
// never need internal locking for engine state.
//
// Each adapter exclusively owns its external library context and the
// resources it creates. Failures from Apply are returned as engine
// errors and attached to the originating command's result; they never
// stop the loop.
type Adapter interface {
	// Subsystem identifies the adapter for command routing.
	Subsystem() ferricia.Subsystem

	// Apply executes one command. The returned result carries the
	// created handle or op-specific value; the loop stamps ticket and
	// tick. Result.Err must be a *errors.Error on failure.
	Apply(cmd command.Command) command.Result

	// Tick advances the subsystem by dt. Physics is stepped with the
	// fixed timestep, possibly several times per loop tick; other
	// subsystems get the loop tick interval once. A Tick error marks
	// the subsystem degraded for the remainder of this tick; the next
	// tick retries normally.
	Tick(dt time.Duration) error

	// Collect writes the adapter's queryable state into the snapshot
	// being built for this tick.
	Collect(s *snapshot.Snapshot)

	// Shutdown releases the adapter's external context. Called once,
	// during the Stopping transition, after the registry is cleared.
	Shutdown()
}

// Presenter is additionally implemented by the render adapter. Present
// runs after every subsystem has ticked, so it observes the physics
// transforms updated earlier in the same tick.
type Presenter interface {
	Present() (snapshot.FrameStats, error)
}
