package snapshot

import (
	"time"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/registry"
)

// BodyState is the queryable view of one rigid body.
type BodyState struct {
	Transform ferricia.Transform
	Velocity  ferricia.Vec3
	Handle    registry.Handle
	Sleeping  bool
}

// VoiceState is the queryable view of one audio voice.
type VoiceState struct {
	Handle   registry.Handle
	Position time.Duration
	Gain     float64
	Pan      float64
	Playing  bool
	Looping  bool
}

// KernelState is the queryable view of one compute kernel.
type KernelState struct {
	LastOutput []float32
	Handle     registry.Handle
	Dispatches uint64
}

// FrameStats summarizes the render subsystem's last presented frame.
type FrameStats struct {
	Frame       uint64
	Draws       int
	LastPresent time.Duration
}

// LoopStats summarizes the tick that produced a snapshot.
type LoopStats struct {
	// PhysicsSteps is how many fixed sub-steps ran this tick.
	PhysicsSteps int

	// DroppedTime is simulation time discarded by the catch-up bound.
	DroppedTime time.Duration

	// Commands is how many commands were drained this tick.
	Commands int

	// Live is the number of live resources across all kinds.
	Live int
}

// Snapshot is an immutable, versioned view of all queryable engine
// state, produced once per tick. Readers on any goroutine may hold one
// indefinitely; nothing in it is ever mutated after publication.
type Snapshot struct {
	Bodies  map[registry.Handle]BodyState
	Voices  map[registry.Handle]VoiceState
	Kernels map[registry.Handle]KernelState
	Frame   FrameStats
	Loop    LoopStats

	// Tick is the monotonic version of this snapshot.
	Tick uint64

	// EngineState is the loop's lifecycle value at publication, as
	// defined by the engine package.
	EngineState uint8
}

// New creates an empty snapshot for one tick. The engine loop fills it
// through the adapters' Collect calls, then publishes it; after that it
// is frozen by convention.
func New(tick uint64) *Snapshot {
	return &Snapshot{
		Bodies:  make(map[registry.Handle]BodyState),
		Voices:  make(map[registry.Handle]VoiceState),
		Kernels: make(map[registry.Handle]KernelState),
		Tick:    tick,
	}
}
