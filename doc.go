// Package ferricia is the core of the Ferricia native engine: a
// host-driven simulation runtime combining rigid-body physics, audio
// mixing, frame-paced rendering and sandboxed compute kernels behind a
// single foreign-call boundary.
//
// # Architecture Overview
//
// The engine reconciles two execution models: reentrant, possibly
// concurrent calls arriving from a host application, and a continuously
// running native simulation loop. All mutation flows one way:
//
//	host call → gateway → command queue → engine loop → subsystem adapter
//
// and all observation flows the other way through immutable snapshots
// published once per tick. The packages:
//
//	ferricia/            Root package: subsystem tags, shared value types
//	├── errors/          Structured engine error taxonomy
//	├── registry/        Generation-checked resource handle tables
//	├── command/         Bounded command queue, tickets, result board
//	├── snapshot/        Immutable per-tick state views
//	├── engine/          The simulation loop and adapter contract
//	├── physics/         Rigid-body world adapter
//	├── audio/           Voice mixer adapter
//	├── render/          Draw-list/present adapter
//	├── compute/         WebAssembly kernel-dispatch adapter
//	├── gateway/         The host-facing call surface
//	├── asset/           Asset pack reading (zip + zstd)
//	├── fetch/           Asynchronous remote asset fetching
//	└── config/          Environment-driven configuration
//
// # Quick Start
//
// Start an engine and drive it through the gateway:
//
//	gw := gateway.New(ctx, gateway.Options{})
//	if err := gw.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer gw.Stop()
//
//	ticket, err := gw.CreateResource(ferricia.SubsystemPhysics, physics.BodyParams{
//	    Mass:     1,
//	    Radius:   0.5,
//	    Position: ferricia.Vec3{Y: 10},
//	})
//
// Results arrive asynchronously; read them back with gw.Wait or observe
// the effect in the next snapshot via the Query methods.
//
// # Threading Model
//
// One dedicated loop goroutine owns every subsystem and the live
// resource registry. Host goroutines only ever enqueue value-copied
// commands and read published snapshots; they never touch live engine
// state. See the engine package for the full ownership rules.
package ferricia
