package gateway

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/audio"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/compute"
	"github.com/terramodulus/ferricia/engine"
	"github.com/terramodulus/ferricia/errors"
	"github.com/terramodulus/ferricia/physics"
	"github.com/terramodulus/ferricia/registry"
	"github.com/terramodulus/ferricia/render"
	"github.com/terramodulus/ferricia/snapshot"
)

// Profile selects which subsystems the gateway assembles.
type Profile uint8

const (
	// ProfileClient runs all four subsystems.
	ProfileClient Profile = iota

	// ProfileServer runs physics and compute only. Audio and render
	// commands are accepted at submit time and fail on the loop with a
	// subsystem-unavailable result.
	ProfileServer
)

// DefaultWaitTimeout bounds SubmitWait when no timeout is configured.
const DefaultWaitTimeout = 2 * time.Second

// Options configures a gateway.
type Options struct {
	Profile Profile

	// Engine tunes the loop; zero fields take the loop defaults.
	Engine engine.Config

	// Physics tunes the rigid-body world.
	Physics physics.Config

	// Compute tunes the kernel runner.
	Compute compute.Config

	// Caps overrides per-kind resource capacity; zero fields take the
	// registry defaults.
	Caps registry.Caps

	// QueueCapacity bounds the command queue.
	QueueCapacity int

	// WaitTimeout is the synchronous-wait window for SubmitWait.
	WaitTimeout time.Duration

	// Surface receives presented frames; nil means headless.
	Surface render.Surface

	// Sink receives mixed audio; nil means discard.
	Sink audio.Sink

	// Clock may be substituted in tests; nil means the real clock.
	Clock clock.Clock
}

// Gateway is the host's entry point into the engine.
type Gateway struct {
	queue *command.Queue
	board *command.Board
	reg   *registry.Registry
	pub   *snapshot.Publisher
	loop  *engine.Loop

	waitTimeout time.Duration
}

// New assembles an engine. ctx scopes the compute runtime; use the
// same context passed to Start.
func New(ctx context.Context, opts Options) *Gateway {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultWaitTimeout
	}

	board := command.NewBoard(opts.Clock, 0)
	queue := command.NewQueue(opts.QueueCapacity, board)
	reg := registry.New(opts.Caps)
	pub := snapshot.NewPublisher()

	world := physics.NewWorld(reg.Kind(ferricia.SubsystemPhysics), opts.Physics)
	runner := compute.NewRunner(ctx, reg.Kind(ferricia.SubsystemCompute), opts.Compute)

	adapters := []engine.Adapter{world, runner}
	if opts.Profile == ProfileClient {
		mixer := audio.NewMixer(reg.Kind(ferricia.SubsystemAudio), audio.Config{Sink: opts.Sink})
		graph := render.NewGraph(reg.Kind(ferricia.SubsystemRender), opts.Surface, world.Pose, opts.Clock)
		adapters = append(adapters, mixer, graph)
	}

	loop := engine.NewLoop(engine.Options{
		Queue:     queue,
		Board:     board,
		Registry:  reg,
		Publisher: pub,
		Clock:     opts.Clock,
		Adapters:  adapters,
		Config:    opts.Engine,
	})

	Logger().Info("gateway assembled",
		zap.Uint8("profile", uint8(opts.Profile)),
		zap.Int("adapters", len(adapters)))

	return &Gateway{
		queue:       queue,
		board:       board,
		reg:         reg,
		pub:         pub,
		loop:        loop,
		waitTimeout: opts.WaitTimeout,
	}
}

// Start begins ticking. ctx cancellation stops the engine as if Stop
// were called.
func (g *Gateway) Start(ctx context.Context) error {
	return g.loop.Start(ctx)
}

// Stop shuts the engine down and blocks until it reaches Stopped.
// Commands still queued fail with subsystem-unavailable results.
func (g *Gateway) Stop() {
	g.loop.Stop()
}

// EngineState returns the loop lifecycle state.
func (g *Gateway) EngineState() engine.State {
	return g.loop.State()
}

// Submit enqueues one command for the next tick and returns its
// ticket. It never blocks: a full queue rejects with QueueFull, a
// stopping or stopped engine with SubsystemUnavailable.
func (g *Gateway) Submit(cmd command.Command) (command.Ticket, error) {
	switch g.loop.State() {
	case engine.StateStopping, engine.StateStopped:
		return 0, errors.Unavailable(cmd.Subsystem, "engine is "+g.loop.State().String())
	}
	return g.queue.Enqueue(cmd)
}

// SubmitWait enqueues cmd and blocks for its result up to the
// configured wait timeout. A timeout does not cancel the command; its
// result stays claimable via TryResult.
func (g *Gateway) SubmitWait(cmd command.Command) (command.Result, error) {
	t, err := g.Submit(cmd)
	if err != nil {
		return command.Result{}, err
	}
	return g.board.Wait(t, g.waitTimeout)
}

// Wait blocks for one ticket's result with an explicit timeout.
func (g *Gateway) Wait(t command.Ticket, timeout time.Duration) (command.Result, error) {
	return g.board.Wait(t, timeout)
}

// TryResult claims a published result without blocking.
func (g *Gateway) TryResult(t command.Ticket) (command.Result, bool) {
	return g.board.TryClaim(t)
}

// Snapshot returns the latest published snapshot. Never nil; before
// the first tick it is the empty tick-zero snapshot.
func (g *Gateway) Snapshot() *snapshot.Snapshot {
	return g.pub.Latest()
}

// ResultCode flattens err into the stable FFI code space: 0 for
// success, otherwise the error taxonomy code. Non-engine errors map
// to the fatal code.
func ResultCode(err error) int32 {
	if err == nil {
		return 0
	}
	if c := errors.CodeOf(err); c != 0 {
		return int32(c)
	}
	return int32(errors.CodeFatal)
}
