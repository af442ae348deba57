package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/errors"
	"github.com/terramodulus/ferricia/registry"
	"github.com/terramodulus/ferricia/snapshot"
)

// State is the loop lifecycle. Transitions only move forward; Stopped
// is terminal.
type State uint8

const (
	StateUninitialized State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// boardSweepTicks is how many ticks pass between result-board sweeps.
// Sweeping from the loop keeps the submit path free of map scans.
const boardSweepTicks = 64

// Config tunes the loop's timing.
type Config struct {
	// TickInterval paces the loop. Default 1/60 s.
	TickInterval time.Duration

	// PhysicsStep is the fixed simulation timestep. Default 1/120 s.
	PhysicsStep time.Duration

	// MaxCatchUpSteps bounds physics catch-up within one tick so a
	// stall cannot spiral: excess accumulated time beyond the bound is
	// dropped and logged, leftover fractional time always carries over.
	// Default 5.
	MaxCatchUpSteps int
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second / 60
	}
	if c.PhysicsStep <= 0 {
		c.PhysicsStep = time.Second / 120
	}
	if c.MaxCatchUpSteps <= 0 {
		c.MaxCatchUpSteps = 5
	}
	return c
}

// Options wires the loop to its collaborators. Queue, Board, Registry
// and Publisher must be the same instances the gateway uses.
type Options struct {
	Queue     *command.Queue
	Board     *command.Board
	Registry  *registry.Registry
	Publisher *snapshot.Publisher
	Clock     clock.Clock
	Adapters  []Adapter
	Config    Config
}

// Loop is the engine scheduler: the single goroutine permitted to
// mutate subsystem state and the live registry. It drains the command
// queue each tick, applies commands in the fixed subsystem order,
// steps the simulation, and publishes a snapshot.
type Loop struct {
	queue    *command.Queue
	board    *command.Board
	registry *registry.Registry
	pub      *snapshot.Publisher
	clock    clock.Clock
	cfg      Config

	adapters  [len(ferricia.TickOrder) + 1]Adapter
	presenter Presenter

	state atomic.Uint32
	stop  chan struct{}
	done  chan struct{}

	tick     uint64
	acc      time.Duration
	drainBuf []command.Pending
	deferred []command.Pending
	perKind  [len(ferricia.TickOrder) + 1][]command.Pending
}

// NewLoop creates a loop. It does not start ticking until Start.
func NewLoop(opts Options) *Loop {
	l := &Loop{
		queue:    opts.Queue,
		board:    opts.Board,
		registry: opts.Registry,
		pub:      opts.Publisher,
		clock:    opts.Clock,
		cfg:      opts.Config.withDefaults(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if l.clock == nil {
		l.clock = clock.New()
	}
	for _, a := range opts.Adapters {
		l.adapters[a.Subsystem()] = a
		if p, ok := a.(Presenter); ok {
			l.presenter = p
		}
	}
	return l
}

// State returns the loop's lifecycle state. Safe from any goroutine.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Start transitions Uninitialized→Running and spawns the loop
// goroutine. A second Start fails.
func (l *Loop) Start(ctx context.Context) error {
	if !l.state.CompareAndSwap(uint32(StateUninitialized), uint32(StateRunning)) {
		return errors.Unavailable(0, "engine already started")
	}
	Logger().Info("engine loop starting",
		zap.Duration("tick_interval", l.cfg.TickInterval),
		zap.Duration("physics_step", l.cfg.PhysicsStep),
		zap.Int("max_catch_up", l.cfg.MaxCatchUpSteps))
	go l.run(ctx)
	return nil
}

// Stop requests the Running→Stopping transition. It returns once the
// loop has fully stopped. A loop that never started goes straight to
// Stopped; stopping an already-stopped loop is a no-op.
func (l *Loop) Stop() {
	if l.state.CompareAndSwap(uint32(StateUninitialized), uint32(StateStopped)) {
		close(l.done)
	}
	if l.state.CompareAndSwap(uint32(StateRunning), uint32(StateStopping)) {
		close(l.stop)
	}
	<-l.done
}

// Done is closed when the loop reaches Stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run(ctx context.Context) {
	ticker := l.clock.Ticker(l.cfg.TickInterval)
	defer ticker.Stop()

	last := l.clock.Now()
	for {
		select {
		case <-l.stop:
			l.shutdown()
			return
		case <-ctx.Done():
			l.state.CompareAndSwap(uint32(StateRunning), uint32(StateStopping))
			l.shutdown()
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if !l.runTick(dt) {
				l.state.CompareAndSwap(uint32(StateRunning), uint32(StateStopping))
				l.shutdown()
				return
			}
		}
	}
}

// runTick executes one full tick. It returns false when a fatal error
// corrupted loop invariants and the engine must stop.
func (l *Loop) runTick(dt time.Duration) bool {
	l.tick++
	healthy := true

	// Drain once; everything enqueued up to this point applies this
	// tick, in arrival order within each subsystem.
	l.drainBuf = l.queue.Drain(l.drainBuf[:0])
	drained := len(l.drainBuf)

	for i := range l.perKind {
		l.perKind[i] = l.perKind[i][:0]
	}
	l.deferred = l.deferred[:0]
	for _, p := range l.drainBuf {
		if !p.Cmd.Subsystem.Valid() {
			l.publishResult(p, command.Result{
				Err: errors.InvalidArgument(p.Cmd.Subsystem, "unknown subsystem %d", p.Cmd.Subsystem),
			})
			continue
		}
		if p.Cmd.Op == command.OpDestroy {
			// Destroys apply at end of tick so no command drained this
			// tick can reference a half-destroyed resource.
			l.deferred = append(l.deferred, p)
			continue
		}
		l.perKind[p.Cmd.Subsystem] = append(l.perKind[p.Cmd.Subsystem], p)
	}

	for _, kind := range ferricia.TickOrder {
		for _, p := range l.perKind[kind] {
			if !l.applyOne(p) {
				healthy = false
			}
		}
	}

	steps, dropped := l.stepPhysics(dt)
	for _, kind := range [...]ferricia.Subsystem{ferricia.SubsystemAudio, ferricia.SubsystemCompute} {
		a := l.adapters[kind]
		if a == nil {
			continue
		}
		if err := a.Tick(dt); err != nil {
			// Degraded for the remainder of this tick; retried next tick.
			Logger().Warn("subsystem tick failed",
				zap.Stringer("subsystem", kind), zap.Error(err))
		}
	}

	var frame snapshot.FrameStats
	if l.presenter != nil {
		f, err := l.presenter.Present()
		if err != nil {
			Logger().Warn("present failed", zap.Error(err))
		} else {
			frame = f
		}
	}

	for _, p := range l.deferred {
		if !l.applyOne(p) {
			healthy = false
		}
	}

	s := snapshot.New(l.tick)
	s.EngineState = uint8(l.State())
	s.Frame = frame
	s.Loop = snapshot.LoopStats{
		PhysicsSteps: steps,
		DroppedTime:  dropped,
		Commands:     drained,
		Live:         l.registry.Live(),
	}
	for _, kind := range ferricia.TickOrder {
		if a := l.adapters[kind]; a != nil {
			a.Collect(s)
		}
	}
	l.pub.Publish(s)

	if l.board != nil && l.tick%boardSweepTicks == 0 {
		l.board.Sweep()
	}

	return healthy
}

// applyOne routes one command to its adapter and publishes the result.
// It returns false only for fatal errors.
func (l *Loop) applyOne(p command.Pending) bool {
	a := l.adapters[p.Cmd.Subsystem]
	if a == nil {
		l.publishResult(p, command.Result{
			Err: errors.Unavailable(p.Cmd.Subsystem, "subsystem not present in this profile"),
		})
		return true
	}

	res := a.Apply(p.Cmd)
	l.publishResult(p, res)

	if res.Err != nil && errors.Fatal(res.Err) {
		Logger().Error("fatal engine error, stopping",
			zap.Stringer("subsystem", p.Cmd.Subsystem), zap.Error(res.Err))
		return false
	}
	return true
}

// stepPhysics advances the fixed-step accumulator. Leftover fractional
// time carries over; time beyond the catch-up bound is dropped.
func (l *Loop) stepPhysics(dt time.Duration) (int, time.Duration) {
	phys := l.adapters[ferricia.SubsystemPhysics]
	if phys == nil {
		return 0, 0
	}

	l.acc += dt
	steps := 0
	for l.acc >= l.cfg.PhysicsStep && steps < l.cfg.MaxCatchUpSteps {
		if err := phys.Tick(l.cfg.PhysicsStep); err != nil {
			Logger().Warn("physics step failed",
				zap.Int("step", steps), zap.Error(err))
			break
		}
		l.acc -= l.cfg.PhysicsStep
		steps++
	}

	var dropped time.Duration
	if l.acc >= l.cfg.PhysicsStep {
		dropped = l.acc - l.acc%l.cfg.PhysicsStep
		l.acc -= dropped
		Logger().Warn("physics catch-up bound hit, dropping time",
			zap.Duration("dropped", dropped),
			zap.Int("max_steps", l.cfg.MaxCatchUpSteps))
	}
	return steps, dropped
}

// shutdown performs the Stopping work: fail whatever is still queued,
// release every resource, shut adapters down, and land in Stopped.
func (l *Loop) shutdown() {
	l.drainBuf = l.queue.Drain(l.drainBuf[:0])
	for _, p := range l.drainBuf {
		l.publishResult(p, command.Result{
			Err: errors.Unavailable(p.Cmd.Subsystem, "engine stopping"),
		})
	}

	l.registry.Clear()
	for _, kind := range ferricia.TickOrder {
		if a := l.adapters[kind]; a != nil {
			a.Shutdown()
		}
	}

	s := snapshot.New(l.tick + 1)
	s.EngineState = uint8(StateStopped)
	l.pub.Publish(s)

	l.state.Store(uint32(StateStopped))
	close(l.done)
	Logger().Info("engine loop stopped", zap.Uint64("ticks", l.tick))
}

func (l *Loop) publishResult(p command.Pending, res command.Result) {
	res.Ticket = p.Ticket
	res.Tick = l.tick
	if l.board != nil {
		l.board.Publish(res)
	}
}
