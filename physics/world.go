package physics

import (
	"time"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/errors"
	"github.com/terramodulus/ferricia/registry"
	"github.com/terramodulus/ferricia/snapshot"
)

// Config tunes the world.
type Config struct {
	// Gravity applied to every dynamic body. Defaults to Earth gravity
	// along -Y.
	Gravity ferricia.Vec3

	// Floor, when set, keeps bodies above the y=0 plane with a bounce.
	Floor bool
}

// World is the rigid-body subsystem adapter. It owns every body it
// creates, registered in its slot table, and is driven exclusively by
// the engine loop: commands via Apply, fixed sub-steps via Tick.
type World struct {
	table   *registry.Table
	gravity ferricia.Vec3
	floor   bool

	// pairs is reused across ticks to avoid per-step allocation.
	pairs [][2]*body
}

// NewWorld creates the physics adapter over its resource table.
func NewWorld(table *registry.Table, cfg Config) *World {
	g := cfg.Gravity
	if g == (ferricia.Vec3{}) {
		g = ferricia.Vec3{Y: -9.81}
	}
	return &World{table: table, gravity: g, floor: cfg.Floor}
}

func (w *World) Subsystem() ferricia.Subsystem { return ferricia.SubsystemPhysics }

// Apply executes one physics command.
func (w *World) Apply(cmd command.Command) command.Result {
	switch cmd.Op {
	case command.OpCreate:
		params, ok := cmd.Payload.(BodyParams)
		if !ok {
			return fail(errors.InvalidArgument(ferricia.SubsystemPhysics, "create payload must be BodyParams, got %T", cmd.Payload))
		}
		h, err := w.table.Allocate(newBody(params))
		if err != nil {
			return fail(err)
		}
		return command.Result{Handle: h}

	case command.OpDestroy:
		if err := w.table.Free(cmd.Handle); err != nil {
			return fail(err)
		}
		return command.Result{Handle: cmd.Handle}

	case command.OpSetProp:
		b, ok := w.resolve(cmd.Handle)
		if !ok {
			return fail(errors.InvalidHandle(ferricia.SubsystemPhysics, uint64(cmd.Handle)))
		}
		set, ok := cmd.Payload.(SetProp)
		if !ok {
			return fail(errors.InvalidArgument(ferricia.SubsystemPhysics, "set payload must be SetProp, got %T", cmd.Payload))
		}
		return w.setProp(b, set)

	case command.OpInvoke:
		b, ok := w.resolve(cmd.Handle)
		if !ok {
			return fail(errors.InvalidHandle(ferricia.SubsystemPhysics, uint64(cmd.Handle)))
		}
		imp, ok := cmd.Payload.(Impulse)
		if !ok {
			return fail(errors.InvalidArgument(ferricia.SubsystemPhysics, "invoke payload must be Impulse, got %T", cmd.Payload))
		}
		if !b.static {
			b.velocity = b.velocity.Add(imp.Linear.Scale(b.invMass))
			b.wake()
		}
		return command.Result{Handle: cmd.Handle}
	}
	return fail(errors.InvalidArgument(ferricia.SubsystemPhysics, "unknown op %v", cmd.Op))
}

func (w *World) setProp(b *body, set SetProp) command.Result {
	switch set.Prop {
	case PropPosition:
		b.transform.Position = set.Vec
	case PropVelocity:
		b.velocity = set.Vec
	case PropGravityScale:
		b.gravityScale = set.Scalar
	default:
		return fail(errors.InvalidArgument(ferricia.SubsystemPhysics, "unknown body property %d", set.Prop))
	}
	b.wake()
	return command.Result{}
}

// Tick runs one fixed sub-step: integrate, then resolve contacts.
func (w *World) Tick(dt time.Duration) error {
	w.table.Each(func(_ registry.Handle, v any) bool {
		v.(*body).integrate(dt, w.gravity)
		return true
	})
	w.resolveContacts()
	if w.floor {
		w.resolveFloor()
	}
	return nil
}

// resolveContacts does sphere-sphere detection over all pairs with
// positional correction and an impulse along the contact normal.
func (w *World) resolveContacts() {
	w.pairs = w.pairs[:0]
	var bodies []*body
	w.table.Each(func(_ registry.Handle, v any) bool {
		bodies = append(bodies, v.(*body))
		return true
	})

	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			if a.static && b.static {
				continue
			}
			delta := b.transform.Position.Sub(a.transform.Position)
			distSq := delta.LengthSq()
			minDist := a.radius + b.radius
			if distSq >= minDist*minDist || distSq == 0 {
				continue
			}
			w.collide(a, b, delta, minDist)
		}
	}
}

func (w *World) collide(a, b *body, delta ferricia.Vec3, minDist float64) {
	dist := delta.Length()
	normal := delta.Scale(1 / dist)
	penetration := minDist - dist

	// Separate proportionally to inverse mass.
	totalInv := a.invMass + b.invMass
	if totalInv == 0 {
		return
	}
	correction := normal.Scale(penetration / totalInv)
	a.transform.Position = a.transform.Position.Sub(correction.Scale(a.invMass))
	b.transform.Position = b.transform.Position.Add(correction.Scale(b.invMass))

	// Impulse along the normal, only for approaching bodies.
	relVel := b.velocity.Sub(a.velocity).Dot(normal)
	if relVel > 0 {
		return
	}
	e := min(a.restitution, b.restitution)
	j := -(1 + e) * relVel / totalInv
	impulse := normal.Scale(j)
	a.velocity = a.velocity.Sub(impulse.Scale(a.invMass))
	b.velocity = b.velocity.Add(impulse.Scale(b.invMass))
	a.wake()
	b.wake()
}

func (w *World) resolveFloor() {
	w.table.Each(func(_ registry.Handle, v any) bool {
		b := v.(*body)
		if b.static {
			return true
		}
		if bottom := b.transform.Position.Y - b.radius; bottom < 0 {
			b.transform.Position.Y -= bottom
			if b.velocity.Y < 0 {
				b.velocity.Y = -b.velocity.Y * b.restitution
			}
		}
		return true
	})
}

// Collect writes every body's state into the snapshot.
func (w *World) Collect(s *snapshot.Snapshot) {
	w.table.Each(func(h registry.Handle, v any) bool {
		b := v.(*body)
		s.Bodies[h] = snapshot.BodyState{
			Handle:    h,
			Transform: b.transform,
			Velocity:  b.velocity,
			Sleeping:  b.sleeping,
		}
		return true
	})
}

// Pose resolves a body handle to its current transform. Only the
// engine loop goroutine may call this; cross-subsystem consumers (the
// render graph) use it after physics has stepped, so the pose is this
// tick's.
func (w *World) Pose(h registry.Handle) (ferricia.Transform, bool) {
	b, ok := w.resolve(h)
	if !ok {
		return ferricia.Transform{}, false
	}
	return b.transform, true
}

// Shutdown releases nothing beyond the table, which the engine loop
// clears before calling this.
func (w *World) Shutdown() {}

func (w *World) resolve(h registry.Handle) (*body, bool) {
	v, ok := w.table.Resolve(h)
	if !ok {
		return nil, false
	}
	return v.(*body), true
}

func fail(err error) command.Result {
	return command.Result{Err: err}
}
