package physics

import (
	"testing"
	"time"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/errors"
	"github.com/terramodulus/ferricia/registry"
	"github.com/terramodulus/ferricia/snapshot"
)

func newTestWorld(cfg Config) (*World, *registry.Table) {
	table := registry.NewTable(ferricia.SubsystemPhysics, 64)
	return NewWorld(table, cfg), table
}

func create(t *testing.T, w *World, p BodyParams) registry.Handle {
	t.Helper()
	res := w.Apply(command.Command{Op: command.OpCreate, Payload: p})
	if res.Err != nil {
		t.Fatalf("create failed: %v", res.Err)
	}
	return res.Handle
}

func TestWorld_GravityIntegration(t *testing.T) {
	w, _ := newTestWorld(Config{})
	h := create(t, w, BodyParams{Mass: 1, Position: ferricia.Vec3{Y: 100}, Damping: 0.9999})

	step := time.Second / 120
	for i := 0; i < 120; i++ {
		if err := w.Tick(step); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}

	s := snapshot.New(1)
	w.Collect(s)
	b := s.Bodies[h]
	// After ~1s of free fall the body is below its spawn height and
	// moving down.
	if b.Transform.Position.Y >= 100 {
		t.Fatalf("body did not fall: y=%v", b.Transform.Position.Y)
	}
	if b.Velocity.Y >= 0 {
		t.Fatalf("body not moving down: vy=%v", b.Velocity.Y)
	}
}

func TestWorld_StaticBodyNeverMoves(t *testing.T) {
	w, _ := newTestWorld(Config{})
	h := create(t, w, BodyParams{Mass: 0, Position: ferricia.Vec3{Y: 5}})

	for i := 0; i < 60; i++ {
		w.Tick(time.Second / 120)
	}

	s := snapshot.New(1)
	w.Collect(s)
	if got := s.Bodies[h].Transform.Position; got != (ferricia.Vec3{Y: 5}) {
		t.Fatalf("static body moved to %v", got)
	}
}

func TestWorld_FloorBounce(t *testing.T) {
	w, _ := newTestWorld(Config{Floor: true})
	h := create(t, w, BodyParams{Mass: 1, Radius: 0.5, Position: ferricia.Vec3{Y: 2}, Restitution: 0.8})

	step := time.Second / 120
	lowest := 2.0
	for i := 0; i < 600; i++ {
		w.Tick(step)
		s := snapshot.New(uint64(i))
		w.Collect(s)
		y := s.Bodies[h].Transform.Position.Y
		if y < lowest {
			lowest = y
		}
	}

	// The floor keeps the sphere's bottom at or above the plane.
	if lowest < 0.5-1e-9 {
		t.Fatalf("body sank through floor: lowest center y=%v", lowest)
	}
}

func TestWorld_CollisionImpulseSeparates(t *testing.T) {
	w, _ := newTestWorld(Config{Gravity: ferricia.Vec3{Y: 0.001}}) // effectively no gravity
	a := create(t, w, BodyParams{Mass: 1, Radius: 1, Position: ferricia.Vec3{X: -0.5}, Velocity: ferricia.Vec3{X: 2}})
	b := create(t, w, BodyParams{Mass: 1, Radius: 1, Position: ferricia.Vec3{X: 0.5}, Velocity: ferricia.Vec3{X: -2}})

	w.Tick(time.Second / 120)

	s := snapshot.New(1)
	w.Collect(s)
	// Overlapping, approaching spheres get pushed apart and their
	// velocities reversed along the contact normal.
	if s.Bodies[a].Velocity.X >= 0 {
		t.Fatalf("body a still approaching: vx=%v", s.Bodies[a].Velocity.X)
	}
	if s.Bodies[b].Velocity.X <= 0 {
		t.Fatalf("body b still approaching: vx=%v", s.Bodies[b].Velocity.X)
	}
	gap := s.Bodies[b].Transform.Position.X - s.Bodies[a].Transform.Position.X
	if gap < 2-1e-9 {
		t.Fatalf("bodies still penetrating: gap=%v", gap)
	}
}

func TestWorld_SetPropertyAndImpulse(t *testing.T) {
	w, _ := newTestWorld(Config{})
	h := create(t, w, BodyParams{Mass: 2})

	res := w.Apply(command.Command{
		Op:      command.OpSetProp,
		Handle:  h,
		Payload: SetProp{Prop: PropPosition, Vec: ferricia.Vec3{X: 1, Y: 2, Z: 3}},
	})
	if res.Err != nil {
		t.Fatalf("set position failed: %v", res.Err)
	}

	res = w.Apply(command.Command{
		Op:      command.OpInvoke,
		Handle:  h,
		Payload: Impulse{Linear: ferricia.Vec3{X: 4}},
	})
	if res.Err != nil {
		t.Fatalf("impulse failed: %v", res.Err)
	}

	s := snapshot.New(1)
	w.Collect(s)
	if s.Bodies[h].Transform.Position != (ferricia.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("position not set: %v", s.Bodies[h].Transform.Position)
	}
	// Impulse of 4 on mass 2 adds 2 to velocity.
	if vx := s.Bodies[h].Velocity.X; vx != 2 {
		t.Fatalf("impulse misapplied: vx=%v", vx)
	}
}

func TestWorld_StaleHandleFails(t *testing.T) {
	w, _ := newTestWorld(Config{})
	h := create(t, w, BodyParams{Mass: 1})

	res := w.Apply(command.Command{Op: command.OpDestroy, Handle: h})
	if res.Err != nil {
		t.Fatalf("destroy failed: %v", res.Err)
	}

	res = w.Apply(command.Command{Op: command.OpSetProp, Handle: h, Payload: SetProp{Prop: PropVelocity}})
	if errors.CodeOf(res.Err) != errors.CodeInvalidHandle {
		t.Fatalf("expected InvalidHandle for stale handle, got %v", res.Err)
	}

	res = w.Apply(command.Command{Op: command.OpDestroy, Handle: h})
	if errors.CodeOf(res.Err) != errors.CodeInvalidHandle {
		t.Fatalf("expected InvalidHandle for double destroy, got %v", res.Err)
	}
}

func TestWorld_BadPayloadRejected(t *testing.T) {
	w, _ := newTestWorld(Config{})
	res := w.Apply(command.Command{Op: command.OpCreate, Payload: "not params"})
	if errors.CodeOf(res.Err) != errors.CodeInvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", res.Err)
	}
}

func TestWorld_SleepingBodyStopsIntegrating(t *testing.T) {
	// Near-zero gravity: the zero value would fall back to the Earth
	// default and keep the body accelerating forever.
	w, _ := newTestWorld(Config{Gravity: ferricia.Vec3{Y: 1e-9}})
	h := create(t, w, BodyParams{Mass: 1, Position: ferricia.Vec3{X: 1}})

	// No motion: the body falls asleep after the sleep window.
	for i := 0; i < 120; i++ {
		w.Tick(time.Second / 120)
	}

	s := snapshot.New(1)
	w.Collect(s)
	if !s.Bodies[h].Sleeping {
		t.Fatal("expected body to sleep")
	}

	// A host write wakes it.
	w.Apply(command.Command{Op: command.OpInvoke, Handle: h, Payload: Impulse{Linear: ferricia.Vec3{X: 1}}})
	s = snapshot.New(2)
	w.Collect(s)
	if s.Bodies[h].Sleeping {
		t.Fatal("impulse must wake the body")
	}
}
