// Package testbed drives the assembled engine through its public
// gateway only, the way an embedding host would.
package testbed

import (
	"context"
	"testing"
	"time"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/audio"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/engine"
	"github.com/terramodulus/ferricia/errors"
	"github.com/terramodulus/ferricia/gateway"
	"github.com/terramodulus/ferricia/physics"
	"github.com/terramodulus/ferricia/registry"
	"github.com/terramodulus/ferricia/render"
	"github.com/terramodulus/ferricia/snapshot"
)

func start(t *testing.T, opts gateway.Options) *gateway.Gateway {
	t.Helper()
	if opts.Engine.TickInterval == 0 {
		opts.Engine.TickInterval = time.Millisecond
	}
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = 5 * time.Second
	}
	g := gateway.New(context.Background(), opts)
	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(g.Stop)
	return g
}

func await(t *testing.T, g *gateway.Gateway, pred func(*snapshot.Snapshot) bool) *snapshot.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s := g.Snapshot(); pred(s) {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("snapshot condition not reached")
	return nil
}

func mustCreate(t *testing.T, g *gateway.Gateway, sub ferricia.Subsystem, params any) registry.Handle {
	t.Helper()
	res, err := g.SubmitWait(command.Command{Subsystem: sub, Op: command.OpCreate, Payload: params})
	if err != nil {
		t.Fatalf("create %v failed: %v", sub, err)
	}
	return res.Handle
}

func TestScene_AllSubsystemsInOneSnapshot(t *testing.T) {
	surface := &render.Headless{}
	g := start(t, gateway.Options{Surface: surface})

	body := mustCreate(t, g, ferricia.SubsystemPhysics, physics.BodyParams{
		Position: ferricia.Vec3{Y: 3}, Mass: 1,
	})
	voice := mustCreate(t, g, ferricia.SubsystemAudio, audio.VoiceParams{
		Source: audio.Source{Samples: make([]int16, 4800), Channels: 1, SampleRate: 48000},
		Gain:   1,
	})
	drawable := mustCreate(t, g, ferricia.SubsystemRender, render.DrawableParams{
		Body: body, Visible: true,
	})
	if drawable.Kind() != ferricia.SubsystemRender {
		t.Fatalf("drawable handle has kind %v", drawable.Kind())
	}

	s := await(t, g, func(s *snapshot.Snapshot) bool {
		_, haveBody := s.Bodies[body]
		_, haveVoice := s.Voices[voice]
		return haveBody && haveVoice && s.Frame.Draws >= 1
	})
	if s.Loop.Live != 3 {
		t.Fatalf("expected 3 live resources, got %d", s.Loop.Live)
	}
}

func TestDrawableFollowsFallingBody(t *testing.T) {
	surface := &render.Headless{}
	g := start(t, gateway.Options{Surface: surface})

	body := mustCreate(t, g, ferricia.SubsystemPhysics, physics.BodyParams{
		Position: ferricia.Vec3{Y: 100}, Mass: 1,
	})
	mustCreate(t, g, ferricia.SubsystemRender, render.DrawableParams{
		Body: body, Visible: true,
	})

	await(t, g, func(s *snapshot.Snapshot) bool {
		b, ok := s.Bodies[body]
		if !ok || b.Transform.Position.Y >= 99 {
			return false
		}
		// The presented item tracks the falling body, not the static
		// creation position.
		last := surface.LastFrame()
		return len(last.Items) == 1 && last.Items[0].Position.Y < 99
	})
}

func TestSameTickOrdering_SetBeforeDeferredDestroy(t *testing.T) {
	// Queue everything against an unstarted engine so the first tick
	// drains one deterministic batch: the destroy is enqueued before
	// the set-prop, yet the set-prop must still succeed because
	// destroys apply at end of tick.
	g := gateway.New(context.Background(), gateway.Options{
		Engine:      engine.Config{TickInterval: time.Millisecond},
		WaitTimeout: 5 * time.Second,
	})

	ct, err := g.CreateResource(ferricia.SubsystemPhysics, physics.BodyParams{Mass: 1})
	if err != nil {
		t.Fatalf("create submit failed: %v", err)
	}

	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(g.Stop)

	res, err := g.Wait(ct, 5*time.Second)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	h := res.Handle

	// Both commands land in the queue between two ticks virtually
	// always; verify via matching result ticks and retry if the tick
	// boundary split them.
	for attempt := 0; attempt < 20; attempt++ {
		dt, err := g.DestroyResource(h)
		if err != nil {
			t.Fatalf("destroy submit failed: %v", err)
		}
		st, err := g.SetProperty(h, physics.SetProp{Prop: physics.PropVelocity, Vec: ferricia.Vec3{X: 1}})
		if err != nil {
			t.Fatalf("set submit failed: %v", err)
		}

		dres, err := g.Wait(dt, 5*time.Second)
		if err != nil {
			t.Fatalf("destroy failed: %v", err)
		}
		sres, _ := g.Wait(st, 5*time.Second)

		if dres.Tick != sres.Tick {
			// Split across ticks; rebuild the body and try again.
			cres, err := g.SubmitWait(command.Command{
				Subsystem: ferricia.SubsystemPhysics,
				Op:        command.OpCreate,
				Payload:   physics.BodyParams{Mass: 1},
			})
			if err != nil {
				t.Fatalf("recreate failed: %v", err)
			}
			h = cres.Handle
			continue
		}

		if sres.Err != nil {
			t.Fatalf("same-tick set-prop failed despite deferred destroy: %v", sres.Err)
		}
		return
	}
	t.Skip("could not land destroy and set-prop in the same tick")
}

func TestQueueSaturationBackpressure(t *testing.T) {
	g := gateway.New(context.Background(), gateway.Options{QueueCapacity: 4})

	cmd := command.Command{
		Subsystem: ferricia.SubsystemPhysics,
		Op:        command.OpCreate,
		Payload:   physics.BodyParams{},
	}
	for i := 0; i < 4; i++ {
		if _, err := g.Submit(cmd); err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
	}
	if _, err := g.Submit(cmd); errors.CodeOf(err) != errors.CodeQueueFull {
		t.Fatalf("expected queue full, got %v", err)
	}

	// Draining frees capacity.
	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(g.Stop)
	await(t, g, func(s *snapshot.Snapshot) bool { return len(s.Bodies) == 4 })
	if _, err := g.Submit(cmd); err != nil {
		t.Fatalf("submit after drain failed: %v", err)
	}
}

func TestCatchUpBoundDropsTime(t *testing.T) {
	// 50ms ticks against a 1ms physics step want 50 sub-steps per
	// tick; the bound of 3 forces dropped time in every snapshot.
	g := start(t, gateway.Options{
		Engine: engine.Config{
			TickInterval:    50 * time.Millisecond,
			PhysicsStep:     time.Millisecond,
			MaxCatchUpSteps: 3,
		},
	})

	s := await(t, g, func(s *snapshot.Snapshot) bool {
		return s.Tick >= 2 && s.Loop.DroppedTime > 0
	})
	if s.Loop.PhysicsSteps > 3 {
		t.Fatalf("catch-up bound exceeded: %d steps", s.Loop.PhysicsSteps)
	}
}

func TestStopPublishesStoppedSnapshot(t *testing.T) {
	g := gateway.New(context.Background(), gateway.Options{
		Engine: engine.Config{TickInterval: time.Millisecond},
	})
	if err := g.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	mustCreate(t, g, ferricia.SubsystemPhysics, physics.BodyParams{Mass: 1})
	g.Stop()

	if g.EngineState() != engine.StateStopped {
		t.Fatalf("engine state %v after Stop", g.EngineState())
	}
	s := g.Snapshot()
	if s.EngineState != uint8(engine.StateStopped) {
		t.Fatalf("final snapshot state %d", s.EngineState)
	}
	if s.Loop.Live != 0 || len(s.Bodies) != 0 {
		t.Fatalf("final snapshot still has resources: %+v", s.Loop)
	}
}
