package render

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/errors"
	"github.com/terramodulus/ferricia/registry"
	"github.com/terramodulus/ferricia/snapshot"
)

// DrawableParams is the OpCreate payload for a drawable.
type DrawableParams struct {
	// Body optionally binds the drawable to a physics body. The
	// reference is a handle, never an object: a stale body simply
	// stops contributing a pose.
	Body registry.Handle

	// Position is the static pose used when Body is zero or stale.
	Position ferricia.Vec3

	// Size is the drawable's extent in world units.
	Size ferricia.Vec3

	// Tint is packed RGBA.
	Tint uint32

	// Layer orders drawing; lower layers draw first.
	Layer int

	Visible bool
}

// Prop selects a drawable property for OpSetProp.
type Prop uint8

const (
	PropVisible Prop = iota + 1
	PropTint
	PropLayer
)

// SetProp is the OpSetProp payload.
type SetProp struct {
	Prop  Prop
	Flag  bool
	Value uint32
	Layer int
}

// DrawItem is one entry of a composed frame, fully resolved to values.
type DrawItem struct {
	Position ferricia.Vec3
	Size     ferricia.Vec3
	Tint     uint32
	Layer    int
}

// Frame is what a Surface presents: the tick's draw list in layer
// order.
type Frame struct {
	Items  []DrawItem
	Number uint64
}

// Surface is the boundary to the windowing/GPU collaborator. Headless
// is the default for server profiles and tests.
type Surface interface {
	Present(f *Frame) error
}

// Headless drops frames, keeping a copy of the last one for
// inspection. Safe to read from any goroutine while the loop presents.
type Headless struct {
	mu   sync.Mutex
	last Frame
}

// Present implements Surface. The item list is copied because the
// graph reuses its buffer across ticks.
func (h *Headless) Present(f *Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = Frame{Number: f.Number, Items: append([]DrawItem(nil), f.Items...)}
	return nil
}

// LastFrame returns the most recently presented frame.
func (h *Headless) LastFrame() Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// PoseSource resolves a physics body handle to its current transform.
// Called only on the engine loop goroutine, after physics has stepped,
// so the pose is this tick's.
type PoseSource func(registry.Handle) (ferricia.Transform, bool)

type drawable struct {
	body     registry.Handle
	position ferricia.Vec3
	size     ferricia.Vec3
	tint     uint32
	layer    int
	visible  bool
}

// Graph is the render subsystem adapter: it owns all drawables and
// composes them into frames presented once per tick.
type Graph struct {
	table   *registry.Table
	surface Surface
	poses   PoseSource
	clock   clock.Clock

	frame    uint64
	itemsBuf []DrawItem
}

// NewGraph creates the render adapter. poses may be nil when the
// physics subsystem is absent; clk may be nil for the real clock.
func NewGraph(table *registry.Table, surface Surface, poses PoseSource, clk clock.Clock) *Graph {
	if surface == nil {
		surface = &Headless{}
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Graph{table: table, surface: surface, poses: poses, clock: clk}
}

func (g *Graph) Subsystem() ferricia.Subsystem { return ferricia.SubsystemRender }

// Apply executes one render command.
func (g *Graph) Apply(cmd command.Command) command.Result {
	switch cmd.Op {
	case command.OpCreate:
		params, ok := cmd.Payload.(DrawableParams)
		if !ok {
			return fail(errors.InvalidArgument(ferricia.SubsystemRender, "create payload must be DrawableParams, got %T", cmd.Payload))
		}
		h, err := g.table.Allocate(&drawable{
			body:     params.Body,
			position: params.Position,
			size:     params.Size,
			tint:     params.Tint,
			layer:    params.Layer,
			visible:  params.Visible,
		})
		if err != nil {
			return fail(err)
		}
		return command.Result{Handle: h}

	case command.OpDestroy:
		if err := g.table.Free(cmd.Handle); err != nil {
			return fail(err)
		}
		return command.Result{Handle: cmd.Handle}

	case command.OpSetProp:
		v, ok := g.table.Resolve(cmd.Handle)
		if !ok {
			return fail(errors.InvalidHandle(ferricia.SubsystemRender, uint64(cmd.Handle)))
		}
		d := v.(*drawable)
		set, ok := cmd.Payload.(SetProp)
		if !ok {
			return fail(errors.InvalidArgument(ferricia.SubsystemRender, "set payload must be SetProp, got %T", cmd.Payload))
		}
		switch set.Prop {
		case PropVisible:
			d.visible = set.Flag
		case PropTint:
			d.tint = set.Value
		case PropLayer:
			d.layer = set.Layer
		default:
			return fail(errors.InvalidArgument(ferricia.SubsystemRender, "unknown drawable property %d", set.Prop))
		}
		return command.Result{}

	case command.OpInvoke:
		return fail(errors.InvalidArgument(ferricia.SubsystemRender, "render has no invokable actions"))
	}
	return fail(errors.InvalidArgument(ferricia.SubsystemRender, "unknown op %v", cmd.Op))
}

// Tick is a no-op; render's periodic work happens in Present.
func (g *Graph) Tick(time.Duration) error { return nil }

// Present composes the draw list against this tick's body poses and
// hands it to the surface.
func (g *Graph) Present() (snapshot.FrameStats, error) {
	g.frame++
	g.itemsBuf = g.itemsBuf[:0]

	g.table.Each(func(_ registry.Handle, v any) bool {
		d := v.(*drawable)
		if !d.visible {
			return true
		}
		pos := d.position
		if d.body != 0 && g.poses != nil {
			if pose, ok := g.poses(d.body); ok {
				pos = pose.Position
			}
		}
		g.itemsBuf = append(g.itemsBuf, DrawItem{
			Position: pos,
			Size:     d.size,
			Tint:     d.tint,
			Layer:    d.layer,
		})
		return true
	})

	sort.SliceStable(g.itemsBuf, func(i, j int) bool {
		return g.itemsBuf[i].Layer < g.itemsBuf[j].Layer
	})

	start := g.clock.Now()
	frame := Frame{Items: g.itemsBuf, Number: g.frame}
	if err := g.surface.Present(&frame); err != nil {
		return snapshot.FrameStats{}, errors.External(ferricia.SubsystemRender, -1, err)
	}

	return snapshot.FrameStats{
		Frame:       g.frame,
		Draws:       len(g.itemsBuf),
		LastPresent: g.clock.Since(start),
	}, nil
}

// Collect adds nothing: frame stats travel through Present's return
// and body transforms live in the physics section.
func (g *Graph) Collect(*snapshot.Snapshot) {}

// Shutdown releases the surface's window/GPU context when it owns one.
func (g *Graph) Shutdown() {}

func fail(err error) command.Result {
	return command.Result{Err: err}
}
