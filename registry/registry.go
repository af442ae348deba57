package registry

import (
	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/errors"
)

// Caps configures the per-kind live-resource capacity.
type Caps struct {
	Physics int
	Audio   int
	Compute int
	Render  int
}

// DefaultCaps are generous enough for a typical scene while still
// making exhaustion a deterministic, testable condition.
var DefaultCaps = Caps{
	Physics: 4096,
	Audio:   256,
	Compute: 64,
	Render:  8192,
}

func (c Caps) forKind(kind ferricia.Subsystem) int {
	switch kind {
	case ferricia.SubsystemPhysics:
		return c.Physics
	case ferricia.SubsystemAudio:
		return c.Audio
	case ferricia.SubsystemCompute:
		return c.Compute
	case ferricia.SubsystemRender:
		return c.Render
	}
	return 0
}

// Registry groups one slot table per subsystem kind. Like the tables it
// holds, it is owned by the engine loop goroutine; other goroutines
// observe resources only through published snapshots.
type Registry struct {
	tables [len(ferricia.TickOrder) + 1]*Table
}

// New creates a registry with the given per-kind caps. Zero or negative
// caps fall back to the defaults.
func New(caps Caps) *Registry {
	r := &Registry{}
	for _, kind := range ferricia.TickOrder {
		cap := caps.forKind(kind)
		if cap <= 0 {
			cap = DefaultCaps.forKind(kind)
		}
		r.tables[kind] = NewTable(kind, cap)
	}
	return r
}

// Kind returns the table for one subsystem, or nil for an invalid tag.
func (r *Registry) Kind(kind ferricia.Subsystem) *Table {
	if !kind.Valid() {
		return nil
	}
	return r.tables[kind]
}

// Resolve routes h to its kind's table.
func (r *Registry) Resolve(h Handle) (any, bool) {
	t := r.Kind(h.Kind())
	if t == nil {
		return nil, false
	}
	return t.Resolve(h)
}

// Free routes h to its kind's table.
func (r *Registry) Free(h Handle) error {
	t := r.Kind(h.Kind())
	if t == nil {
		return errors.InvalidHandle(h.Kind(), uint64(h))
	}
	return t.Free(h)
}

// Clear releases every live resource in every table.
func (r *Registry) Clear() {
	for _, kind := range ferricia.TickOrder {
		r.tables[kind].Clear()
	}
}

// Live returns the total number of live resources across all kinds.
func (r *Registry) Live() int {
	n := 0
	for _, kind := range ferricia.TickOrder {
		n += r.tables[kind].Len()
	}
	return n
}
