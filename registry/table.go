package registry

import (
	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/errors"
)

// EventType labels a resource lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventFreed
)

// Event describes one resource lifecycle transition.
type Event struct {
	Value  any
	Handle Handle
	Type   EventType
}

// Observer receives resource lifecycle notifications. Observers run on
// the engine loop goroutine and must not block.
type Observer interface {
	OnResourceEvent(Event)
}

// Dropper is optionally implemented by resource values that need
// cleanup when their slot is freed.
type Dropper interface {
	Drop()
}

type slot struct {
	value any
	gen   uint32
	live  bool
}

// Table is the slot table for one subsystem kind. It is exclusively
// owned by the engine loop goroutine: no internal locking, by the same
// ownership rule that keeps the whole live registry single-threaded.
// Cross-thread reads go through published snapshots, never through a
// Table.
type Table struct {
	slots     []slot
	freeList  []uint32
	observers []Observer
	kind      ferricia.Subsystem
	cap       int
	live      int
}

// NewTable creates a slot table for kind holding at most capacity live
// resources.
func NewTable(kind ferricia.Subsystem, capacity int) *Table {
	return &Table{
		slots:    make([]slot, 0, min(capacity, 64)),
		freeList: make([]uint32, 0, 16),
		kind:     kind,
		cap:      capacity,
	}
}

// Allocate stores value and returns its handle. It never blocks; once
// the table holds its configured capacity of live resources it fails
// with ResourceExhausted, deterministically and never before.
func (t *Table) Allocate(value any) (Handle, error) {
	if t.live >= t.cap {
		return 0, errors.Exhausted(t.kind, t.cap)
	}

	var index uint32
	if n := len(t.freeList); n > 0 {
		index = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		s := &t.slots[index]
		s.value = value
		s.live = true
	} else {
		t.slots = append(t.slots, slot{value: value, gen: 1, live: true})
		index = uint32(len(t.slots) - 1)
	}
	t.live++

	h := Pack(t.kind, t.slots[index].gen, index)
	t.notify(Event{Type: EventCreated, Handle: h, Value: value})
	return h, nil
}

// Resolve returns the live value for h. A stale generation resolves to
// (nil, false) even when the slot index has been reused for a newer
// resource.
func (t *Table) Resolve(h Handle) (any, bool) {
	s := t.lookup(h)
	if s == nil {
		return nil, false
	}
	return s.value, true
}

// Free releases the resource behind h and bumps the slot generation so
// every outstanding copy of h goes stale. Values implementing Dropper
// are cleaned up before the slot is recycled.
func (t *Table) Free(h Handle) error {
	s := t.lookup(h)
	if s == nil {
		return errors.InvalidHandle(t.kind, uint64(h))
	}

	value := s.value
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	s.value = nil
	s.live = false
	s.gen = (s.gen + 1) & genMask
	if s.gen == 0 {
		// Generation wrapped; skip 0 so freed handles stay invalid.
		s.gen = 1
	}
	t.freeList = append(t.freeList, h.Index())
	t.live--

	t.notify(Event{Type: EventFreed, Handle: h, Value: value})
	return nil
}

// Len returns the number of live resources.
func (t *Table) Len() int {
	return t.live
}

// Cap returns the configured capacity.
func (t *Table) Cap() int {
	return t.cap
}

// Each iterates live resources in slot order. Return false to stop.
func (t *Table) Each(fn func(Handle, any) bool) {
	for i := range t.slots {
		s := &t.slots[i]
		if !s.live {
			continue
		}
		if !fn(Pack(t.kind, s.gen, uint32(i)), s.value) {
			return
		}
	}
}

// Clear frees every live resource. Used during engine shutdown.
func (t *Table) Clear() {
	for i := range t.slots {
		s := &t.slots[i]
		if !s.live {
			continue
		}
		h := Pack(t.kind, s.gen, uint32(i))
		value := s.value
		if d, ok := value.(Dropper); ok {
			d.Drop()
		}
		s.value = nil
		s.live = false
		s.gen = (s.gen + 1) & genMask
		if s.gen == 0 {
			s.gen = 1
		}
		t.freeList = append(t.freeList, uint32(i))
		t.live--
		t.notify(Event{Type: EventFreed, Handle: h, Value: value})
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.observers = append(t.observers, o)
}

func (t *Table) lookup(h Handle) *slot {
	if h == 0 || h.Kind() != t.kind {
		return nil
	}
	index := h.Index()
	if int(index) >= len(t.slots) {
		return nil
	}
	s := &t.slots[index]
	if !s.live || s.gen != h.Generation() {
		return nil
	}
	return s
}

func (t *Table) notify(e Event) {
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
