package registry

import (
	"testing"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/errors"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

type dropCounter struct {
	drops *int
}

func (d dropCounter) Drop() { *d.drops = *d.drops + 1 }

func TestTable_AllocateResolveFree(t *testing.T) {
	table := NewTable(ferricia.SubsystemPhysics, 8)

	h, err := table.Allocate("body")
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if h == 0 {
		t.Fatal("expected non-zero handle")
	}
	if h.Kind() != ferricia.SubsystemPhysics {
		t.Fatalf("wrong kind: %v", h.Kind())
	}

	v, ok := table.Resolve(h)
	if !ok || v != "body" {
		t.Fatalf("Resolve = (%v, %v), want (body, true)", v, ok)
	}

	if err := table.Free(h); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table, got %d live", table.Len())
	}
}

func TestTable_StaleGenerationAfterReuse(t *testing.T) {
	table := NewTable(ferricia.SubsystemPhysics, 8)

	old, err := table.Allocate("first")
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if err := table.Free(old); err != nil {
		t.Fatalf("Free failed: %v", err)
	}

	// The freed slot index is recycled for the next allocation.
	fresh, err := table.Allocate("second")
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if fresh.Index() != old.Index() {
		t.Fatalf("expected slot reuse: old index %d, new index %d", old.Index(), fresh.Index())
	}
	if fresh.Generation() == old.Generation() {
		t.Fatal("expected a bumped generation on reuse")
	}

	if _, ok := table.Resolve(old); ok {
		t.Fatal("stale handle must not resolve to the reused slot's object")
	}
	v, ok := table.Resolve(fresh)
	if !ok || v != "second" {
		t.Fatalf("fresh handle failed to resolve: (%v, %v)", v, ok)
	}
}

func TestTable_ExhaustionIsDeterministic(t *testing.T) {
	const cap = 4
	table := NewTable(ferricia.SubsystemAudio, cap)

	handles := make([]Handle, 0, cap)
	for i := 0; i < cap; i++ {
		h, err := table.Allocate(i)
		if err != nil {
			t.Fatalf("allocation %d failed before cap: %v", i, err)
		}
		handles = append(handles, h)
	}

	if _, err := table.Allocate("overflow"); errors.CodeOf(err) != errors.CodeResourceExhausted {
		t.Fatalf("expected ResourceExhausted at cap, got %v", err)
	}

	// Freeing one slot makes exactly one allocation succeed again.
	if err := table.Free(handles[0]); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if _, err := table.Allocate("refill"); err != nil {
		t.Fatalf("allocation after free failed: %v", err)
	}
	if _, err := table.Allocate("overflow"); errors.CodeOf(err) != errors.CodeResourceExhausted {
		t.Fatalf("expected ResourceExhausted again, got %v", err)
	}
}

func TestTable_FreeUnknownHandle(t *testing.T) {
	table := NewTable(ferricia.SubsystemRender, 8)

	err := table.Free(Pack(ferricia.SubsystemRender, 1, 99))
	if errors.CodeOf(err) != errors.CodeInvalidHandle {
		t.Fatalf("expected InvalidHandle, got %v", err)
	}

	// A handle with the wrong kind tag never touches this table's slots.
	h, _ := table.Allocate("sprite")
	wrongKind := Pack(ferricia.SubsystemPhysics, h.Generation(), h.Index())
	if err := table.Free(wrongKind); errors.CodeOf(err) != errors.CodeInvalidHandle {
		t.Fatalf("expected InvalidHandle for wrong kind, got %v", err)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable(ferricia.SubsystemPhysics, 8)
	obs := &testObserver{}
	table.Subscribe(obs)

	h, _ := table.Allocate("body")
	if len(obs.events) != 1 || obs.events[0].Type != EventCreated {
		t.Fatalf("expected one created event, got %+v", obs.events)
	}
	if obs.events[0].Handle != h {
		t.Fatal("wrong handle in event")
	}

	table.Free(h)
	if len(obs.events) != 2 || obs.events[1].Type != EventFreed {
		t.Fatalf("expected freed event, got %+v", obs.events)
	}
}

func TestTable_ClearRunsDroppers(t *testing.T) {
	table := NewTable(ferricia.SubsystemCompute, 8)

	drops := 0
	for i := 0; i < 3; i++ {
		if _, err := table.Allocate(dropCounter{&drops}); err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
	}

	table.Clear()
	if drops != 3 {
		t.Fatalf("expected 3 drops, got %d", drops)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table after Clear, got %d", table.Len())
	}
}

func TestHandle_Packing(t *testing.T) {
	h := Pack(ferricia.SubsystemRender, 0x00abcdef, 0xdeadbeef)
	if h.Kind() != ferricia.SubsystemRender {
		t.Fatalf("kind roundtrip failed: %v", h.Kind())
	}
	if h.Generation() != 0x00abcdef {
		t.Fatalf("generation roundtrip failed: %#x", h.Generation())
	}
	if h.Index() != 0xdeadbeef {
		t.Fatalf("index roundtrip failed: %#x", h.Index())
	}
	if !h.Valid() {
		t.Fatal("expected structurally valid handle")
	}
	if Handle(0).Valid() {
		t.Fatal("zero handle must be invalid")
	}
}
