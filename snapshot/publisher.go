package snapshot

import "sync/atomic"

// Publisher swaps complete snapshots atomically. Readers never lock
// and never observe a partially written snapshot: they either get the
// previous tick's view or the new one, whole.
type Publisher struct {
	current atomic.Pointer[Snapshot]
}

// NewPublisher creates a publisher primed with an empty tick-zero
// snapshot so Latest never returns nil.
func NewPublisher() *Publisher {
	p := &Publisher{}
	p.current.Store(New(0))
	return p
}

// Publish makes s the latest snapshot. The caller must not touch s
// afterwards.
func (p *Publisher) Publish(s *Snapshot) {
	p.current.Store(s)
}

// Latest returns the most recently published snapshot. The result is
// shared and immutable; callers copy what they hand across a boundary.
func (p *Publisher) Latest() *Snapshot {
	return p.current.Load()
}
