package command

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/terramodulus/ferricia/errors"
)

// DefaultRetention is how long a published result stays claimable
// after nobody waited for it.
const DefaultRetention = 30 * time.Second

// Board correlates tickets with their eventual results. The engine
// loop publishes; host threads wait. A wait that times out does not
// cancel the command; its result is still published and remains
// observable until swept.
type Board struct {
	mu        sync.Mutex
	entries   map[Ticket]*boardEntry
	clock     clock.Clock
	retention time.Duration
}

type boardEntry struct {
	done        chan struct{}
	result      Result
	publishedAt time.Time
	published   bool
}

// NewBoard creates a result board. clk may be nil for the real clock.
func NewBoard(clk clock.Clock, retention time.Duration) *Board {
	if clk == nil {
		clk = clock.New()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Board{
		entries:   make(map[Ticket]*boardEntry),
		clock:     clk,
		retention: retention,
	}
}

// open registers a ticket before its command becomes drainable. Called
// by the queue under its own lock, so a result can never be published
// for a ticket the board has not seen.
func (b *Board) open(t Ticket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[t] = &boardEntry{done: make(chan struct{})}
}

// Publish records the result for its ticket and wakes any waiter.
// Publishing an unknown or already-published ticket is a no-op.
func (b *Board) Publish(res Result) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[res.Ticket]
	if !ok || e.published {
		return
	}
	e.result = res
	e.published = true
	e.publishedAt = b.clock.Now()
	close(e.done)
}

// Wait blocks until the ticket's result is published or timeout
// elapses. On timeout the underlying command is unaffected and its
// result can still be claimed by a later Wait or TryClaim.
func (b *Board) Wait(t Ticket, timeout time.Duration) (Result, error) {
	b.mu.Lock()
	e, ok := b.entries[t]
	b.mu.Unlock()
	if !ok {
		return Result{}, errors.InvalidArgument(0, "unknown ticket %d", t)
	}

	timer := b.clock.Timer(timeout)
	defer timer.Stop()

	select {
	case <-e.done:
		return e.result, e.result.Err
	case <-timer.C:
		return Result{}, errors.Timeout("result not published within wait window")
	}
}

// TryClaim returns the result if it has been published, without
// blocking. The entry is removed on a successful claim.
func (b *Board) TryClaim(t Ticket) (Result, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[t]
	if !ok || !e.published {
		return Result{}, false
	}
	delete(b.entries, t)
	return e.result, true
}

// Sweep drops published results older than the retention window so
// fire-and-forget traffic cannot grow the board without bound.
func (b *Board) Sweep() {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.clock.Now().Add(-b.retention)
	for t, e := range b.entries {
		if e.published && e.publishedAt.Before(cutoff) {
			delete(b.entries, t)
		}
	}
}

// Open returns the number of tickets the board currently tracks.
func (b *Board) Open() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
