package command

import (
	"sync"

	"github.com/terramodulus/ferricia/errors"
)

// DefaultCapacity bounds the queue when no capacity is configured.
const DefaultCapacity = 1024

// Queue is the bounded multi-producer/single-consumer command channel
// between host threads and the engine loop. It is a single logical
// FIFO: commands from one producer keep their order, and commands from
// different producers interleave in enqueue-arrival order.
//
// Enqueue never blocks; a saturated queue rejects with QueueFull and
// leaves its contents untouched.
type Queue struct {
	mu    sync.Mutex
	buf   []Pending
	head  int
	count int
	next  Ticket
	board *Board
}

// NewQueue creates a queue holding at most capacity commands. The
// board, when non-nil, has a ticket opened for every accepted command
// before that command becomes visible to the consumer.
func NewQueue(capacity int, board *Board) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		buf:   make([]Pending, capacity),
		next:  1,
		board: board,
	}
}

// Enqueue appends cmd and returns its ticket. It fails with QueueFull
// at capacity; the caller may retry or shed load.
func (q *Queue) Enqueue(cmd Command) (Ticket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.buf) {
		return 0, errors.QueueFull(len(q.buf))
	}

	t := q.next
	q.next++
	if q.board != nil {
		q.board.open(t)
	}

	q.buf[(q.head+q.count)%len(q.buf)] = Pending{Cmd: cmd, Ticket: t}
	q.count++
	return t, nil
}

// Drain moves everything enqueued so far into dst, in arrival order,
// and empties the queue. Only the engine loop calls Drain.
func (q *Queue) Drain(dst []Pending) []Pending {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := 0; i < q.count; i++ {
		p := q.buf[(q.head+i)%len(q.buf)]
		q.buf[(q.head+i)%len(q.buf)] = Pending{}
		dst = append(dst, p)
	}
	q.head = 0
	q.count = 0
	return dst
}

// Len returns the number of commands waiting to be drained.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the configured capacity.
func (q *Queue) Cap() int {
	return len(q.buf)
}
