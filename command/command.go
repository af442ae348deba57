package command

import (
	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/registry"
)

// Op discriminates the command variants the host can submit.
type Op uint8

const (
	// OpCreate allocates a new resource in the target subsystem. The
	// payload carries that subsystem's creation parameters.
	OpCreate Op = iota + 1

	// OpDestroy frees the resource behind Handle. Destroys are deferred
	// to the end of the tick they are drained in, so commands from the
	// same tick never observe a half-destroyed resource.
	OpDestroy

	// OpSetProp updates one property of the resource behind Handle.
	OpSetProp

	// OpInvoke triggers a subsystem action (impulse, seek, dispatch).
	OpInvoke
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpDestroy:
		return "destroy"
	case OpSetProp:
		return "set_prop"
	case OpInvoke:
		return "invoke"
	}
	return "unknown"
}

// Command is one queued, ordered mutation request. Payloads are concrete
// value types declared by the target subsystem's package; they are
// copied at the boundary and never alias host memory.
type Command struct {
	Payload   any
	Handle    registry.Handle
	Subsystem ferricia.Subsystem
	Op        Op
}

// Ticket correlates an enqueued command with its eventual result.
// Tickets are engine-unique and never reused.
type Ticket uint64

// Pending is a command as drained by the engine loop, paired with the
// ticket its result must be published under.
type Pending struct {
	Cmd    Command
	Ticket Ticket
}

// Result is the outcome of one applied (or rejected) command.
type Result struct {
	// Err is nil on success, otherwise a *errors.Error.
	Err error

	// Handle is the created resource's handle for OpCreate results.
	Handle registry.Handle

	// Value carries op-specific result data, by value.
	Value any

	// Tick is the engine tick the command was applied in.
	Tick uint64

	Ticket Ticket
}
