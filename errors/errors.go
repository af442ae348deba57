package errors

import (
	"fmt"
	"strings"

	"github.com/terramodulus/ferricia"
)

// Code categorizes an engine error. Codes are stable across releases so
// FFI hosts can switch on them.
type Code uint8

const (
	// CodeInvalidHandle means a stale or unknown resource handle.
	// Recoverable: the caller retries with a fresh handle.
	CodeInvalidHandle Code = iota + 1

	// CodeSubsystemUnavailable means the engine is stopping/stopped or
	// the subsystem's native context is lost. Not retryable until the
	// engine restarts.
	CodeSubsystemUnavailable

	// CodeResourceExhausted means a per-kind capacity cap was hit.
	// Recoverable by freeing resources or raising the cap.
	CodeResourceExhausted

	// CodeExternalFailure wraps a native-library error, preserving the
	// subsystem and the library's own code for host-side diagnosis.
	CodeExternalFailure

	// CodeTimeout means a gateway synchronous wait expired. Local to
	// that call; the underlying command still applies.
	CodeTimeout

	// CodeQueueFull is the backpressure signal from a saturated command
	// queue. The host retries or sheds load.
	CodeQueueFull

	// CodeInvalidArgument means a malformed payload or parameter that
	// never reached a subsystem.
	CodeInvalidArgument

	// CodeFatal marks an engine-invariant violation. It forces the loop
	// into Stopping and is never returned for ordinary failures.
	CodeFatal
)

func (c Code) String() string {
	switch c {
	case CodeInvalidHandle:
		return "invalid_handle"
	case CodeSubsystemUnavailable:
		return "subsystem_unavailable"
	case CodeResourceExhausted:
		return "resource_exhausted"
	case CodeExternalFailure:
		return "external_failure"
	case CodeTimeout:
		return "timeout"
	case CodeQueueFull:
		return "queue_full"
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeFatal:
		return "fatal"
	}
	return "unknown"
}

// Error is the structured error type used throughout the engine. Every
// failure the host can observe is one of these.
type Error struct {
	Cause     error
	Detail    string
	Subsystem ferricia.Subsystem
	Code      Code

	// ExternalCode is the native library's own error code, meaningful
	// only when Code is CodeExternalFailure.
	ExternalCode int32
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	if e.Subsystem.Valid() {
		b.WriteString(e.Subsystem.String())
	} else {
		b.WriteString("engine")
	}
	b.WriteString("] ")
	b.WriteString(e.Code.String())

	if e.Code == CodeExternalFailure {
		fmt.Fprintf(&b, " (code %d)", e.ExternalCode)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two engine errors match
// when their codes match; subsystem is compared only when target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	if t.Subsystem.Valid() && e.Subsystem != t.Subsystem {
		return false
	}
	return true
}

// Fatal reports whether err carries CodeFatal.
func Fatal(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Code == CodeFatal
}

// CodeOf extracts the engine code from err, or zero when err is not an
// engine error.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return 0
}

// Convenience constructors for the engine taxonomy.

// InvalidHandle creates a stale/unknown handle error.
func InvalidHandle(sub ferricia.Subsystem, handle uint64) *Error {
	return &Error{
		Subsystem: sub,
		Code:      CodeInvalidHandle,
		Detail:    fmt.Sprintf("handle %#x not found", handle),
	}
}

// Unavailable creates a subsystem-unavailable error.
func Unavailable(sub ferricia.Subsystem, why string) *Error {
	return &Error{
		Subsystem: sub,
		Code:      CodeSubsystemUnavailable,
		Detail:    why,
	}
}

// Exhausted creates a resource-exhaustion error.
func Exhausted(sub ferricia.Subsystem, cap int) *Error {
	return &Error{
		Subsystem: sub,
		Code:      CodeResourceExhausted,
		Detail:    fmt.Sprintf("capacity %d reached", cap),
	}
}

// External wraps a native-library failure, preserving its code.
func External(sub ferricia.Subsystem, code int32, cause error) *Error {
	return &Error{
		Subsystem:    sub,
		Code:         CodeExternalFailure,
		ExternalCode: code,
		Cause:        cause,
	}
}

// Timeout creates a gateway wait-expired error.
func Timeout(detail string) *Error {
	return &Error{Code: CodeTimeout, Detail: detail}
}

// QueueFull creates the queue backpressure error.
func QueueFull(capacity int) *Error {
	return &Error{
		Code:   CodeQueueFull,
		Detail: fmt.Sprintf("command queue at capacity %d", capacity),
	}
}

// InvalidArgument creates a malformed-payload error.
func InvalidArgument(sub ferricia.Subsystem, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{Subsystem: sub, Code: CodeInvalidArgument, Detail: detail}
}

// Corrupt creates a fatal invariant-violation error.
func Corrupt(detail string, cause error) *Error {
	return &Error{Code: CodeFatal, Detail: detail, Cause: cause}
}
