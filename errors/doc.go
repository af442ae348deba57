// Package errors provides the structured error taxonomy the engine
// surfaces to its host.
//
// Every failure a host call can observe is an *Error carrying a stable
// Code, the subsystem it originated in, and (for external failures) the
// native library's own error code. Adapter and registry failures never
// unwind past the engine loop; they become *Error values attached to
// the originating command's result.
//
// Match on codes with the standard errors package:
//
//	if errors.Is(err, &ferrerrors.Error{Code: ferrerrors.CodeInvalidHandle}) {
//	    // re-resolve the handle and retry
//	}
//
// or extract the code directly with CodeOf for FFI result mapping.
package errors
