package evloop

import "errors"

// ErrorCode is one of the error kinds from spec §7. It is not a full error
// message on its own; see Error.Msg for that.
type ErrorCode string

const (
	// CodeAllocation covers allocator failures in queue segments, task
	// storage, or OS primitives.
	CodeAllocation ErrorCode = "allocation failure"
	// CodeOSPrimitive covers mutex/condvar/thread API failures.
	CodeOSPrimitive ErrorCode = "os primitive failure"
	// CodeWorkerSpawn covers a failure to spawn an async operation's
	// worker goroutine.
	CodeWorkerSpawn ErrorCode = "worker spawn failure"
	// CodeProtocol covers a task returning a malformed Await. This is
	// always fatal for the loop (spec §7).
	CodeProtocol ErrorCode = "protocol misuse"
	// CodeIO covers a failure inside a file worker. File workers report
	// these through an operation's out_ok/out_len parameters, not through
	// RunUntil. CodeIO is also the code WrapError gives an unstructured
	// error, and a CodeIO error returned by a task's Resume is returned
	// from RunUntil like any other Resume error.
	CodeIO ErrorCode = "I/O failure"
)

// Error is a structured error carrying the operation that failed, its
// error kind, and (optionally) the error it wraps.
type Error struct {
	Op    string
	Code  ErrorCode
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return "evloop: " + e.Op + ": " + msg
	}
	return "evloop: " + msg
}

// Unwrap supports errors.Is/errors.As against the wrapped error.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is compares by error code, so callers can do
// errors.Is(err, evloop.NewError("", evloop.CodeProtocol, "")).
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewError creates a structured Error with no wrapped cause.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// WrapError wraps inner with operation context, preserving its code if it
// is already a structured *Error, otherwise defaulting to CodeIO — the
// catch-all for errors that originated outside this package's own
// control-flow checks.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if ie, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: ie.Code, Msg: ie.Msg, Inner: ie}
	}
	return &Error{Op: op, Code: CodeIO, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a structured Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
