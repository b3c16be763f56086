package bulk

import (
	"errors"
	"fmt"
)

// Kind categorizes a bulk error.
type Kind string

const (
	// KindInvalidConfiguration marks a declaration or construction error. Never retried.
	KindInvalidConfiguration Kind = "invalid_configuration"
	// KindIndexOutOfRange marks a cursor ordinal outside [0, FieldCount).
	KindIndexOutOfRange Kind = "index_out_of_range"
	// KindNoCurrentRecord marks value access before the first Next or after exhaustion.
	KindNoCurrentRecord Kind = "no_current_record"
	// KindCursorClosed marks value access on a closed cursor.
	KindCursorClosed Kind = "cursor_closed"
	// KindTransport marks any failure reported by the downstream transport,
	// including cancellation.
	KindTransport Kind = "transport"
)

// Sentinels for errors.Is. A *Error matches the sentinel of its Kind.
var (
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration, Message: "invalid configuration"}
	ErrIndexOutOfRange      = &Error{Kind: KindIndexOutOfRange, Message: "index out of range"}
	ErrNoCurrentRecord      = &Error{Kind: KindNoCurrentRecord, Message: "no current record"}
	ErrCursorClosed         = &Error{Kind: KindCursorClosed, Message: "cursor is closed"}
	ErrTransport            = &Error{Kind: KindTransport, Message: "transport failure"}
)

// Error is the structured error returned by this package.
//
// Op names the operation that failed (e.g. "compile", "cursor.value",
// "write"). Details carries key/value context for logs.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
	Details map[string]any
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("bulk: %s: %v", msg, e.Err)
	}
	return "bulk: " + msg
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil && t.Details == nil
}

// WithDetail adds a key/value to the error and returns it for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func invalidConfig(op, format string, args ...any) *Error {
	return newError(KindInvalidConfiguration, op, format, args...)
}

// wrapTransport classifies err as a transport failure unless it already
// carries a bulk Kind (e.g. an out-of-range access surfaced through the
// transport's pull loop).
func wrapTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Kind: KindTransport, Op: op, Message: "transport failure", Err: err}
}

// IsKind reports whether err (or any error it wraps) is a *Error of kind.
func IsKind(err error, kind Kind) bool {
	var be *Error
	if !errors.As(err, &be) {
		return false
	}
	return be.Kind == kind
}
