// Package serrors provides semantic error kinds for the process bootstrap.
// A kind classifies a failure (configuration, database connect, uncaught
// panic, unhandled task failure) without hiding the concrete cause.
package serrors

import (
	"errors"
	"fmt"
)

// Kind is a marker interface implemented by all semantic error kinds created
// with NewKind.
type Kind interface {
	error
	isKind()
}

type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new semantic error kind (a sentinel).
func NewKind(name string) Kind { return kind{s: name} }

var (
	// ErrConfig indicates the process could not be configured from its environment.
	ErrConfig = NewKind("CONFIG")
	// ErrDBConnect indicates the startup database connection failed.
	ErrDBConnect = NewKind("DB_CONNECT")
	// ErrUncaught indicates a panic escaped every local handler.
	ErrUncaught = NewKind("UNCAUGHT_EXCEPTION")
	// ErrUnhandledRejection indicates a background task failed and nothing handled it.
	ErrUnhandledRejection = NewKind("UNHANDLED_REJECTION")
	// ErrUnavailable indicates a dependency is temporarily unavailable.
	ErrUnavailable = NewKind("UNAVAILABLE")
)

// Error is a semantic error carrying a kind, an optional cause and an
// optional message. errors.Is matches both the kind and the cause chain.
//
// Error string formatting:
//   - msg and err set: "<msg>: <err>"
//   - only msg set: "<msg>"
//   - only err set: "<err>"
//   - neither: the kind name.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With constructs a semantic error with a message and no cause.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap constructs a semantic error wrapping err.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	case e.kind != nil:
		return e.kind.Error()
	default:
		return "unknown error"
	}
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// Is matches either the kind sentinel or the wrapped cause.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	return e.err != nil && errors.Is(e.err, target)
}

// Kind returns the kind associated with this error, or nil.
func (e *Error) Kind() Kind { return e.kind }

// KindOf returns the outermost kind found in err's chain, or nil.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.kind
	}
	return nil
}

// Name returns a short name for err: its kind when it has one, otherwise its
// dynamic Go type.
func Name(err error) string {
	if err == nil {
		return ""
	}
	if k := KindOf(err); k != nil {
		return k.Error()
	}
	return fmt.Sprintf("%T", err)
}
