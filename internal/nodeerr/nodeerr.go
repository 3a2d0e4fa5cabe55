// Package nodeerr defines the typed error kinds that every other
// package in the node engine uses to report failures to callers.
package nodeerr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of failure a node operation reports.
type Kind string

const (
	Validation               Kind = "VALIDATION"
	NotFound                 Kind = "NOT_FOUND"
	Conflict                 Kind = "CONFLICT"
	SchemaState              Kind = "SCHEMA_STATE"
	StorageIntegrity         Kind = "STORAGE_INTEGRITY"
	NotANode                 Kind = "NOT_A_NODE"
	SchemaVersionUnsupported Kind = "SCHEMA_VERSION_UNSUPPORTED"
	Readonly                 Kind = "READONLY"
	Transient                Kind = "TRANSIENT"
)

// Error is a node-engine error tagged with a Kind and, where
// applicable, the name of the invariant that was violated.
type Error struct {
	Kind      Kind
	Invariant string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Invariant != "" {
		msg = fmt.Sprintf("%s: %s", e.Invariant, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Kind, so that
// callers can write errors.Is(err, nodeerr.New(nodeerr.NotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an Error of the given kind with a plain message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Invariant builds a Validation-kind Error naming the violated
// invariant: errors discovered by the post-bulk set-level check are
// reported with the offending constraint name.
func Invariant(name, message string) *Error {
	return &Error{Kind: Validation, Invariant: name, Message: message}
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
