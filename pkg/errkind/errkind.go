// Package errkind provides the kind-tagged error type shared by every
// dispatcher, registry, and adapter-facing component in Kukur.
//
// Every error that crosses a component boundary carries a Kind drawn from a
// closed set (InvalidSource, UnknownSource, InvalidData, InvalidMetadata,
// InvalidConfiguration, NotSupported, Timeout, Transient, Unauthenticated).
// The dispatcher's retry policy and the RPC layer's protocol-code mapping
// both switch on Kind rather than on error string matching or concrete
// types, so adapters and internal components only ever need to construct a
// *Error with the right Kind to participate correctly in retry and
// reporting.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is one of the closed set of error kinds from the dispatch contract.
type Kind string

const (
	// InvalidSource means configuration references an unknown source type,
	// a missing required key, or invalid adapter options. Fatal for the
	// request.
	InvalidSource Kind = "invalid_source"
	// UnknownSource means an RPC named a source absent from configuration.
	// Fatal for the request.
	UnknownSource Kind = "unknown_source"
	// InvalidData means the backend returned malformed data, e.g. a
	// missing series column. Reported; may be retried by the caller.
	InvalidData Kind = "invalid_data"
	// InvalidMetadata means required metadata columns were absent.
	InvalidMetadata Kind = "invalid_metadata"
	// InvalidConfiguration means the shape of a list/metadata query result
	// did not match its declared columns. Fatal for the request.
	InvalidConfiguration Kind = "invalid_configuration"
	// NotSupported means the adapter does not implement an optional
	// capability, e.g. plot data or source structure.
	NotSupported Kind = "not_supported"
	// Timeout means an adapter call exceeded its configured timeout.
	// Retried up to the configured count.
	Timeout Kind = "timeout"
	// Transient means any other adapter failure. Retried up to the
	// configured count.
	Transient Kind = "transient"
	// Unauthenticated means a bad or missing API key at the RPC boundary.
	// Returned before any handler runs.
	Unauthenticated Kind = "unauthenticated"
)

// Error is the standardized error carried across component boundaries.
//
// It mirrors the shape of an application error used throughout the
// dispatcher: a kind, the component and operation that raised it, an
// optional wrapped cause, and free-form metadata for structured logging.
type Error struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Cause     error
	Metadata  map[string]interface{}
}

// New creates an Error of the given kind.
func New(kind Kind, component, operation, message string) *Error {
	return &Error{
		Kind:      kind,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Component, e.Operation, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap attaches a cause and returns the receiver for chaining.
func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}

// WithMetadata attaches a structured-logging field and returns the receiver.
func (e *Error) WithMetadata(key string, value interface{}) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Retryable reports whether the dispatcher's retry loop should retry a call
// that failed with this error, per the recovery policy in the dispatch
// contract: only Timeout and Transient are retried.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case Timeout, Transient:
		return true
	default:
		return false
	}
}

// Is allows errors.Is(err, errkind.New(kind, "", "", "")) to match purely on
// Kind, so callers can test "was this a Timeout?" without caring about the
// component, operation, or message.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// Of reports the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsRetryable reports whether err is a *Error whose Kind is retryable.
// A non-kind-tagged error (one an adapter forgot to wrap) is treated as
// Transient-like and retryable, since adapters MUST NOT retry internally
// and the dispatcher is the only line of defense against a raw backend
// failure such as a dropped connection.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := AsError(err); ok {
		return e.Retryable()
	}
	return true
}

// AsError extracts the *Error from err via errors.As.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Convenience constructors, one per kind, mirroring the per-kind helpers a
// caller reaches for most often.

func InvalidSourceError(component, operation, message string) *Error {
	return New(InvalidSource, component, operation, message)
}

func UnknownSourceError(component, operation, message string) *Error {
	return New(UnknownSource, component, operation, message)
}

func InvalidDataError(component, operation, message string) *Error {
	return New(InvalidData, component, operation, message)
}

func InvalidMetadataError(component, operation, message string) *Error {
	return New(InvalidMetadata, component, operation, message)
}

func InvalidConfigurationError(component, operation, message string) *Error {
	return New(InvalidConfiguration, component, operation, message)
}

func NotSupportedError(component, operation, message string) *Error {
	return New(NotSupported, component, operation, message)
}

func TimeoutError(component, operation, message string) *Error {
	return New(Timeout, component, operation, message)
}

func TransientError(component, operation, message string) *Error {
	return New(Transient, component, operation, message)
}

func UnauthenticatedError(component, operation, message string) *Error {
	return New(Unauthenticated, component, operation, message)
}
