package ferry

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeTypeMismatch means a handle's dynamic tag disagrees with the
	// requested native type.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeUnregisteredType means the requested type has no registration.
	CodeUnregisteredType Code = "UNREGISTERED_TYPE"

	// CodeInvalidHandle means the runtime does not know the handle.
	CodeInvalidHandle Code = "INVALID_HANDLE"

	// CodeKeyType means a protocol operation's key argument could not be
	// coerced to the native key type.
	CodeKeyType Code = "KEY_TYPE_ERROR"

	// CodeValueType means set-item's value argument could not be coerced to
	// the native value type.
	CodeValueType Code = "VALUE_TYPE_ERROR"

	// CodeUnsupportedOp means a protocol operation was invoked on a type
	// whose protocol table has no entry for it.
	CodeUnsupportedOp Code = "UNSUPPORTED_PROTOCOL_OPERATION"

	// CodeInvalidRegistration means Define was given a malformed type
	// definition (bad protocol function signature, duplicate tag, ...).
	CodeInvalidRegistration Code = "INVALID_REGISTRATION"
)

// Error is the bridge's error type with a structured code.
type Error struct {
	Code    Code   // machine-readable code
	Message string // human-readable detail
	Cause   error  // wrapped underlying error, may be nil
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// newError builds an *Error with a formatted message.
func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// wrapError builds an *Error around an underlying cause.
func wrapError(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsCode reports whether err is (or wraps) a bridge Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of err, or CodeUnknown semantics via empty string
// when err carries no bridge code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
