// Package errors provides the coded errors shared by the engine, the CLI and
// the HTTP adapter.
//
// Every error a caller can act on carries a [Code]. Codes group into kinds:
// configuration errors are detected before any computation starts and name
// the offending field where there is one; the others report missing
// resources, unsupported requests, deadlines and broken invariants.
//
// Quality shortfalls such as residual overlap or routing overflow are never
// errors. Engines report them as unsuccessful results with diagnostics.
//
//	err := errors.Parameter("iterations", "must not be negative, got %d", n)
//	if errors.IsConfiguration(err) {
//	    fmt.Println(errors.FieldOf(err)) // iterations
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidParameter Code = "INVALID_PARAMETER"
	ErrCodeInvalidCategory  Code = "INVALID_CATEGORY"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"

	ErrCodeUnsupportedAlgorithm Code = "UNSUPPORTED_ALGORITHM"
	ErrCodeUnsupported          Code = "UNSUPPORTED"

	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	ErrCodeTimeout  Code = "TIMEOUT"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Kind groups codes by how a caller should react.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration: the request itself is wrong. Retrying it unchanged
	// fails again.
	KindConfiguration
	KindUnsupported
	KindNotFound
	KindTimeout
	KindInternal
)

// Kind returns the group of c. Unknown codes are KindUnknown.
func (c Code) Kind() Kind {
	switch c {
	case ErrCodeInvalidInput, ErrCodeInvalidParameter, ErrCodeInvalidCategory, ErrCodeInvalidFormat:
		return KindConfiguration
	case ErrCodeUnsupportedAlgorithm, ErrCodeUnsupported:
		return KindUnsupported
	case ErrCodeNotFound, ErrCodeFileNotFound:
		return KindNotFound
	case ErrCodeTimeout:
		return KindTimeout
	case ErrCodeInternal:
		return KindInternal
	}
	return KindUnknown
}

// Error is a coded error. Field names the request field or parameter at
// fault, if any.
type Error struct {
	Code    Code
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + " " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Parameter reports an invalid parameter. The message follows the name:
// Parameter("cooling_rate", "must be within (0, 1), got %v", r).
func Parameter(name, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidParameter, Field: name, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether the first *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode returns the code of the first *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// FieldOf returns the field named by the first *Error in err's chain.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// UserMessage is the error text without the code prefix.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Field != "" {
			return e.Field + " " + e.Message
		}
		return e.Message
	}
	return err.Error()
}

// IsConfiguration reports whether err was caused by the request: bad input,
// bad parameters or an algorithm the engine does not have.
func IsConfiguration(err error) bool {
	switch GetCode(err).Kind() {
	case KindConfiguration, KindUnsupported:
		return true
	}
	return false
}
