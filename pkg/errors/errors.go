// Package errors defines the coded errors shared by blockdeck's packages.
//
// A failure that leaves a package carries a [Code]. The CLI prints the
// message, the HTTP service picks a status from the code, and tests assert
// on the code instead of on error strings:
//
//	if errors.Is(err, errors.ErrCodeInvalidReference) {
//	    // ask for a page URL or id
//	}
//
// [Is] looks at the outermost coded error only. [Has] walks the whole chain,
// which matters for fetch failures: a missing page surfaces as NOT_FOUND
// wrapped in SOURCE_UNAVAILABLE.
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable failure category.
type Code string

const (
	// Rejected input. None of these are retried.
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidReference Code = "INVALID_REFERENCE"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidStyle     Code = "INVALID_STYLE"
	ErrCodeInvalidPath      Code = "INVALID_PATH"

	// Refusals and failures of the content source.
	ErrCodeNotFound          Code = "NOT_FOUND"
	ErrCodeUnauthorized      Code = "UNAUTHORIZED"
	ErrCodeRateLimited       Code = "RATE_LIMITED"
	ErrCodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"

	// A slide could not be rasterized or written.
	ErrCodeExportFailure Code = "EXPORT_FAILURE"

	ErrCodeUnsupported Code = "UNSUPPORTED"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
)

// Error pairs a [Code] with a message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a coded error around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the outermost coded error in err's chain has code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// Has reports whether any coded error in err's chain has code.
func Has(err error, code Code) bool {
	for _, c := range Codes(err) {
		if c == code {
			return true
		}
	}
	return false
}

// Codes lists the codes in err's chain, outermost first.
func Codes(err error) []Code {
	var codes []Code
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		codes = append(codes, e.Code)
		err = e.Cause
	}
	return codes
}

// GetCode returns the outermost code in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost coded error without its
// code prefix, or err.Error() for uncoded errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
