package game

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes failures surfaced by the puzzle core.
type ErrorCode string

const (
	// ErrCodeInputInvalid marks a malformed guess, selection or path.
	// The move is rejected with no state change and no turn consumed.
	ErrCodeInputInvalid ErrorCode = "INPUT_INVALID"

	// ErrCodeUpstreamUnavailable marks a failed fetch or remote call.
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"

	// ErrCodeUpstreamMalformed marks a payload that failed structural validation.
	ErrCodeUpstreamMalformed ErrorCode = "UPSTREAM_MALFORMED"

	// ErrCodeStorageCorrupt marks a local record that failed validation.
	ErrCodeStorageCorrupt ErrorCode = "STORAGE_CORRUPT"

	// ErrCodeAuthUnknown marks a persistence attempt before the
	// authentication state has resolved.
	ErrCodeAuthUnknown ErrorCode = "AUTH_UNKNOWN"
)

// Error carries a code plus context for diagnostics.
type Error struct {
	Code    ErrorCode
	Message string
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Kind != "" {
		msg = fmt.Sprintf("%s (game=%s)", msg, e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InputInvalid builds an ErrCodeInputInvalid error.
func InputInvalid(kind Kind, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInputInvalid, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps err as an ErrCodeUpstreamUnavailable error.
func Unavailable(kind Kind, message string, err error) *Error {
	return &Error{Code: ErrCodeUpstreamUnavailable, Kind: kind, Message: message, Err: err}
}

// Malformed wraps err as an ErrCodeUpstreamMalformed error.
func Malformed(kind Kind, message string, err error) *Error {
	return &Error{Code: ErrCodeUpstreamMalformed, Kind: kind, Message: message, Err: err}
}

// Corrupt wraps err as an ErrCodeStorageCorrupt error.
func Corrupt(kind Kind, message string, err error) *Error {
	return &Error{Code: ErrCodeStorageCorrupt, Kind: kind, Message: message, Err: err}
}

// ErrAuthUnknown is returned when persistence is attempted before the
// authentication flag has resolved.
var ErrAuthUnknown = &Error{Code: ErrCodeAuthUnknown, Message: "authentication state not yet known"}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// IsInputInvalid reports whether err is an input rejection.
func IsInputInvalid(err error) bool {
	return CodeOf(err) == ErrCodeInputInvalid
}

// IsUpstream reports whether err is a retryable upstream failure.
// Malformed payloads are treated the same as unavailable ones.
func IsUpstream(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeUpstreamUnavailable || code == ErrCodeUpstreamMalformed
}

// IsAuthUnknown reports whether err came from an unresolved auth state.
func IsAuthUnknown(err error) bool {
	return CodeOf(err) == ErrCodeAuthUnknown
}
