package stream

import (
	"errors"
	"fmt"
)

// Common controller errors
var (
	// ErrEmptyText indicates Start was called without text to speak
	ErrEmptyText = errors.New("text to speak is empty")

	// ErrInvalidSpeed indicates speed value is out of range
	ErrInvalidSpeed = errors.New("speed must be between 0.5 and 2.0")

	// ErrCanceled indicates the session was stopped before it was established
	ErrCanceled = errors.New("operation canceled")

	// ErrNoServer indicates no server URL is configured
	ErrNoServer = errors.New("no server URL configured")

	// ErrClosed indicates the controller was closed
	ErrClosed = errors.New("controller closed")
)

// Error represents a session failure with a category code.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorCode identifies specific error types
type ErrorCode string

const (
	// CodeConnection means the socket failed to open or broke mid-session.
	CodeConnection ErrorCode = "CONNECTION"
	// CodeProtocol means an inbound frame could not be understood.
	CodeProtocol ErrorCode = "PROTOCOL"
	// CodeServer means the server reported an error frame.
	CodeServer ErrorCode = "SERVER"
	// CodePlaybackStall means the audio did not drain in time after done.
	CodePlaybackStall ErrorCode = "PLAYBACK_STALL"
	// CodeDecode means an audio payload was corrupt.
	CodeDecode ErrorCode = "DECODE"
)

// NewError creates a new session error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// IsFatal reports whether the error ends the session.
func (e *Error) IsFatal() bool {
	switch e.Code {
	case CodeConnection, CodeServer:
		return true
	default:
		return false
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
