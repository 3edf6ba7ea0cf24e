package scan

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a scan is triggered while another is still running.
var ErrBusy = errors.New("a scan is already in progress")

// Kind classifies why an invocation failed.
type Kind string

const (
	KindCapture  Kind = "capture"
	KindNetwork  Kind = "network"
	KindServer   Kind = "server"
	KindProtocol Kind = "protocol"
)

// Error is a failed invocation. Message is the human readable description
// surfaced in the failure status.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CaptureError reports that no snapshot could be produced.
func CaptureError(err error) *Error {
	return &Error{Kind: KindCapture, Err: err}
}

// NetworkError reports that the request could not complete.
func NetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// ServerError reports a completed request whose status was not "success".
func ServerError(message string) *Error {
	return &Error{Kind: KindServer, Message: message}
}

// ProtocolError reports a response body that is not the expected JSON shape.
func ProtocolError(message string, err error) *Error {
	return &Error{Kind: KindProtocol, Message: message, Err: err}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
