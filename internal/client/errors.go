package client

import (
	"errors"
	"fmt"
)

// Kind classifies an orchestrator failure.
type Kind int

const (
	// KindValidation is raised locally before any network call.
	KindValidation Kind = iota + 1
	// KindTransport means the request could not be sent or the response not read.
	KindTransport
	// KindStatus means a response arrived with a status outside 2xx.
	KindStatus
	// KindDecode means the response body did not have the expected shape.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is the failure type produced by every orchestrator operation.
type Error struct {
	Kind Kind
	// Op names the operation, e.g. "request route".
	Op string
	// StatusCode is set for KindStatus.
	StatusCode int
	// Detail carries the server's {"error": "..."} text for KindStatus, if any.
	Detail string
	// Msg is the human-readable text of a KindValidation error.
	Msg string
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		return e.Msg
	case KindStatus:
		if e.Detail != "" {
			return fmt.Sprintf("%s: http status %d: %s", e.Op, e.StatusCode, e.Detail)
		}
		return fmt.Sprintf("%s: http status %d", e.Op, e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Local validation failures. They are returned as-is so callers can match
// them with errors.Is.
var (
	ErrNoPoints = &Error{Kind: KindValidation, Msg: "no points available, check data.json"}
	ErrNoFile   = &Error{Kind: KindValidation, Msg: "no file selected"}
	ErrNotCSV   = &Error{Kind: KindValidation, Msg: "please select a CSV file"}
)

var (
	// ErrBusy is returned when an operation is triggered while a previous
	// attempt is still in flight. The trigger is ignored; state is untouched.
	ErrBusy = errors.New("client: operation already in flight")

	// ErrAlreadyLoaded is returned by a second PointLoader.Load call.
	ErrAlreadyLoaded = errors.New("client: points already loaded")

	// errInterrupted settles an attempt that exited without a result (a panic
	// while talking to the server).
	errInterrupted = errors.New("client: attempt interrupted")
)

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
