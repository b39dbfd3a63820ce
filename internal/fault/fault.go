package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react to the category
// without parsing message text.
type Kind int

const (
	// CaptureUnavailable: no camera device could be obtained after the
	// bounded probe sequence.
	CaptureUnavailable Kind = iota
	// TransportError: unreachable peer, timeout, connection refused.
	TransportError
	// ClassificationError: malformed or timed-out inference response.
	ClassificationError
	// ActuationError: unknown class label or unavailable channel.
	ActuationError
	// ProtocolError: peer response violates the wire contract.
	ProtocolError
	// Busy: the targeted resource is already in use.
	Busy
	// InvalidState: operation requested outside a running session.
	InvalidState
)

func (k Kind) String() string {
	switch k {
	case CaptureUnavailable:
		return "capture_unavailable"
	case TransportError:
		return "transport_error"
	case ClassificationError:
		return "classification_error"
	case ActuationError:
		return "actuation_error"
	case ProtocolError:
		return "protocol_error"
	case Busy:
		return "busy"
	case InvalidState:
		return "invalid_state"
	default:
		return "unknown"
	}
}

// Error tags an underlying error with a Kind and the operation that
// produced it. It supports errors.Is/errors.As through Unwrap.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a tagged error with a plain message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Newf creates a tagged error with a formatted message.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap tags an existing error. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// KindOf returns the Kind carried by err, or ok=false if err is not tagged.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
