package puppet

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNetwork indicates the remote data source could not be reached or failed in transit.
	ErrNetwork = errors.New("puppet: network error")
	// ErrUnsupported indicates the remote data source does not implement an operation.
	ErrUnsupported = errors.New("puppet: unsupported operation")
	// ErrUnknownPayloadType indicates a payload type the core cannot route.
	ErrUnknownPayloadType = errors.New("puppet: unknown payload type")
	// ErrUnknownMessageType indicates a message type the core cannot handle.
	ErrUnknownMessageType = errors.New("puppet: unknown message type")
	// ErrInvalidEvent indicates that an event does not satisfy protocol invariants.
	ErrInvalidEvent = errors.New("puppet: invalid event")
	// ErrInvalidFilter indicates a query filter that cannot be compiled.
	ErrInvalidFilter = errors.New("puppet: invalid filter")
	// ErrEventDropped indicates a non-blocking backpressure drop.
	ErrEventDropped = errors.New("puppet: event dropped due to backpressure")
	// ErrSubscriptionClosed indicates that a subscriber mailbox is no longer active.
	ErrSubscriptionClosed = errors.New("puppet: subscription closed")
	// ErrBusClosed indicates that the event bus no longer accepts commands.
	ErrBusClosed = errors.New("puppet: event bus closed")
)

// RemoteErrorKind classifies failures that originate at the remote data source boundary.
type RemoteErrorKind string

const (
	// RemoteErrorKindNetwork maps to ErrNetwork.
	RemoteErrorKindNetwork RemoteErrorKind = "network"
	// RemoteErrorKindUnsupported maps to ErrUnsupported.
	RemoteErrorKindUnsupported RemoteErrorKind = "unsupported"
	// RemoteErrorKindUnknownPayloadType maps to ErrUnknownPayloadType.
	RemoteErrorKindUnknownPayloadType RemoteErrorKind = "unknown_payload_type"
	// RemoteErrorKindUnknownMessageType maps to ErrUnknownMessageType.
	RemoteErrorKindUnknownMessageType RemoteErrorKind = "unknown_message_type"
)

// RemoteError carries structured metadata for one failed remote call.
type RemoteError struct {
	// Operation names the remote capability that failed, for example "contact_raw_payload".
	Operation string
	// Kind classifies the failure into the remote taxonomy.
	Kind RemoteErrorKind
	// Code carries an optional transport status code when known.
	Code int
	// Cause is the wrapped transport error.
	Cause error
}

// Error returns one operator-readable failure summary.
func (e *RemoteError) Error() string {
	if e == nil {
		return "<nil>"
	}

	fields := make([]string, 0, 3)
	if operation := strings.TrimSpace(e.Operation); operation != "" {
		fields = append(fields, "operation="+operation)
	}
	if kind := strings.TrimSpace(string(e.Kind)); kind != "" {
		fields = append(fields, "kind="+kind)
	}
	if e.Code != 0 {
		fields = append(fields, fmt.Sprintf("code=%d", e.Code))
	}

	summary := "remote error"
	if len(fields) > 0 {
		summary += ": " + strings.Join(fields, " ")
	}
	if e.Cause == nil {
		return summary
	}

	return summary + ": " + e.Cause.Error()
}

// Unwrap returns the wrapped root cause.
func (e *RemoteError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Cause
}

// Is reports whether target is the sentinel matching this error's kind.
func (e *RemoteError) Is(target error) bool {
	if e == nil {
		return false
	}

	switch e.Kind {
	case RemoteErrorKindNetwork:
		return target == ErrNetwork
	case RemoteErrorKindUnsupported:
		return target == ErrUnsupported
	case RemoteErrorKindUnknownPayloadType:
		return target == ErrUnknownPayloadType
	case RemoteErrorKindUnknownMessageType:
		return target == ErrUnknownMessageType
	default:
		return false
	}
}

// Unsupported returns an ErrUnsupported-classified error naming operation.
func Unsupported(operation string) error {
	return &RemoteError{Operation: operation, Kind: RemoteErrorKindUnsupported}
}

// NetworkError wraps cause as an ErrNetwork-classified error for operation.
func NetworkError(operation string, cause error) error {
	return &RemoteError{Operation: operation, Kind: RemoteErrorKindNetwork, Cause: cause}
}

// AsRemoteError extracts one RemoteError from wrapped error chains.
func AsRemoteError(err error) (*RemoteError, bool) {
	if err == nil {
		return nil, false
	}

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr, true
	}

	return nil, false
}

// UnsupportedOperation returns the operation name carried by an unsupported error.
//
// It returns `("", false)` when err is not classified as unsupported.
func UnsupportedOperation(err error) (string, bool) {
	remoteErr, ok := AsRemoteError(err)
	if !ok || remoteErr.Kind != RemoteErrorKindUnsupported {
		return "", false
	}

	return remoteErr.Operation, true
}
