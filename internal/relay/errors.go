package relay

import (
	"fmt"
)

// TransportError reports a request that did not complete a round trip.
type TransportError struct {
	Command Command
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("relay %s: %s: %v", e.Command, e.Message, e.Cause)
	}
	return fmt.Sprintf("relay %s: %s", e.Command, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// RemoteError is a Reply with OK=false.
type RemoteError struct {
	Command Command
	Code    string
	Message string
	cause   error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("relay %s failed (%s): %s", e.Command, e.Code, e.Message)
}

// Unwrap exposes a local error reconstructed from Code, so errors.Is works across the relay.
func (e *RemoteError) Unwrap() error {
	return e.cause
}
