package syncproto

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed connection or hub.
var ErrClosed = errors.New("sync connection closed")

// EnvelopeError represents a malformed sync message.
type EnvelopeError struct {
	Message string
	Cause   error
}

func (e *EnvelopeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EnvelopeError) Unwrap() error {
	return e.Cause
}
