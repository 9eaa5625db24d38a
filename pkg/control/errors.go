package control

import (
	"errors"
	"fmt"
)

// ErrTransport is wrapped by every failure reported by the USB transport
// itself (stall, timeout, disconnect).
var ErrTransport = errors.New("device communication failed")

// TransportError carries the request that failed at the transport level.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// LengthError is returned when the device transferred a different number of
// bytes than the operation requires.
type LengthError struct {
	Op   string
	Got  int
	Want int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%s: transferred %d bytes, expecting %d", e.Op, e.Got, e.Want)
}

// Expect returns a *LengthError if got differs from want.
func Expect(op string, got, want int) error {
	if got != want {
		return &LengthError{Op: op, Got: got, Want: want}
	}
	return nil
}
