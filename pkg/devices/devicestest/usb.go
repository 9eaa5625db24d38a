// Package devicestest provides a scripted fake of devices.Usb.
package devicestest

import (
	"fmt"
	"time"

	"github.com/tokenstick/tokenctl/pkg/devices"
)

var _ devices.Usb = (*Usb)(nil)

// Call records a single control transfer seen by the fake.
type Call struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16

	// Data is a copy of the buffer as passed in (OUT) or as filled by the
	// handler (IN).
	Data []byte
	// Length is the size of the buffer handed to Control.
	Length int
}

// Handler answers a control transfer. For IN transfers it fills data and
// returns the number of bytes produced. For OUT transfers it returns how many
// bytes the device accepted.
type Handler func(call *Call, data []byte) (int, error)

// Usb is a fake token. Requests without a handler complete with the full
// buffer length and leave IN buffers untouched.
type Usb struct {
	Handlers map[uint8]Handler
	Calls    []Call

	Timeout time.Duration
	Closed  bool
}

func New() *Usb {
	return &Usb{
		Handlers: make(map[uint8]Handler),
	}
}

// Respond registers a handler that copies resp into IN buffers and returns
// len(resp), regardless of the requested length.
func (u *Usb) Respond(request uint8, resp []byte) {
	u.Handlers[request] = func(_ *Call, data []byte) (int, error) {
		return copy(data, resp), nil
	}
}

// Accept registers a handler that reports n bytes transferred.
func (u *Usb) Accept(request uint8, n int) {
	u.Handlers[request] = func(_ *Call, _ []byte) (int, error) {
		return n, nil
	}
}

// Fail registers a handler that returns err.
func (u *Usb) Fail(request uint8, err error) {
	u.Handlers[request] = func(_ *Call, _ []byte) (int, error) {
		return 0, err
	}
}

func (u *Usb) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	if u.Closed {
		return 0, fmt.Errorf("device closed")
	}
	call := Call{
		RequestType: rType,
		Request:     request,
		Value:       val,
		Index:       idx,
		Length:      len(data),
	}
	n := len(data)
	var err error
	if h, ok := u.Handlers[request]; ok {
		n, err = h(&call, data)
	}
	call.Data = append([]byte{}, data...)
	u.Calls = append(u.Calls, call)
	return n, err
}

// Requests returns the request codes seen so far, in order.
func (u *Usb) Requests() []uint8 {
	res := make([]uint8, 0, len(u.Calls))
	for _, c := range u.Calls {
		res = append(res, c.Request)
	}
	return res
}

func (u *Usb) SetControlTimeout(d time.Duration) error {
	u.Timeout = d
	return nil
}

func (u *Usb) Close() error {
	u.Closed = true
	return nil
}
