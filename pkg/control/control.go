// Package control issues vendor control transfers to the token.
package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/tokenstick/tokenctl/pkg/devices"
	"github.com/tokenstick/tokenctl/pkg/requests"
)

// DefaultTimeout applies when no timeout is configured.
const DefaultTimeout = 5000 * time.Millisecond

// Request is a single control transfer. It is built per operation and handed
// to Dispatcher.Transfer once. Index is always zero for this device.
type Request struct {
	Direction requests.Direction
	Code      requests.Request
	Value     uint16
	Index     uint16
	// Data is the payload for OUT transfers and the receive buffer for IN
	// transfers. Its length is the wLength of the request.
	Data []byte
}

func (r *Request) String() string {
	return fmt.Sprintf("%s %s val=0x%04x idx=0x%04x len=%d", r.Direction, r.Code, r.Value, r.Index, len(r.Data))
}

// Dispatcher sends Requests over a devices.Usb with a fixed timeout. It never
// retries.
type Dispatcher struct {
	usb devices.Usb
}

// New returns a Dispatcher using timeout for every transfer. A zero timeout
// selects DefaultTimeout.
func New(usb devices.Usb, timeout time.Duration) (*Dispatcher, error) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if err := usb.SetControlTimeout(timeout); err != nil {
		return nil, fmt.Errorf("could not set control timeout: %w", err)
	}
	return &Dispatcher{usb: usb}, nil
}

// Transfer issues r and returns the number of bytes moved in the data stage.
// Any transport failure is returned as a *TransportError.
func (d *Dispatcher) Transfer(r *Request) (int, error) {
	glog.V(2).Infof("Control %s", r)
	n, err := d.usb.Control(requests.RequestType(r.Direction), uint8(r.Code), r.Value, r.Index, r.Data)
	if err != nil {
		if errors.Is(err, devices.UsbTimeoutError) {
			glog.V(2).Infof("Control %s timed out", r.Code)
		}
		return n, &TransportError{Op: r.Code.String(), Err: err}
	}
	glog.V(2).Infof("Control %s: %d bytes", r.Code, n)
	return n, nil
}

// In reads into buf and returns the number of bytes received.
func (d *Dispatcher) In(code requests.Request, value uint16, buf []byte) (int, error) {
	return d.Transfer(&Request{
		Direction: requests.DeviceToHost,
		Code:      code,
		Value:     value,
		Data:      buf,
	})
}

// Out sends data and returns the number of bytes the device accepted.
func (d *Dispatcher) Out(code requests.Request, value uint16, data []byte) (int, error) {
	return d.Transfer(&Request{
		Direction: requests.HostToDevice,
		Code:      code,
		Value:     value,
		Data:      data,
	})
}
