package devices

import (
	"errors"
	"time"
)

// Usb describes the API needed to talk to a token over USB. It is implemented
// by the gousb-backed session in pkg/app and by devicestest.Usb in tests.
type Usb interface {
	// Control sends a control request to the device and returns the number
	// of bytes transferred in the data stage.
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)

	SetControlTimeout(time.Duration) error

	// Close disposes of this device. No other functions may be called on the
	// interface afterwards.
	Close() error
}

var UsbTimeoutError = errors.New("USB timeout error")
