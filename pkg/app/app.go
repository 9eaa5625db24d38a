// Package app owns the USB session with a token. A Session is opened once
// per invocation and implements devices.Usb on top of gousb.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/gousb"
	"github.com/hashicorp/go-multierror"

	"github.com/tokenstick/tokenctl/pkg/devices"
)

var _ devices.Usb = (*Session)(nil)

type Session struct {
	ctx *gousb.Context
	usb *gousb.Device

	Desc         devices.Description
	Manufacturer string
	Product      string
}

func newContext() (*gousb.Context, error) {
	resC := make(chan *gousb.Context)
	errC := make(chan error)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errC <- fmt.Errorf("%v", r)
			}
		}()

		resC <- gousb.NewContext()
	}()

	select {
	case err := <-errC:
		return nil, err
	case res := <-resC:
		return res, nil
	}
}

// Open finds the first device matching desc. Every candidate that could not be
// opened or did not match is reported in the returned error if no device was
// found.
func Open(desc devices.Description) (*Session, error) {
	ctx, err := newContext()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize USB: %w", err)
	}

	var errs error
	candidates, err := ctx.OpenDevices(func(d *gousb.DeviceDesc) bool {
		return d.Vendor == desc.VID && d.Product == desc.PID
	})
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	var found *Session
	for _, usb := range candidates {
		if found != nil {
			usb.Close()
			continue
		}
		s := &Session{ctx: ctx, usb: usb, Desc: desc}
		if err := s.readStrings(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", usb, err))
			usb.Close()
			continue
		}
		if !desc.Matches(s.Manufacturer, s.Product) {
			glog.V(1).Infof("Skipping %s: vendor %q, product %q", usb, s.Manufacturer, s.Product)
			errs = multierror.Append(errs, fmt.Errorf("%s: vendor %q, product %q do not match", usb, s.Manufacturer, s.Product))
			usb.Close()
			continue
		}
		found = s
	}
	if found != nil {
		return found, nil
	}

	ctx.Close()
	if errs == nil {
		return nil, fmt.Errorf("could not find USB device %s", desc)
	}
	return nil, fmt.Errorf("could not find USB device %s: %w", desc, errs)
}

// readStrings fetches the string descriptors needed for matching. Descriptors
// that are not matched against are not read, as some firmwares stall on them.
func (s *Session) readStrings() error {
	var err error
	if s.Desc.Vendor != "" {
		if s.Manufacturer, err = s.usb.Manufacturer(); err != nil {
			return fmt.Errorf("reading manufacturer: %w", err)
		}
	}
	if s.Desc.Product != "" {
		if s.Product, err = s.usb.Product(); err != nil {
			return fmt.Errorf("reading product: %w", err)
		}
	}
	return nil
}

func (s *Session) String() string {
	return s.usb.String()
}

func (s *Session) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	v, err := s.usb.Control(rType, request, val, idx, data)
	if errors.Is(err, gousb.ErrorTimeout) {
		err = devices.UsbTimeoutError
	}
	return v, err
}

func (s *Session) SetControlTimeout(dur time.Duration) error {
	s.usb.ControlTimeout = dur
	return nil
}

// Close releases the device and the USB context.
func (s *Session) Close() error {
	var errs error
	if err := s.usb.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("when closing USB device: %w", err))
	}
	if err := s.ctx.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("when closing context: %w", err))
	}
	return errs
}
