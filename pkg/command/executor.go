// Package command holds the catalog of token operations and runs exactly one
// of them per invocation.
package command

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/tokenstick/tokenctl/pkg/control"
	"github.com/tokenstick/tokenctl/pkg/hexdump"
	"github.com/tokenstick/tokenctl/pkg/memxfer"
	"github.com/tokenstick/tokenctl/pkg/requests"
)

const (
	// tokenLength is the size of the token buffer on the device. A reply
	// filling it completely means the token was not terminated.
	tokenLength = 9
	// debugBufferLength is 256 16-bit words.
	debugBufferLength = 256 * 2
	debugDumpWidth    = 16
)

// Dispatcher is the subset of *control.Dispatcher used by the executor.
type Dispatcher interface {
	Transfer(r *control.Request) (int, error)
}

// Executor runs commands against a single device session.
type Executor struct {
	D   Dispatcher
	Mem *memxfer.Engine

	Out  io.Writer
	Diag io.Writer

	// PollInterval is the delay between button reads in WaitButton. Zero
	// polls back to back.
	PollInterval time.Duration
}

func (x *Executor) diag() io.Writer {
	if x.Diag == nil {
		return io.Discard
	}
	return x.Diag
}

func (x *Executor) transfer(e *Entry, value uint16, data []byte) (int, error) {
	return x.D.Transfer(&control.Request{
		Direction: e.Direction,
		Code:      e.Request,
		Value:     value,
		Data:      data,
	})
}

// readFixed reads e.Length bytes. A reply of any other size is reported as a
// diagnostic and yields ok == false with a nil error.
func (x *Executor) readFixed(e *Entry, what string) (buf []byte, ok bool, err error) {
	buf = make([]byte, e.Length)
	n, err := x.transfer(e, 0, buf)
	if err != nil {
		return nil, false, err
	}
	if err := control.Expect(what, n, e.Length); err != nil {
		x.mismatch("Error: reading %d bytes for %s, expecting %d", n, what, e.Length)
		return nil, false, nil
	}
	return buf, true, nil
}

func (x *Executor) mismatch(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	glog.Warning(msg)
	fmt.Fprintln(x.diag(), msg)
}

func onOff(v byte) string {
	if v != 0 {
		return "on"
	}
	return "off"
}

// Run executes c once. Device communication failures and broken exact-length
// contracts are returned as errors; soft mismatches are only reported on Diag.
func (x *Executor) Run(ctx context.Context, c Command) error {
	e := mustLookup(c.Name())
	glog.V(1).Infof("Running %s (%s)", e.Long, e.Request)

	switch c := c.(type) {
	case IncCounter, ResetCounter, PressButton, ClearDebug:
		_, err := x.transfer(e, 0, nil)
		return err

	case SetDigits:
		_, err := x.transfer(e, uint16(c.Digits), nil)
		return err

	case Reset:
		_, err := x.transfer(e, uint16(c.Delay), nil)
		return err

	case SetSecret:
		n, err := x.transfer(e, uint16(len(c.Secret)*8), c.Secret)
		if err != nil {
			return err
		}
		return control.Expect("secret", n, len(c.Secret))

	case SetDebug:
		_, err := x.transfer(e, 0, c.Data)
		return err

	case GetCounter:
		buf, ok, err := x.readFixed(e, "counter")
		if !ok {
			return err
		}
		fmt.Fprintf(x.Out, "internal counter = %d\n", int32(binary.LittleEndian.Uint32(buf)))
		return nil

	case GetResetCounter:
		buf, ok, err := x.readFixed(e, "reset counter")
		if !ok {
			return err
		}
		fmt.Fprintf(x.Out, "internal reset counter = %d\n", buf[0])
		return nil

	case GetDigits:
		buf, ok, err := x.readFixed(e, "digits")
		if !ok {
			return err
		}
		fmt.Fprintf(x.Out, "digits = %d\n", buf[0])
		return nil

	case ReadButton:
		buf, ok, err := x.readFixed(e, "button")
		if !ok {
			return err
		}
		fmt.Fprintf(x.Out, "button is %s\n", onOff(buf[0]))
		return nil

	case ReadTemperature:
		buf, ok, err := x.readFixed(e, "temperature")
		if !ok {
			return err
		}
		raw := binary.LittleEndian.Uint16(buf)
		fmt.Fprintf(x.Out, "temperature raw value: %d 0x%x\n", int16(raw), raw)
		return nil

	case GetToken:
		return x.getToken(e)

	case GetDebug:
		buf := make([]byte, e.Length)
		n, err := x.transfer(e, 0, buf)
		if err != nil {
			return err
		}
		fmt.Fprintf(x.Out, "DBG-Buffer:\n")
		return hexdump.Block(x.Out, buf[:n], 0, debugDumpWidth)

	case WaitButton:
		return x.waitButton(ctx, e, c.On)

	case ReadMemory:
		return x.Mem.Read(requests.RequestReadMem, c.Range)
	case ReadFlash:
		return x.Mem.Read(requests.RequestReadFlash, c.Range)
	case WriteMemory:
		return x.Mem.Write(c.Range)
	}
	return fmt.Errorf("%w: unhandled command %T", ErrUnknownCommand, c)
}

func (x *Executor) getToken(e *Entry) error {
	buf := make([]byte, e.Length)
	n, err := x.transfer(e, 0, buf)
	if err != nil {
		return err
	}
	if n >= e.Length {
		x.mismatch("Error: reading %d bytes for token, expecting max. %d", n, e.Length)
		return nil
	}
	token := buf[:n]
	if i := bytes.IndexByte(token, 0); i >= 0 {
		token = token[:i]
	}
	fmt.Fprintf(x.Out, "token = %s\n", token)
	return nil
}

// waitButton reads the button until it reports the wanted state. Without a
// PollInterval this spins on the bus; it only ends on a match, a transport
// error or ctx cancellation.
func (x *Executor) waitButton(ctx context.Context, e *Entry, on bool) error {
	buf := make([]byte, e.Length)
	for {
		n, err := x.transfer(e, 0, buf)
		if err != nil {
			return err
		}
		if n == e.Length && (buf[0] != 0) == on {
			break
		}

		if x.PollInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(x.PollInterval):
		}
	}
	fmt.Fprintf(x.Out, "button is %s\n", onOff(buf[0]))
	return nil
}
