// Package memxfer reads and writes the token's memory and flash address
// spaces with single control transfers, optionally backed by a file.
package memxfer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"

	"github.com/tokenstick/tokenctl/pkg/control"
	"github.com/tokenstick/tokenctl/pkg/hexcodec"
	"github.com/tokenstick/tokenctl/pkg/hexdump"
	"github.com/tokenstick/tokenctl/pkg/requests"
)

// ErrIncomplete is wrapped when the device moved fewer or more bytes than the
// range asked for.
var ErrIncomplete = errors.New("transfer incomplete")

// dumpWidth is the number of bytes per hex dump line for memory reads.
const dumpWidth = 8

// Dispatcher is the subset of *control.Dispatcher used by the engine.
type Dispatcher interface {
	In(code requests.Request, value uint16, buf []byte) (int, error)
	Out(code requests.Request, value uint16, data []byte) (int, error)
}

// Engine performs memory transfers. If File is set, reads go to it and writes
// come from it; otherwise reads are hex dumped to Out and writes take inline
// data from the range.
type Engine struct {
	D    Dispatcher
	Fs   afero.Fs
	File string
	Pad  Pad

	Out  io.Writer
	Diag io.Writer
}

func (e *Engine) fs() afero.Fs {
	if e.Fs == nil {
		return afero.NewOsFs()
	}
	return e.Fs
}

func (e *Engine) diag() io.Writer {
	if e.Diag == nil {
		return io.Discard
	}
	return e.Diag
}

func wValue(addr uint32) uint16 {
	if addr > 0xffff {
		glog.Warningf("Address 0x%08x does not fit the 16-bit request value, sending 0x%04x", addr, uint16(addr))
	}
	return uint16(addr)
}

// Read fetches r from the address space selected by code (RequestReadMem or
// RequestReadFlash).
func (e *Engine) Read(code requests.Request, r Range) error {
	if r.Empty() {
		return nil
	}
	if r.Length > MaxLength {
		return fmt.Errorf("%w: %d bytes", ErrTooLong, r.Length)
	}

	var sink io.WriteCloser
	if e.File != "" {
		var err error
		sink, err = createSink(e.fs(), e.File)
		if err != nil {
			return fmt.Errorf("could not open %s for writing: %w", e.File, err)
		}
		defer func() {
			if sink != nil {
				sink.Close()
			}
		}()
	}

	buf := make([]byte, r.Length)
	n, err := e.D.In(code, wValue(r.Address), buf)
	if err != nil {
		return err
	}
	if err := control.Expect(code.String(), n, r.Length); err != nil {
		return fmt.Errorf("%w: %w", ErrIncomplete, err)
	}

	if sink == nil {
		return hexdump.Block(e.Out, buf, r.Address, dumpWidth)
	}
	written, err := sink.Write(buf)
	if err == nil && written != r.Length {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("could write only %d bytes out of %d bytes: %w", written, r.Length, err)
	}
	s := sink
	sink = nil
	if err := s.Close(); err != nil {
		return fmt.Errorf("could not close %s: %w", e.File, err)
	}
	glog.Infof("Wrote %d bytes from %s to %s", r.Length, r, e.File)
	return nil
}

// Assemble builds the write buffer for r: pad bytes overlaid with file
// contents, or with inline hex data when no file is configured.
func (e *Engine) Assemble(r Range) ([]byte, error) {
	buf := bytes.Repeat([]byte{e.Pad.Value}, r.Length)

	if e.File == "" {
		if r.HasData {
			hexcodec.DecodeScan(r.Data, buf)
		}
		return buf, nil
	}

	src, err := openSource(e.fs(), e.File)
	if err != nil {
		return nil, fmt.Errorf("could not open %s for reading: %w", e.File, err)
	}
	defer src.Close()

	n, err := io.ReadFull(src, buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if !e.Pad.Set {
			glog.Warningf("Short read from %s: %d of %d bytes", e.File, n, r.Length)
			fmt.Fprintf(e.diag(), "Warning: could only read %d bytes from file; the remaining %d bytes are zero\n", n, r.Length-n)
		}
	default:
		return nil, fmt.Errorf("could not read %s: %w", e.File, err)
	}
	return buf, nil
}

// Write stores r on the device.
func (e *Engine) Write(r Range) error {
	if r.Empty() {
		return nil
	}
	if r.Length > MaxLength {
		return fmt.Errorf("%w: %d bytes", ErrTooLong, r.Length)
	}
	buf, err := e.Assemble(r)
	if err != nil {
		return err
	}
	n, err := e.D.Out(requests.RequestWriteMem, wValue(r.Address), buf)
	if err != nil {
		return err
	}
	if err := control.Expect(requests.RequestWriteMem.String(), n, r.Length); err != nil {
		return fmt.Errorf("%w: device accepted only %d bytes out of %d: %w", ErrIncomplete, n, r.Length, err)
	}
	return nil
}

type multiCloser struct {
	io.Writer
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func isXZ(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".xz")
}

func createSink(fs afero.Fs, name string) (io.WriteCloser, error) {
	f, err := fs.Create(name)
	if err != nil {
		return nil, err
	}
	if !isXZ(name) {
		return f, nil
	}
	w, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("xz: %w", err)
	}
	return &multiCloser{Writer: w, closers: []io.Closer{w, f}}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func openSource(fs afero.Fs, name string) (io.ReadCloser, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	if !isXZ(name) {
		return f, nil
	}
	r, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("xz: %w", err)
	}
	return readCloser{Reader: r, Closer: f}, nil
}
