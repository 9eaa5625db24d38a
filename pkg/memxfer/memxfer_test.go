package memxfer

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/tokenstick/tokenctl/pkg/control"
	"github.com/tokenstick/tokenctl/pkg/devices/devicestest"
	"github.com/tokenstick/tokenctl/pkg/requests"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name     string
		param    string
		withData bool
		want     Range
	}{
		{"read", "100:16", false, Range{Address: 100, Length: 16}},
		{"hex", "0x200:0x10", false, Range{Address: 0x200, Length: 16}},
		{"octal", "010:1", false, Range{Address: 8, Length: 1}},
		{"read ignores data", "100:4:dead", false, Range{Address: 100, Length: 4}},
		{"write with data", "100:4:deadbeef", true, Range{Address: 100, Length: 4, Data: "deadbeef", HasData: true}},
		{"data keeps delimiters", "1:3:aa:bb:cc", true, Range{Address: 1, Length: 3, Data: "aa:bb:cc", HasData: true}},
		{"write without data", "100:4", true, Range{Address: 100, Length: 4}},
		{"missing length", "100", false, Range{Address: 100}},
		{"zero length", "100:0", false, Range{Address: 100}},
		{"negative length", "100:-5", true, Range{Address: 100}},
		{"empty", "", true, Range{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.param, tt.withData)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNumber(t *testing.T) {
	for s, want := range map[string]int64{
		"16": 16, "0x1F": 31, "0X10": 16, "010": 8, "0": 0, "-3": -3, "+7": 7, "-0x10": -16, " 42 ": 42,
	} {
		got, err := ParseNumber(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
	for _, s := range []string{"1_6", "0x1_0", "0b11", "0o7", "08", "0x", "", "-", "--5", "12a"} {
		_, err := ParseNumber(s)
		assert.Error(t, err, s)
	}
}

func TestParseRangeErrors(t *testing.T) {
	for _, param := range []string{"zz:4", "100:four", ":4", "0x10:1_6"} {
		_, err := ParseRange(param, false)
		assert.ErrorIs(t, err, ErrInvalidRange, param)
	}
	_, err := ParseRange("0:0x10000", false)
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestParsePad(t *testing.T) {
	p, err := ParsePad("")
	require.NoError(t, err)
	assert.False(t, p.Set)

	p, err = ParsePad("0xff")
	require.NoError(t, err)
	assert.Equal(t, PadByte(0xff), p)

	p, err = ParsePad("0")
	require.NoError(t, err)
	assert.True(t, p.Set)
	assert.Equal(t, byte(0), p.Value)

	_, err = ParsePad("256")
	assert.Error(t, err)
	_, err = ParsePad("-1")
	assert.Error(t, err)
}

type fixture struct {
	usb    *devicestest.Usb
	engine *Engine
	out    bytes.Buffer
	diag   bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{usb: devicestest.New()}
	d, err := control.New(f.usb, 0)
	require.NoError(t, err)
	f.engine = &Engine{
		D:    d,
		Fs:   afero.NewMemMapFs(),
		Out:  &f.out,
		Diag: &f.diag,
	}
	return f
}

func TestReadDump(t *testing.T) {
	f := newFixture(t)
	f.usb.Respond(uint8(requests.RequestReadMem), []byte("ABCDEFGHIJ"))

	err := f.engine.Read(requests.RequestReadMem, Range{Address: 0x60, Length: 10})
	require.NoError(t, err)

	require.Len(t, f.usb.Calls, 1)
	call := f.usb.Calls[0]
	assert.Equal(t, uint8(0xc0), call.RequestType)
	assert.Equal(t, uint16(0x60), call.Value)
	assert.Equal(t, 10, call.Length)

	want := "00000060: 41 42 43 44 45 46 47 48  |ABCDEFGH|\n" +
		"00000068: 49 4a                    |IJ|\n"
	assert.Equal(t, want, f.out.String())
}

func TestReadFlashUsesFlashRequest(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Read(requests.RequestReadFlash, Range{Address: 0, Length: 2}))
	assert.Equal(t, []uint8{uint8(requests.RequestReadFlash)}, f.usb.Requests())
}

func TestReadEmptyRange(t *testing.T) {
	f := newFixture(t)
	f.engine.File = "out.bin"
	require.NoError(t, f.engine.Read(requests.RequestReadMem, Range{Address: 100, Length: 0}))
	assert.Empty(t, f.usb.Calls)
	assert.Empty(t, f.out.String())

	exists, err := afero.Exists(f.engine.Fs, "out.bin")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReadShort(t *testing.T) {
	f := newFixture(t)
	f.usb.Respond(uint8(requests.RequestReadMem), []byte{1, 2, 3})

	err := f.engine.Read(requests.RequestReadMem, Range{Address: 0, Length: 8})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncomplete)

	var le *control.LengthError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 3, le.Got)
	assert.Equal(t, 8, le.Want)
	assert.Empty(t, f.out.String())
}

func TestReadTransportFailure(t *testing.T) {
	f := newFixture(t)
	f.usb.Fail(uint8(requests.RequestReadMem), errors.New("pipe error"))

	err := f.engine.Read(requests.RequestReadMem, Range{Address: 0, Length: 8})
	assert.ErrorIs(t, err, control.ErrTransport)
}

func TestReadToFile(t *testing.T) {
	f := newFixture(t)
	f.engine.File = "dump.bin"
	f.usb.Respond(uint8(requests.RequestReadMem), []byte{0xde, 0xad, 0xbe, 0xef})

	require.NoError(t, f.engine.Read(requests.RequestReadMem, Range{Address: 4, Length: 4}))
	assert.Empty(t, f.out.String())

	data, err := afero.ReadFile(f.engine.Fs, "dump.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, data)
}

func TestReadToXZFile(t *testing.T) {
	f := newFixture(t)
	f.engine.File = "dump.bin.xz"
	f.usb.Respond(uint8(requests.RequestReadFlash), []byte{1, 2, 3, 4, 5})

	require.NoError(t, f.engine.Read(requests.RequestReadFlash, Range{Address: 0, Length: 5}))

	fd, err := f.engine.Fs.Open("dump.bin.xz")
	require.NoError(t, err)
	defer fd.Close()
	r, err := xz.NewReader(fd)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, data)
}

func TestReadFileUnwritable(t *testing.T) {
	f := newFixture(t)
	f.engine.Fs = afero.NewReadOnlyFs(afero.NewMemMapFs())
	f.engine.File = "dump.bin"

	err := f.engine.Read(requests.RequestReadMem, Range{Address: 0, Length: 4})
	require.Error(t, err)
	assert.Empty(t, f.usb.Calls)
}

func TestWriteInline(t *testing.T) {
	f := newFixture(t)

	r, err := ParseRange("100:4:deadbeef", true)
	require.NoError(t, err)
	require.NoError(t, f.engine.Write(r))

	require.Len(t, f.usb.Calls, 1)
	call := f.usb.Calls[0]
	assert.Equal(t, uint8(0x40), call.RequestType)
	assert.Equal(t, uint8(requests.RequestWriteMem), call.Request)
	assert.Equal(t, uint16(100), call.Value)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, call.Data)
}

func TestWritePadded(t *testing.T) {
	f := newFixture(t)
	f.engine.Pad = PadByte(0xff)

	r, err := ParseRange("0:8:01 02 03 04", true)
	require.NoError(t, err)
	require.NoError(t, f.engine.Write(r))

	require.Len(t, f.usb.Calls, 1)
	assert.Equal(t, []byte{1, 2, 3, 4, 0xff, 0xff, 0xff, 0xff}, f.usb.Calls[0].Data)
}

func TestWriteNoDataUsesPad(t *testing.T) {
	f := newFixture(t)
	f.engine.Pad = PadByte(0xaa)

	require.NoError(t, f.engine.Write(Range{Address: 0, Length: 3}))
	assert.Equal(t, []byte{0xaa, 0xaa, 0xaa}, f.usb.Calls[0].Data)
}

func TestWriteEmptyRange(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Write(Range{Address: 0, Length: -1, Data: "aa", HasData: true}))
	assert.Empty(t, f.usb.Calls)
}

func TestWriteFromFile(t *testing.T) {
	f := newFixture(t)
	f.engine.File = "image.bin"
	require.NoError(t, afero.WriteFile(f.engine.Fs, "image.bin", []byte{9, 8, 7, 6, 5, 4}, 0644))

	r, err := ParseRange("16:4:ffffffff", true)
	require.NoError(t, err)
	require.NoError(t, f.engine.Write(r))

	assert.Equal(t, []byte{9, 8, 7, 6}, f.usb.Calls[0].Data)
	assert.Empty(t, f.diag.String())
}

func TestWriteFromShortFile(t *testing.T) {
	f := newFixture(t)
	f.engine.File = "image.bin"
	require.NoError(t, afero.WriteFile(f.engine.Fs, "image.bin", []byte{1, 2}, 0644))

	require.NoError(t, f.engine.Write(Range{Address: 0, Length: 4}))
	assert.Equal(t, []byte{1, 2, 0, 0}, f.usb.Calls[0].Data)
	assert.Contains(t, f.diag.String(), "could only read 2 bytes")
}

func TestWriteFromShortFilePadded(t *testing.T) {
	f := newFixture(t)
	f.engine.File = "image.bin"
	f.engine.Pad = PadByte(0x55)
	require.NoError(t, afero.WriteFile(f.engine.Fs, "image.bin", []byte{1, 2}, 0644))

	require.NoError(t, f.engine.Write(Range{Address: 0, Length: 4}))
	assert.Equal(t, []byte{1, 2, 0x55, 0x55}, f.usb.Calls[0].Data)
	assert.Empty(t, f.diag.String())
}

func TestWriteFromXZFile(t *testing.T) {
	f := newFixture(t)
	f.engine.File = "image.bin.xz"

	var compressed bytes.Buffer
	w, err := xz.NewWriter(&compressed)
	require.NoError(t, err)
	_, err = w.Write([]byte{0xca, 0xfe, 0xba, 0xbe})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, afero.WriteFile(f.engine.Fs, "image.bin.xz", compressed.Bytes(), 0644))

	require.NoError(t, f.engine.Write(Range{Address: 0, Length: 4}))
	assert.Equal(t, []byte{0xca, 0xfe, 0xba, 0xbe}, f.usb.Calls[0].Data)
}

func TestWriteMissingFile(t *testing.T) {
	f := newFixture(t)
	f.engine.File = "missing.bin"

	err := f.engine.Write(Range{Address: 0, Length: 4})
	require.Error(t, err)
	assert.Empty(t, f.usb.Calls)
}

func TestWriteRejected(t *testing.T) {
	f := newFixture(t)
	f.usb.Accept(uint8(requests.RequestWriteMem), 2)

	err := f.engine.Write(Range{Address: 0, Length: 4})
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestHighAddressTruncated(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Read(requests.RequestReadMem, Range{Address: 0x12345678, Length: 1}))
	assert.Equal(t, uint16(0x5678), f.usb.Calls[0].Value)
}
