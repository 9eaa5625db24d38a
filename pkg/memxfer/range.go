package memxfer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxLength is the largest data stage a single control transfer can carry.
const MaxLength = 0xffff

var (
	ErrInvalidRange = errors.New("invalid memory range")
	ErrTooLong      = errors.New("length exceeds a single control transfer")
)

// Range is a parsed "<address>:<length>[:<data>]" parameter.
type Range struct {
	// Address is opaque to the host and only interpreted by the device.
	Address uint32
	// Length <= 0 means there is nothing to do.
	Length int

	// Data is the inline hex data following the second delimiter. It is only
	// meaningful when HasData is set.
	Data    string
	HasData bool
}

func (r Range) String() string {
	return fmt.Sprintf("0x%08x:%d", r.Address, r.Length)
}

// Empty reports whether the range describes no transfer at all.
func (r Range) Empty() bool {
	return r.Length <= 0
}

// ParseNumber parses a generic integer literal: decimal, 0x-prefixed hex or
// 0-prefixed octal, with an optional sign. Go-only forms such as 0b, 0o and
// digit separators are not accepted.
func ParseNumber(s string) (int64, error) {
	digits := strings.TrimSpace(s)
	neg := false
	if digits != "" && (digits[0] == '+' || digits[0] == '-') {
		neg = digits[0] == '-'
		digits = digits[1:]
	}
	base := 10
	switch {
	case len(digits) > 1 && (digits[:2] == "0x" || digits[:2] == "0X"):
		base, digits = 16, digits[2:]
	case len(digits) > 1 && digits[0] == '0':
		base, digits = 8, digits[1:]
	}
	v, err := strconv.ParseUint(digits, base, 63)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if neg {
		return -int64(v), nil
	}
	return int64(v), nil
}

// ParseRange parses param. withData selects the write grammar, in which
// anything after the second ':' is kept as inline data. A missing length
// yields an empty range. An empty param is an empty range as well.
func ParseRange(param string, withData bool) (Range, error) {
	var r Range
	if param == "" {
		return r, nil
	}
	parts := strings.SplitN(param, ":", 3)

	addr, err := ParseNumber(parts[0])
	if err != nil {
		return r, fmt.Errorf("%w: address: %v", ErrInvalidRange, err)
	}
	r.Address = uint32(addr)

	if len(parts) < 2 {
		return r, nil
	}
	length, err := ParseNumber(parts[1])
	if err != nil {
		return r, fmt.Errorf("%w: length: %v", ErrInvalidRange, err)
	}
	if length > MaxLength {
		return r, fmt.Errorf("%w: %d bytes requested, at most %d possible", ErrTooLong, length, MaxLength)
	}
	if length > 0 {
		r.Length = int(length)
	}

	if withData && len(parts) == 3 {
		r.Data = parts[2]
		r.HasData = true
	}
	return r, nil
}

// Pad is the byte used to fill write buffers before data is copied in. The
// zero value is an unset pad, which fills with zero but is distinguishable
// from an explicitly configured zero.
type Pad struct {
	Value byte
	Set   bool
}

// PadByte returns a configured pad.
func PadByte(b byte) Pad {
	return Pad{Value: b, Set: true}
}

// ParsePad parses a pad value in the range 0..255. An empty string yields an
// unset pad.
func ParsePad(s string) (Pad, error) {
	if s == "" {
		return Pad{}, nil
	}
	v, err := ParseNumber(s)
	if err != nil {
		return Pad{}, err
	}
	if v < 0 || v > 0xff {
		return Pad{}, fmt.Errorf("pad byte %d out of range 0..255", v)
	}
	return PadByte(byte(v)), nil
}

func (p Pad) String() string {
	if !p.Set {
		return "unset"
	}
	return fmt.Sprintf("0x%02x", p.Value)
}
