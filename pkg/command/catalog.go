package command

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/tokenstick/tokenctl/pkg/memxfer"
	"github.com/tokenstick/tokenctl/pkg/requests"
)

// Arg describes whether a catalog entry takes a parameter.
type Arg int

const (
	ArgNone Arg = iota
	ArgRequired
	ArgOptional
)

// Entry is one row of the request catalog.
type Entry struct {
	Long  string
	Short string
	Arg   Arg
	// ArgName is shown in usage, e.g. "<secret>".
	ArgName string
	Usage   string

	Request   requests.Request
	Direction requests.Direction
	// Length is the fixed size of the data stage, or 0 if the request has no
	// fixed size.
	Length int

	// parse builds the typed command. param is nil if no parameter was given,
	// even for entries with ArgRequired.
	parse func(param *string) (Command, error)
}

func (e *Entry) String() string {
	return e.Long
}

func str(param *string) string {
	if param == nil {
		return ""
	}
	return *param
}

func fixed(c Command) func(*string) (Command, error) {
	return func(*string) (Command, error) {
		return c, nil
	}
}

func memRange(withData bool, mk func(memxfer.Range) Command) func(*string) (Command, error) {
	return func(param *string) (Command, error) {
		r, err := memxfer.ParseRange(str(param), withData)
		if err != nil {
			return nil, err
		}
		return mk(r), nil
	}
}

// Catalog lists every operation the token understands, in usage order.
var Catalog = []*Entry{
	{
		Long: "set-secret", Short: "s", Arg: ArgRequired, ArgName: "<secret>",
		Usage:   "set secret (<secret> is a byte sequence in hex)",
		Request: requests.RequestSetSecret, Direction: requests.HostToDevice,
		parse: func(param *string) (Command, error) {
			secret, err := parseSecret(str(param))
			if err != nil {
				return nil, err
			}
			return SetSecret{Secret: secret}, nil
		},
	},
	{
		Long: "inc-counter", Short: "i",
		Usage:   "increment internal counter",
		Request: requests.RequestIncCounter, Direction: requests.DeviceToHost,
		parse: fixed(IncCounter{}),
	},
	{
		Long: "get-counter", Short: "c",
		Usage:   "get current counter value",
		Request: requests.RequestGetCounter, Direction: requests.DeviceToHost, Length: 4,
		parse: fixed(GetCounter{}),
	},
	{
		Long: "reset-counter", Short: "r",
		Usage:   "reset internal counter to zero",
		Request: requests.RequestResetCounter, Direction: requests.DeviceToHost,
		parse: fixed(ResetCounter{}),
	},
	{
		Long: "get-reset-counter", Short: "q",
		Usage:   "get the number of times the counter was reset",
		Request: requests.RequestGetResetCounter, Direction: requests.DeviceToHost, Length: 1,
		parse: fixed(GetResetCounter{}),
	},
	{
		Long: "get-digits", Short: "D",
		Usage:   "get the amount of digits per token",
		Request: requests.RequestGetDigits, Direction: requests.DeviceToHost, Length: 1,
		parse: fixed(GetDigits{}),
	},
	{
		Long: "set-digits", Short: "d", Arg: ArgRequired, ArgName: "<digits>",
		Usage:   "set the amount of digits per token (in range 6..9)",
		Request: requests.RequestSetDigits, Direction: requests.DeviceToHost,
		parse: func(param *string) (Command, error) {
			d, err := ParseDigits(str(param))
			if err != nil {
				return nil, err
			}
			return SetDigits{Digits: d}, nil
		},
	},
	{
		Long: "reset", Short: "R", Arg: ArgOptional, ArgName: "<delay>",
		Usage:   "reset the controller with delay (in range 0..9)",
		Request: requests.RequestReset, Direction: requests.DeviceToHost,
		parse: func(param *string) (Command, error) {
			if param == nil || *param == "" {
				return Reset{}, nil
			}
			// An unparsable delay is rejected rather than sent as 0.
			d, err := ParseDelay(*param)
			if err != nil {
				return nil, err
			}
			return Reset{Delay: d}, nil
		},
	},
	{
		Long: "get-token", Short: "t",
		Usage:   "get a token",
		Request: requests.RequestGetToken, Direction: requests.DeviceToHost, Length: tokenLength,
		parse: fixed(GetToken{}),
	},
	{
		Long: "read-button", Short: "b",
		Usage:   "read status of button",
		Request: requests.RequestReadButton, Direction: requests.DeviceToHost, Length: 1,
		parse: fixed(ReadButton{}),
	},
	{
		Long: "wait-for-button", Short: "W", Arg: ArgOptional, ArgName: "<on|off>",
		Usage:   "wait until the button reaches the given state (default on)",
		Request: requests.RequestReadButton, Direction: requests.DeviceToHost, Length: 1,
		parse: func(param *string) (Command, error) {
			if param == nil {
				return WaitButton{On: true}, nil
			}
			return WaitButton{On: parseButtonTarget(*param)}, nil
		},
	},
	{
		Long: "press-button", Short: "B",
		Usage:   "simulate a button press",
		Request: requests.RequestPressButton, Direction: requests.HostToDevice,
		parse: fixed(PressButton{}),
	},
	{
		Long: "get-dbg", Short: "x",
		Usage:   "get content of the debug register",
		Request: requests.RequestGetDbg, Direction: requests.DeviceToHost, Length: debugBufferLength,
		parse: fixed(GetDebug{}),
	},
	{
		Long: "set-dbg", Short: "y", Arg: ArgRequired, ArgName: "<data>",
		Usage:   "set content of the debug register (<data> is a byte sequence in hex of max. 8 bytes)",
		Request: requests.RequestSetDbg, Direction: requests.HostToDevice,
		parse: func(param *string) (Command, error) {
			data, err := parseDebug(str(param))
			if err != nil {
				return nil, err
			}
			return SetDebug{Data: data}, nil
		},
	},
	{
		Long: "clr-dbg", Short: "z",
		Usage:   "clear the content of the debug register",
		Request: requests.RequestClrDbg, Direction: requests.DeviceToHost,
		parse: fixed(ClearDebug{}),
	},
	{
		Long: "read-temp", Short: "T",
		Usage:   "read the raw temperature sensor value",
		Request: requests.RequestReadTmpSens, Direction: requests.DeviceToHost, Length: 2,
		parse: fixed(ReadTemperature{}),
	},
	{
		Long: "read-mem", Short: "m", Arg: ArgRequired, ArgName: "<addr>:<len>",
		Usage:   "read <len> bytes of RAM starting at <addr>",
		Request: requests.RequestReadMem, Direction: requests.DeviceToHost,
		parse: memRange(false, func(r memxfer.Range) Command { return ReadMemory{Range: r} }),
	},
	{
		Long: "read-flash", Short: "F", Arg: ArgRequired, ArgName: "<addr>:<len>",
		Usage:   "read <len> bytes of flash starting at <addr>",
		Request: requests.RequestReadFlash, Direction: requests.DeviceToHost,
		parse: memRange(false, func(r memxfer.Range) Command { return ReadFlash{Range: r} }),
	},
	{
		Long: "write-mem", Short: "w", Arg: ArgRequired, ArgName: "<addr>:<len>[:<data>]",
		Usage:   "write <len> bytes of RAM starting at <addr> (<data> in hex, or taken from --file)",
		Request: requests.RequestWriteMem, Direction: requests.HostToDevice,
		parse: memRange(true, func(r memxfer.Range) Command { return WriteMemory{Range: r} }),
	},
}

// Lookup finds a catalog entry by long or short name.
func Lookup(name string) (*Entry, error) {
	i := slices.IndexFunc(Catalog, func(e *Entry) bool {
		return e.Long == name || (e.Short != "" && e.Short == name)
	})
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return Catalog[i], nil
}

func mustLookup(name string) *Entry {
	e, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return e
}

// Select returns the single entry among selected. Zero or multiple selections
// are configuration errors.
func Select(selected []*Entry) (*Entry, error) {
	switch len(selected) {
	case 0:
		return nil, ErrNoCommand
	case 1:
		return selected[0], nil
	}
	names := make([]string, len(selected))
	for i, e := range selected {
		names[i] = "--" + e.Long
	}
	return nil, fmt.Errorf("%w, got %s", ErrMultipleCommands, strings.Join(names, ", "))
}

// Parse turns the raw parameter of e into a typed Command. A nil param means
// no parameter was given.
func Parse(e *Entry, param *string) (Command, error) {
	if e.Arg == ArgNone {
		param = nil
	}
	c, err := e.parse(param)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", e.Long, err)
	}
	return c, nil
}

// WriteUsage prints the command list, one entry per line.
func WriteUsage(w io.Writer, name string) {
	fmt.Fprintf(w, "usage:\n    %s <command> <parameter string>\n  <command> is one of the following\n", name)
	for _, e := range Catalog {
		left := "--" + e.Long
		if e.Short != "" {
			left = "-" + e.Short + " " + left
		}
		switch e.Arg {
		case ArgRequired:
			left += " " + e.ArgName
		case ArgOptional:
			left += "[=" + e.ArgName + "]"
		}
		fmt.Fprintf(w, "    %s %s %s\n", left, strings.Repeat(".", max(3, 36-len(left))), e.Usage)
	}
}
