package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/tokenstick/tokenctl/pkg/command"
)

// commandFlag is the pflag.Value behind a catalog entry's flag. It counts
// every occurrence so that repeating a command is caught like giving two
// different ones.
type commandFlag struct {
	entry *command.Entry

	count int
	value string
	// explicit is set when a value was attached to the flag rather than
	// filled in by pflag for a bare optional flag.
	explicit bool
}

var _ pflag.Value = (*commandFlag)(nil)

func newCommandFlag(fl *pflag.FlagSet, e *command.Entry) *commandFlag {
	f := &commandFlag{entry: e}
	pf := fl.VarPF(f, e.Long, e.Short, e.Usage)
	switch e.Arg {
	case command.ArgNone:
		pf.NoOptDefVal = "true"
	case command.ArgOptional:
		// Shown in usage as --reset[=<delay>]; Set treats it as absent.
		pf.NoOptDefVal = e.ArgName
	}
	return f
}

func (f *commandFlag) Set(s string) error {
	switch f.entry.Arg {
	case command.ArgNone:
		on, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		if !on {
			return nil
		}
	case command.ArgOptional:
		if s == f.entry.ArgName {
			f.count++
			f.value, f.explicit = "", false
			return nil
		}
	}
	f.count++
	f.value, f.explicit = s, true
	return nil
}

func (f *commandFlag) String() string {
	if f.entry.Arg == command.ArgNone {
		return strconv.FormatBool(f.count > 0)
	}
	return f.value
}

// Type drives pflag's usage rendering: "bool" hides the value, "" shows only
// the optional placeholder.
func (f *commandFlag) Type() string {
	switch f.entry.Arg {
	case command.ArgNone:
		return "bool"
	case command.ArgOptional:
		return ""
	}
	return "string"
}

// param resolves the raw parameter for the selected entry. A positional
// argument is only taken when no value was attached to the flag.
func (f *commandFlag) param(args []string) (*string, error) {
	e := f.entry
	if e.Arg == command.ArgNone {
		if len(args) > 0 {
			return nil, fmt.Errorf("%w: --%s takes no parameter, got %q", command.ErrInvalidParameter, e.Long, args[0])
		}
		return nil, nil
	}
	if len(args) > 0 {
		if f.explicit {
			return nil, fmt.Errorf("%w: --%s already has parameter %q, got extra %q", command.ErrInvalidParameter, e.Long, f.value, args[0])
		}
		return &args[0], nil
	}
	if !f.explicit {
		return nil, nil
	}
	v := f.value
	return &v, nil
}
