package command

import (
	"errors"

	"github.com/tokenstick/tokenctl/pkg/memxfer"
)

// Configuration errors. These are detected before any transfer is issued.
var (
	ErrNoCommand        = errors.New("no action specified")
	ErrMultipleCommands = errors.New("only one action may be given")
	ErrUnknownCommand   = errors.New("unknown action")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// IsConfigError reports whether err was caused by the invocation itself
// rather than by the device.
func IsConfigError(err error) bool {
	switch {
	case errors.Is(err, ErrNoCommand),
		errors.Is(err, ErrMultipleCommands),
		errors.Is(err, ErrUnknownCommand),
		errors.Is(err, ErrInvalidParameter),
		errors.Is(err, memxfer.ErrInvalidRange),
		errors.Is(err, memxfer.ErrTooLong):
		return true
	}
	return false
}
