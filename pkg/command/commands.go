package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tokenstick/tokenctl/pkg/hexcodec"
	"github.com/tokenstick/tokenctl/pkg/memxfer"
)

// Command is one fully parsed invocation. The set of implementations is closed;
// Executor.Run switches over all of them.
type Command interface {
	// Name is the long name of the catalog entry the command came from.
	Name() string
	isCommand()
}

type (
	SetSecret struct {
		Secret []byte
	}
	IncCounter      struct{}
	GetCounter      struct{}
	ResetCounter    struct{}
	GetResetCounter struct{}
	GetDigits       struct{}
	SetDigits       struct {
		Digits Digits
	}
	Reset struct {
		Delay Delay
	}
	GetToken   struct{}
	ReadButton struct{}
	// WaitButton polls the button until it reads On.
	WaitButton struct {
		On bool
	}
	PressButton struct{}
	GetDebug    struct{}
	SetDebug    struct {
		Data []byte
	}
	ClearDebug      struct{}
	ReadTemperature struct{}
	ReadMemory      struct {
		Range memxfer.Range
	}
	ReadFlash struct {
		Range memxfer.Range
	}
	WriteMemory struct {
		Range memxfer.Range
	}
)

func (SetSecret) Name() string       { return "set-secret" }
func (IncCounter) Name() string      { return "inc-counter" }
func (GetCounter) Name() string      { return "get-counter" }
func (ResetCounter) Name() string    { return "reset-counter" }
func (GetResetCounter) Name() string { return "get-reset-counter" }
func (GetDigits) Name() string       { return "get-digits" }
func (SetDigits) Name() string       { return "set-digits" }
func (Reset) Name() string           { return "reset" }
func (GetToken) Name() string        { return "get-token" }
func (ReadButton) Name() string      { return "read-button" }
func (WaitButton) Name() string      { return "wait-for-button" }
func (PressButton) Name() string     { return "press-button" }
func (GetDebug) Name() string        { return "get-dbg" }
func (SetDebug) Name() string        { return "set-dbg" }
func (ClearDebug) Name() string      { return "clr-dbg" }
func (ReadTemperature) Name() string { return "read-temp" }
func (ReadMemory) Name() string      { return "read-mem" }
func (ReadFlash) Name() string       { return "read-flash" }
func (WriteMemory) Name() string     { return "write-mem" }

func (SetSecret) isCommand()       {}
func (IncCounter) isCommand()      {}
func (GetCounter) isCommand()      {}
func (ResetCounter) isCommand()    {}
func (GetResetCounter) isCommand() {}
func (GetDigits) isCommand()       {}
func (SetDigits) isCommand()       {}
func (Reset) isCommand()           {}
func (GetToken) isCommand()        {}
func (ReadButton) isCommand()      {}
func (WaitButton) isCommand()      {}
func (PressButton) isCommand()     {}
func (GetDebug) isCommand()        {}
func (SetDebug) isCommand()        {}
func (ClearDebug) isCommand()      {}
func (ReadTemperature) isCommand() {}
func (ReadMemory) isCommand()      {}
func (ReadFlash) isCommand()       {}
func (WriteMemory) isCommand()     {}

// Digits is the number of digits per token, always within [MinDigits, MaxDigits].
type Digits uint8

const (
	MinDigits Digits = 6
	MaxDigits Digits = 9
)

// ParseDigits parses a decimal digit count and checks its range.
func ParseDigits(s string) (Digits, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < int(MinDigits) || v > int(MaxDigits) {
		return 0, fmt.Errorf("%w: <digits> must be in range 6, 7, 8 or 9, got %q", ErrInvalidParameter, s)
	}
	return Digits(v), nil
}

// Delay is the soft reset delay. Only the low 4 bits are sent.
type Delay uint8

// ParseDelay parses a generic integer literal and masks it to 4 bits.
func ParseDelay(s string) (Delay, error) {
	v, err := memxfer.ParseNumber(s)
	if err != nil {
		return 0, fmt.Errorf("%w: reset delay: %v", ErrInvalidParameter, err)
	}
	return Delay(uint64(v) & 0xf), nil
}

// MaxDebugLength is the size of the device's debug register.
const MaxDebugLength = 8

// maxSecretLength keeps the secret's bit count within the 16-bit request value.
const maxSecretLength = 0xffff / 8

func parseSecret(s string) ([]byte, error) {
	secret := hexcodec.DecodeStrict(s)
	if len(secret) > maxSecretLength {
		return nil, fmt.Errorf("%w: secret of %d bytes is too long, at most %d bytes possible", ErrInvalidParameter, len(secret), maxSecretLength)
	}
	return secret, nil
}

func parseDebug(s string) ([]byte, error) {
	data := hexcodec.DecodeStrict(s)
	if len(data) > MaxDebugLength {
		return nil, fmt.Errorf("%w: debug data of %d bytes is too long, at most %d bytes possible", ErrInvalidParameter, len(data), MaxDebugLength)
	}
	return data, nil
}

// parseButtonTarget returns false for "off" and "0", true for anything else.
func parseButtonTarget(s string) bool {
	return s != "off" && s != "0"
}
