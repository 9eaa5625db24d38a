// Package requests holds the vendor request codes understood by the token
// firmware and the bmRequestType encoding used to send them.
package requests

import "fmt"

type Request uint8

const (
	RequestSetSecret       Request = 1
	RequestIncCounter      Request = 2
	RequestGetCounter      Request = 3
	RequestResetCounter    Request = 4
	RequestGetResetCounter Request = 5
	RequestSetDigits       Request = 6
	RequestGetDigits       Request = 7
	RequestGetToken        Request = 8
	RequestPressButton     Request = 9
	RequestReadButton      Request = 10
	RequestGetDbg          Request = 11
	RequestSetDbg          Request = 12
	RequestClrDbg          Request = 13
	RequestReset           Request = 14
	RequestReadMem         Request = 15
	RequestWriteMem        Request = 16
	RequestReadFlash       Request = 17
	RequestReadTmpSens     Request = 18
)

func (r Request) String() string {
	switch r {
	case RequestSetSecret:
		return "SET_SECRET"
	case RequestIncCounter:
		return "INC_COUNTER"
	case RequestGetCounter:
		return "GET_COUNTER"
	case RequestResetCounter:
		return "RESET_COUNTER"
	case RequestGetResetCounter:
		return "GET_RESET_COUNTER"
	case RequestSetDigits:
		return "SET_DIGITS"
	case RequestGetDigits:
		return "GET_DIGITS"
	case RequestGetToken:
		return "GET_TOKEN"
	case RequestPressButton:
		return "PRESS_BUTTON"
	case RequestReadButton:
		return "READ_BUTTON"
	case RequestGetDbg:
		return "GET_DBG"
	case RequestSetDbg:
		return "SET_DBG"
	case RequestClrDbg:
		return "CLR_DBG"
	case RequestReset:
		return "RESET"
	case RequestReadMem:
		return "READ_MEM"
	case RequestWriteMem:
		return "WRITE_MEM"
	case RequestReadFlash:
		return "READ_FLASH"
	case RequestReadTmpSens:
		return "READ_TMPSENS"
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(r))
}

// Direction of the data stage of a control transfer.
type Direction uint8

const (
	HostToDevice Direction = 0x00
	DeviceToHost Direction = 0x80
)

func (d Direction) String() string {
	if d == DeviceToHost {
		return "IN"
	}
	return "OUT"
}

const (
	typeVendor      = 0x40
	recipientDevice = 0x00
)

// RequestType returns the bmRequestType of a vendor request addressed to the
// device in the given direction.
func RequestType(d Direction) uint8 {
	return typeVendor | recipientDevice | uint8(d)
}
