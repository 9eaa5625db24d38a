package devices

import (
	"fmt"
	"strings"

	"github.com/google/gousb"
)

// Description identifies a token on the bus. Vendor and Product are matched
// against the device's string descriptors; an empty string matches anything.
type Description struct {
	VID, PID gousb.ID
	Vendor   string
	Product  string
}

// Default is the V-USB shared vendor-class VID/PID pair the token firmware
// ships with.
var Default = Description{
	VID: 0x16c0,
	PID: 0x05dc,
}

func (d Description) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%s", d.VID, d.PID)
	if d.Vendor != "" || d.Product != "" {
		fmt.Fprintf(&sb, " (%q/%q)", d.Vendor, d.Product)
	}
	return sb.String()
}

// Matches reports whether the given manufacturer and product strings satisfy
// the description.
func (d Description) Matches(vendor, product string) bool {
	if d.Vendor != "" && d.Vendor != vendor {
		return false
	}
	if d.Product != "" && d.Product != product {
		return false
	}
	return true
}
