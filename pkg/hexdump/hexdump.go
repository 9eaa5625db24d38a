// Package hexdump prints byte blocks annotated with device addresses.
package hexdump

import (
	"fmt"
	"io"
	"strings"
)

// Block writes data to w, width bytes per line, each line prefixed with the
// address of its first byte relative to base.
func Block(w io.Writer, data []byte, base uint32, width int) error {
	if width <= 0 {
		width = 16
	}
	var sb strings.Builder
	for off := 0; off < len(data); off += width {
		end := off + width
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]

		sb.Reset()
		fmt.Fprintf(&sb, "%08x:", base+uint32(off))
		for i := 0; i < width; i++ {
			if i < len(row) {
				fmt.Fprintf(&sb, " %02x", row[i])
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString("  |")
		for _, b := range row {
			if b >= 0x20 && b < 0x7f {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}
