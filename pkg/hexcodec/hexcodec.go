// Package hexcodec turns user-supplied hex digit strings into bytes.
//
// Two policies exist. DecodeStrict stops at the first character that is not a
// hex digit and is used for secrets and debug register payloads.
// DecodeScan skips anything that is not a hex digit, so that inline memory
// data can be written as "de:ad be ef".
package hexcodec

// Nibble maps a single hex digit to its value. Upper case digits are folded to
// lower case first.
func Nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	}
	c |= 'a' ^ 'A'
	if c >= 'a' && c <= 'f' {
		return 10 + c - 'a', true
	}
	return 0, false
}

// DecodeStrict decodes s until the end of the string or the first non-hex
// character, whichever comes first. An odd number of digits leaves the low
// nibble of the last byte zero.
func DecodeStrict(s string) []byte {
	res := make([]byte, (len(s)+1)/2)
	n := 0
	for i := 0; i < len(s); i++ {
		v, ok := Nibble(s[i])
		if !ok {
			break
		}
		if n&1 == 0 {
			res[n/2] = v << 4
		} else {
			res[n/2] |= v
		}
		n++
	}
	return res[:(n+1)/2]
}

// DecodeScan decodes hex digit pairs from s into dst, ignoring any characters
// in between. It stops once dst is full or s is exhausted and returns the
// number of bytes written. A trailing lone digit is stored in the high nibble.
//
// dst is not cleared beforehand, bytes past the returned count keep whatever
// the caller filled them with.
func DecodeScan(s string, dst []byte) int {
	n := 0
	for i := 0; i < len(s) && n/2 < len(dst); i++ {
		v, ok := Nibble(s[i])
		if !ok {
			continue
		}
		if n&1 == 0 {
			dst[n/2] = v << 4
		} else {
			dst[n/2] |= v
		}
		n++
	}
	return (n + 1) / 2
}
