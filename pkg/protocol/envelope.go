package protocol

import (
	"strconv"
	"strings"
)

// FormatEnvelope yields "<category>:<serial>:<text>", the inner payload of a
// text-mode frame.
func FormatEnvelope(category Category, serial uint64, text string) string {
	var b strings.Builder
	b.WriteString(string(category))
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(serial, 10))
	b.WriteByte(':')
	b.WriteString(text)
	return b.String()
}

// ParseEnvelope splits "<category>:<serial>:<text>" on the first two colons
// only — text may itself contain further colons and is returned verbatim.
// The category field is returned as whatever literal preceded the first
// colon; category validity is enforced at dispatch time, not here. Returns
// ErrFormat if fewer than two colons are present or the serial field is not
// a non-negative decimal integer.
func ParseEnvelope(s string) (category Category, serial uint64, text string, err error) {
	i1 := strings.IndexByte(s, ':')
	if i1 < 0 {
		return "", 0, "", NewFormatError("expecting CATEGORY:SERIAL:TEXT")
	}
	i2 := strings.IndexByte(s[i1+1:], ':')
	if i2 < 0 {
		return "", 0, "", NewFormatError("expecting CATEGORY:SERIAL:TEXT")
	}
	i2 += i1 + 1
	if i2 < i1+2 {
		return "", 0, "", NewFormatError("expecting CATEGORY:SERIAL:TEXT")
	}
	serialField := s[i1+1 : i2]
	serial, perr := strconv.ParseUint(serialField, 10, 64)
	if perr != nil {
		return "", 0, "", NewFormatError("serial is not a non-negative decimal integer: " + serialField)
	}
	return Category(s[:i1]), serial, s[i2+1:], nil
}
