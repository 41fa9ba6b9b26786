package u

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FormatSize formats a number in a human-readable form e.g. 1.24 kB
func FormatSize(n int64) string {
	sizes := []int64{1024 * 1024 * 1024, 1024 * 1024, 1024}
	suffixes := []string{"GB", "MB", "kB"}
	for i, size := range sizes {
		if n >= size {
			s := fmt.Sprintf("%.2f", float64(n)/float64(size))
			return strings.TrimSuffix(s, ".00") + " " + suffixes[i]
		}
	}
	return fmt.Sprintf("%d bytes", n)
}

// Preview returns at most maxRunes printable characters from the start of d.
// Blobs are arbitrary bytes so invalid utf8 and control characters
// are shown as '.'. Appends "..." if d was cut.
func Preview(d []byte, maxRunes int) string {
	var sb strings.Builder
	n := 0
	for len(d) > 0 {
		if n >= maxRunes {
			sb.WriteString("...")
			break
		}
		r, size := utf8.DecodeRune(d)
		d = d[size:]
		if r == utf8.RuneError || r < 0x20 || r == 0x7f {
			r = '.'
		}
		sb.WriteRune(r)
		n++
	}
	return sb.String()
}
