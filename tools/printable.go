package tools

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Printable drops control and invalid characters from b so it can go into a log line,
// the result is cut to limit runes (limit <= 0 means no limit)
func Printable[T ~string | ~[]byte](b T, limit int) string {
	s := string(b)
	var sb strings.Builder
	sb.Grow(len(s))
	count := 0
	for _, r := range s {
		if r == utf8.RuneError || !unicode.IsPrint(r) {
			continue
		}
		if limit > 0 && count == limit {
			sb.WriteString("...")
			break
		}
		sb.WriteRune(r)
		count++
	}
	return sb.String()
}
