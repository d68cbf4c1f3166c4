package modl

import (
	"strings"
)

// escape replacements, applied to raw string literals before any reference
// scanning. Decoding is a single left-to-right pass; a tilde or backslash
// with an unrecognised successor is kept verbatim, which also makes decoding
// idempotent on fully-decoded text.
var escapeSuccessors = map[byte]string{
	'"': `"`,
	'=': "=",
	':': ":",
	';': ";",
	'(': "(",
	')': ")",
	'[': "[",
	']': "]",
	'&': "&",
}

// Unescape applies the MODL escape rules to a raw string literal.
func Unescape(input string) string {
	if !strings.ContainsAny(input, "~\\") {
		return input
	}

	var out strings.Builder
	out.Grow(len(input))

	for i := 0; i < len(input); i++ {
		c := input[i]
		if c != '~' && c != '\\' {
			out.WriteByte(c)
			continue
		}
		if i == len(input)-1 {
			out.WriteByte(c)
			continue
		}

		next := input[i+1]
		switch {
		case c == '\\' && next == 'n':
			out.WriteByte('\n')
			i++
		case c == '~' && next == '~':
			out.WriteByte('~')
			i++
		case c == '\\' && next == '\\':
			out.WriteByte('\\')
			i++
		default:
			if replacement, ok := escapeSuccessors[next]; ok {
				out.WriteString(replacement)
				i++
			} else {
				out.WriteByte(c)
			}
		}
	}

	return out.String()
}
