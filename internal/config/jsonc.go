package config

import "strings"

// stripJSONComments removes // line comments and /* block comments from
// JSON-with-comments input, tolerating the .jsonc convention config files
// use. Hand-rolled rather than pulled from a library (see DESIGN.md); it
// tracks string-literal state explicitly so comment markers inside quoted
// strings aren't mistaken for real comments.

// StripJSONComments is the exported form of stripJSONComments, used by
// callers outside this package that need to round-trip a .jsonc file
// (e.g. `auth`'s single-field config rewrite).
func StripJSONComments(in []byte) []byte {
	return stripJSONComments(in)
}

func stripJSONComments(in []byte) []byte {
	var out strings.Builder
	out.Grow(len(in))

	inString := false
	inLineComment := false
	inBlockComment := false
	escaped := false

	runes := []rune(string(in))
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case inLineComment:
			if c == '\n' {
				inLineComment = false
				out.WriteRune(c)
			}
			continue
		case inBlockComment:
			if c == '*' && next == '/' {
				inBlockComment = false
				i++
			}
			continue
		case inString:
			out.WriteRune(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		default:
			switch {
			case c == '"':
				inString = true
				out.WriteRune(c)
			case c == '/' && next == '/':
				inLineComment = true
				i++
			case c == '/' && next == '*':
				inBlockComment = true
				i++
			default:
				out.WriteRune(c)
			}
		}
	}
	return []byte(out.String())
}
