// Package scan holds the string-aware primitives used to walk diagram source
// line by line without being confused by braces inside quoted text.
package scan

import (
	"regexp"
	"strings"
)

var identRegex = regexp.MustCompile(`^\s*([a-zA-Z_][\w.-]*)`)

// ConnectionTokens are the arrow tokens the grammar recognizes, longest first.
var ConnectionTokens = []string{"<->", "<--", "-->", "->", "<-", "--"}

// each calls fn for every byte of text that lies outside a quoted string.
// Strings never span lines: a newline resets the quote state. A backslash
// inside a string escapes the next byte. Returning false from fn stops the walk.
func each(text string, fn func(i int, c byte) bool) {
	var quote byte
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' {
			quote = 0
			escaped = false
		}
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			continue
		}
		if !fn(i, c) {
			return
		}
	}
}

// BracesDelta returns the net change in brace depth across one line.
func BracesDelta(line string) int {
	delta, _ := Depths(line)
	return delta
}

// Depths returns the net brace delta of line and the highest depth reached
// while scanning it, both relative to the depth at the start of the line.
func Depths(line string) (delta, peak int) {
	each(line, func(_ int, c byte) bool {
		switch c {
		case '{':
			delta++
			if delta > peak {
				peak = delta
			}
		case '}':
			delta--
		}
		return true
	})
	return delta, peak
}

// OpensBrace reports whether line contains an unquoted '{'.
func OpensBrace(line string) bool {
	return IndexUnquoted(line, "{") >= 0
}

// IndexUnquoted returns the index of the first unquoted byte of text that is
// one of chars, or -1.
func IndexUnquoted(text, chars string) int {
	found := -1
	each(text, func(i int, c byte) bool {
		if strings.IndexByte(chars, c) >= 0 {
			found = i
			return false
		}
		return true
	})
	return found
}

// MatchingBraces locates the first unquoted '{' in text and the '}' closing it.
// Comment lines are skipped. When the pair is never closed, close is -1 and
// ok is false; open is -1 when text has no opening brace at all.
func MatchingBraces(text string) (open, close int, ok bool) {
	open, close = -1, -1
	depth := 0
	comment := IsComment(lineAt(text, 0))
	each(text, func(i int, c byte) bool {
		if c == '\n' {
			comment = IsComment(lineAt(text, i+1))
			return true
		}
		if comment {
			return true
		}
		switch c {
		case '{':
			if open < 0 {
				open = i
			}
			depth++
		case '}':
			if open < 0 {
				return true
			}
			depth--
			if depth == 0 {
				close = i
				return false
			}
		}
		return true
	})
	return open, close, close >= 0
}

func lineAt(text string, start int) string {
	if start >= len(text) {
		return ""
	}
	line := text[start:]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	return line
}

// SplitUnquoted cuts line at every unquoted sep byte.
func SplitUnquoted(line string, sep byte) []string {
	var parts []string
	start := 0
	each(line, func(i int, c byte) bool {
		if c == sep {
			parts = append(parts, line[start:i])
			start = i + 1
		}
		return true
	})
	return append(parts, line[start:])
}

// Unquoted returns line with every string literal, quotes included, removed.
func Unquoted(line string) string {
	var b strings.Builder
	each(line, func(_ int, c byte) bool {
		b.WriteByte(c)
		return true
	})
	return b.String()
}

// HasConnection reports whether line contains a connection token outside of
// any string literal.
func HasConnection(line string) bool {
	text := Unquoted(line)
	for _, tok := range ConnectionTokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}

// LeadingIdentifier returns the identifier token line starts with, if any.
func LeadingIdentifier(line string) string {
	m := identRegex.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsComment reports whether line is a '#' comment.
func IsComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

// IsBlank reports whether line holds only whitespace.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
