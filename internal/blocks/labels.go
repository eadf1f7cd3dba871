package blocks

import (
	"regexp"
	"strings"

	"github.com/veschin/d2-web-extension-sub000/internal/scan"
)

const maxLabelLen = 60

var labelProperty = regexp.MustCompile(`^\s*label\s*:\s*(.*)$`)

// lineLabel returns the quoted value of a single-line `name: "text"` block.
func lineLabel(line string) string {
	colon := scan.IndexUnquoted(line, ":")
	if colon < 0 {
		return ""
	}
	value := strings.TrimSpace(line[colon+1:])
	if !isQuoted(value) {
		return ""
	}
	return cleanLabel(value)
}

// braceLabel finds a container's label: a quoted value on the header line,
// or else a `label:` property among the container's direct body lines.
func braceLabel(code string) string {
	header := code
	if nl := strings.IndexByte(code, '\n'); nl >= 0 {
		header = code[:nl]
	}
	colon := scan.IndexUnquoted(header, ":")
	open := scan.IndexUnquoted(header, "{")
	if colon >= 0 && open > colon {
		if value := strings.TrimSpace(header[colon+1 : open]); isQuoted(value) {
			return cleanLabel(value)
		}
	}

	inner, _, ok := interior(code)
	if !ok {
		return ""
	}
	depth := 0
	for _, line := range lines(inner) {
		if scan.IsComment(line) {
			continue
		}
		if depth == 0 {
			if m := labelProperty.FindStringSubmatch(line); m != nil {
				if value := propertyValue(m[1]); value != "" {
					return cleanLabel(value)
				}
			}
		}
		depth += scan.BracesDelta(line)
		if depth < 0 {
			break
		}
	}
	return ""
}

// propertyValue reads a property value: a quoted string through its closing
// quote, or bare text up to '}' or end of line.
func propertyValue(rest string) string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return ""
	}
	if q := rest[0]; q == '"' || q == '\'' {
		escaped := false
		for i := 1; i < len(rest); i++ {
			switch {
			case escaped:
				escaped = false
			case rest[i] == '\\':
				escaped = true
			case rest[i] == q:
				return rest[:i+1]
			}
		}
		return rest
	}
	if i := strings.IndexByte(rest, '}'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]
}

// cleanLabel strips one pair of matching quotes, turns literal \n escapes
// into spaces and caps the result at maxLabelLen characters.
func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	if isQuoted(s) {
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, `\n`, " ")
	if r := []rune(s); len(r) > maxLabelLen {
		s = string(r[:maxLabelLen-3]) + "..."
	}
	return s
}
