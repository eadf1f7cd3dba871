// Package compile runs the d2 toolchain in-process. It produces the
// compiler-style error text consumed by the diagnostics mapper and the
// canonical formatting of a document.
package compile

import (
	"fmt"
	"strings"

	"oss.terrastruct.com/d2/d2format"
	"oss.terrastruct.com/d2/d2parser"
)

// Check parses source and returns the parser's error text, one
// `path:LINE:COL: message` line per error, or "" when source is valid.
func Check(path, source string) string {
	_, err := d2parser.Parse(path, strings.NewReader(source), nil)
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}

// Format returns source in canonical d2 formatting.
func Format(path, source string) (string, error) {
	m, err := d2parser.Parse(path, strings.NewReader(source), nil)
	if err != nil {
		return "", fmt.Errorf("compile: format %s: %w", path, err)
	}
	return d2format.Format(m), nil
}
