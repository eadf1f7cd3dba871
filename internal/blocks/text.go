package blocks

import (
	"strings"

	"github.com/veschin/d2-web-extension-sub000/internal/scan"
)

// Text is the pure-text strategy. It never fails: unterminated containers
// absorb the rest of the source.
type Text struct{}

// Extract implements Extractor.
func (Text) Extract(source string) ([]Block, error) {
	return extractText(source), nil
}

func extractText(source string) []Block {
	if source == "" {
		return nil
	}
	ls := lines(source)

	var out []Block
	for i := 0; i < len(ls); i++ {
		line := ls[i]
		if scan.IsBlank(line) || scan.IsComment(line) {
			continue
		}

		if scan.OpensBrace(line) {
			end := len(ls) - 1
			depth := 0
			for j := i; j < len(ls); j++ {
				if j > i && scan.IsComment(ls[j]) {
					continue
				}
				depth += scan.BracesDelta(ls[j])
				if depth <= 0 {
					end = j
					break
				}
			}

			name := statementName(line)
			if name == "" {
				i = end
				continue
			}
			code := sliceLines(ls, i, end)
			out = append(out, Block{
				Name:      name,
				Code:      code,
				StartLine: i,
				EndLine:   end,
				Label:     braceLabel(code),
				Children:  textChildren(code, i),
			})
			i = end
			continue
		}

		// statements sharing a line each get a block spanning that line
		for _, stmt := range scan.SplitUnquoted(line, ';') {
			if scan.IsComment(stmt) {
				break
			}
			name := statementName(stmt)
			if name == "" {
				continue
			}
			out = append(out, Block{
				Name:      name,
				Code:      line,
				StartLine: i,
				EndLine:   i,
				Label:     lineLabel(stmt),
			})
		}
	}
	return FilterDirectives(out)
}

// textChildren extracts the blocks nested in a container's braces, with line
// numbers relative to the text the container came from.
func textChildren(code string, startLine int) []Block {
	inner, offset, ok := interior(code)
	if !ok {
		return nil
	}
	children := extractText(inner)
	rebase(children, startLine+offset)
	return nonEmpty(children)
}

// statementName names a statement by its text up to the label or body: the
// leading identifier for a shape, the whole endpoint chain for a connection.
// Keys with spaces keep all their words, matching the grammar's key range.
func statementName(line string) string {
	if head := statementHead(line); head != "" {
		return head
	}
	return scan.LeadingIdentifier(line)
}

// statementHead is the statement text before its first unquoted ':' or '{'.
// Lines made only of braces and separators have no head.
func statementHead(line string) string {
	head := line
	if i := scan.IndexUnquoted(line, ":{"); i >= 0 {
		head = line[:i]
	}
	head = strings.TrimSpace(head)
	if strings.Trim(head, "{};") == "" {
		return ""
	}
	return head
}
