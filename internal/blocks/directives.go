package blocks

import "strings"

// directiveNames are keywords that configure layout or appearance instead of
// naming a shape. They must stay in step with the grammar's reserved keys.
var directiveNames = []string{
	"direction", "shape", "style", "label", "icon", "classes", "class",
	"constraint", "grid-columns", "grid-rows", "grid-gap", "vertical-gap",
	"horizontal-gap", "near", "tooltip", "link", "width", "height", "top",
	"left", "vars", "layers", "scenarios", "steps", "source-arrowhead",
	"target-arrowhead", "label-position", "icon-position",

	// style properties
	"opacity", "fill", "fill-pattern", "stroke", "stroke-width", "stroke-dash",
	"border-radius", "shadow", "3d", "multiple", "double-border", "font",
	"font-size", "font-color", "animated", "bold", "italic", "underline",
	"text-transform",
}

var directives = func() map[string]struct{} {
	m := make(map[string]struct{}, len(directiveNames))
	for _, name := range directiveNames {
		m[name] = struct{}{}
	}
	return m
}()

// IsDirective reports whether name is a directive keyword, either exactly or
// as the first segment of a dotted path such as "style.fill".
func IsDirective(name string) bool {
	name = strings.TrimSpace(name)
	if _, ok := directives[name]; ok {
		return true
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		_, ok := directives[name[:i]]
		return ok
	}
	return false
}

// FilterDirectives drops every block named by a directive.
func FilterDirectives(blocks []Block) []Block {
	out := blocks[:0:0]
	for _, b := range blocks {
		if IsDirective(b.Name) {
			continue
		}
		out = append(out, b)
	}
	return out
}
