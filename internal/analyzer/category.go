package analyzer

import "regexp"

// Category is the kind of diagram a block most resembles.
type Category string

const (
	CategoryComponent Category = "component"
	CategoryFlow      Category = "flow"
	CategorySequence  Category = "sequence"
	CategoryGrid      Category = "grid"
	CategoryMixed     Category = "mixed"
	CategorySimple    Category = "simple"
)

var (
	sequenceMarker = regexp.MustCompile(`shape\s*:\s*sequence_diagram`)
	gridMarker     = regexp.MustCompile(`grid-(rows|columns)\s*:`)
)

// Categorize classifies a block. The checks run in a fixed order and the
// first match wins; every input maps to exactly one category.
func Categorize(shapeCount, connectionCount int, code string, nestingDepth int) Category {
	switch {
	case sequenceMarker.MatchString(code):
		return CategorySequence
	case gridMarker.MatchString(code):
		return CategoryGrid
	case connectionCount > 0 && connectionCount >= shapeCount:
		return CategoryFlow
	case shapeCount == 0 && connectionCount == 0:
		return CategorySimple
	case shapeCount <= 3 && nestingDepth <= 1 && connectionCount == 0:
		return CategoryComponent
	case shapeCount > 0 && connectionCount > 0:
		return CategoryMixed
	case shapeCount > 0:
		// more than three shapes or deeper nesting, still no connections
		return CategoryComponent
	default:
		return CategorySimple
	}
}
