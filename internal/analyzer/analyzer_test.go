package analyzer_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veschin/d2-web-extension-sub000/internal/analyzer"
	"github.com/veschin/d2-web-extension-sub000/internal/blocks"
	"github.com/veschin/d2-web-extension-sub000/internal/grammar"
)

const example = `server {
  shape: rectangle
}

client {
  shape: oval
}

server -> client
`

func strategies() map[string]grammar.Backend {
	return map[string]grammar.Backend{
		"text": nil,
		"d2":   grammar.NewD2(),
	}
}

func TestExampleServerMetadata(t *testing.T) {
	for name, backend := range strategies() {
		t.Run(name, func(t *testing.T) {
			top := blocks.Extract(example, backend)
			require.Len(t, top, 3)

			md := analyzer.Analyze(top[0].Code, backend)
			assert.Equal(t, 1, md.ShapeCount)
			assert.Equal(t, 0, md.ConnectionCount)
			assert.Equal(t, 1, md.NestingDepth)
			assert.Equal(t, analyzer.CategoryComponent, md.Category)
			assert.Equal(t, []string{"server"}, md.TopIdentifiers)
			assert.False(t, md.HasStyles)
		})
	}
}

func TestWholeDocument(t *testing.T) {
	for name, backend := range strategies() {
		t.Run(name, func(t *testing.T) {
			md := analyzer.Analyze(example, backend)
			assert.Equal(t, 2, md.ShapeCount)
			assert.Equal(t, 1, md.ConnectionCount)
			assert.Equal(t, analyzer.CategoryMixed, md.Category)
			assert.Equal(t, []string{"server", "client"}, md.TopIdentifiers)
		})
	}
}

func TestTopIdentifiersBound(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 7; i++ {
		fmt.Fprintf(&b, "box%d {\n  shape: square\n}\n", i)
	}

	for name, backend := range strategies() {
		t.Run(name, func(t *testing.T) {
			md := analyzer.Analyze(b.String(), backend)
			assert.Equal(t, 7, md.ShapeCount)
			assert.Equal(t, []string{"box0", "box1", "box2", "box3", "box4"}, md.TopIdentifiers)
			assert.Equal(t, analyzer.CategoryComponent, md.Category)
		})
	}
}

func TestDirectivesAreNotShapes(t *testing.T) {
	code := strings.Join([]string{
		"direction: right",
		"style.fill: red",
		"grid-columns: 2",
		"classes: {",
		"  hot: {style.stroke: red}",
		"}",
		"a.class: hot",
	}, "\n")

	for name, backend := range strategies() {
		t.Run(name, func(t *testing.T) {
			md := analyzer.Analyze(code, backend)
			assert.Equal(t, []string{"a.class"}, md.TopIdentifiers)
			assert.True(t, md.HasStyles)
			assert.True(t, md.HasClasses)
			assert.Equal(t, analyzer.CategoryGrid, md.Category)
		})
	}
}

func TestNestedContainers(t *testing.T) {
	code := `cloud {
  vpc {
    web
    db
    web -> db
  }
  cdn
}`
	for name, backend := range strategies() {
		t.Run(name, func(t *testing.T) {
			md := analyzer.Analyze(code, backend)
			assert.Equal(t, []string{"cloud", "vpc"}, md.TopIdentifiers)
			assert.Equal(t, 1, md.ConnectionCount)
			assert.Equal(t, 2, md.NestingDepth)
			assert.Equal(t, analyzer.CategoryMixed, md.Category)
			assert.False(t, md.HasStyles)
		})
	}
}

func TestSequenceDiagram(t *testing.T) {
	code := "flow: {\n  shape: sequence_diagram\n  a -> b\n  b -> a\n}"
	md := analyzer.Analyze(code, nil)
	assert.Equal(t, analyzer.CategorySequence, md.Category)
	assert.Equal(t, 2, md.ConnectionCount)
}

func TestEmptyCode(t *testing.T) {
	for name, backend := range strategies() {
		t.Run(name, func(t *testing.T) {
			md := analyzer.Analyze("", backend)
			assert.Equal(t, analyzer.CategorySimple, md.Category)
			assert.Zero(t, md.ShapeCount)
			assert.Zero(t, md.ConnectionCount)
			assert.NotNil(t, md.TopIdentifiers)
			assert.Empty(t, md.TopIdentifiers)
		})
	}
}

type brokenBackend struct{}

func (brokenBackend) Parse(string) (*grammar.Tree, error) {
	panic("backend crashed")
}

func TestAnalyzeFallback(t *testing.T) {
	want := analyzer.Analyze(example, nil)
	got := analyzer.Analyze(example, brokenBackend{})
	assert.Equal(t, want, got)

	_, err := analyzer.Structural{Backend: brokenBackend{}}.Analyze(example)
	assert.Error(t, err)
}

func TestStrategiesAgree(t *testing.T) {
	sources := []string{
		example,
		"a -> b -> c: chain\nb: {shape: circle}\n",
		"outer: \"Label {not a brace}\" {\n  inner: {\n    x\n  }\n}\n",
		"x.style.opacity: 0.4\ny\n",
	}
	for i, source := range sources {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			text, err := analyzer.Text{}.Analyze(source)
			require.NoError(t, err)
			structural, err := analyzer.Structural{Backend: grammar.NewD2()}.Analyze(source)
			require.NoError(t, err)
			assert.Equal(t, text, structural)
		})
	}
}
