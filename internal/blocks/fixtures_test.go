package blocks_test

// fixtures are well-formed diagrams shared by the strategy tests.
var fixtures = map[string]string{
	"example": `server {
  shape: rectangle
}

client {
  shape: oval
}

server -> client
`,

	"nested": `cloud: "AWS\nRegion" {
  vpc {
    label: Production VPC
    web -> db: queries
    web: {shape: hexagon}
    db: {
      shape: cylinder
    }
  }
  style.fill: "#eef"
}
users -> cloud.vpc.web: HTTPS
`,

	"sequence": `shape: sequence_diagram
alice -> bob: hello
bob -> alice: "hi back"
`,

	"comments": `# header comment
classes: {
  important: {
    style.stroke: red
  }
}

a.class: important
b: "Box B"

a -- b
c <-> d
e <- f
`,

	"grid": `direction: right
grid {
  grid-columns: 2
  one
  two: 'Second cell'
}
`,

	"braceInComment": `a {
  # note {
  b
}
c
`,

	"semicolons": `a; b; c
d -> e; f: "F"
`,

	"deep": `a {
  b {
    c {
      d -> e
    }
  }
}
`,
}
