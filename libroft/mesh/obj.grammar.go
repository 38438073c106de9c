package mesh

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// objFile is a Wavefront OBJ document, one statement per line.
type objFile struct {
	Stmts []*objStmt `parser:"( @@? EOL )*"`
}

type objStmt struct {
	Vertex *objVertex `parser:"  \"v\" @@"`
	Face   *objFace   `parser:"| \"f\" @@"`
	Other  *objOther  `parser:"| @@"`
}

type objVertex struct {
	X     float64   `parser:"@Number"`
	Y     float64   `parser:"@Number"`
	Z     float64   `parser:"@Number"`
	Extra []float64 `parser:"@Number*"` // w or vertex color, ignored
}

type objFace struct {
	Refs []objRef `parser:"@@ @@ @@+"`
}

// objRef is a face corner: v, v/vt, v//vn or v/vt/vn.
type objRef struct {
	Vertex  int      `parser:"@Number"`
	Attribs []string `parser:"( \"/\" @Number? )*"`
}

// objOther is any statement this package does not use (vt, vn, g, o, s, usemtl, mtllib, ...).
type objOther struct {
	Keyword string   `parser:"@Ident"`
	Args    []string `parser:"( @Ident | @Number | @Punct )*"`
}

var sObjLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "comment", Pattern: `#[^\r\n]*`},
	{Name: "EOL", Pattern: `[\r\n]+`},
	{Name: "Number", Pattern: `[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.\-]*`},
	{Name: "whitespace", Pattern: `[ \t]+`},
	{Name: "Punct", Pattern: `[^\s#]`},
})

var sParseOBJ = participle.MustBuild[objFile](
	participle.Lexer(sObjLexer),
	participle.Elide("comment", "whitespace"),
)
