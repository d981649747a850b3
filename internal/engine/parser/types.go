// # internal/engine/parser/types.go
package parser

import (
	"time"
)

// File is the parse result for one source file.
type File struct {
	Path     string
	Language string
	Edges    []ImportEdge
	ParsedAt time.Time
	// HasSyntaxErrors is set when tree-sitter recovered from malformed input.
	HasSyntaxErrors bool
}

// EdgeKind names the statement form an edge came from.
type EdgeKind string

const (
	EdgeImport    EdgeKind = "import"
	EdgeExport    EdgeKind = "export"
	EdgeExportAll EdgeKind = "export_all"
)

// ImportEdge is one import or re-export statement that names a module
// specifier.
type ImportEdge struct {
	SourceFile string
	Specifier  string
	Kind       EdgeKind
	TypeOnly   bool
	Location   Location
}

type Location struct {
	File   string
	Line   int
	Column int
}
