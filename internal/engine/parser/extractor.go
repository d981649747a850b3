// # internal/engine/parser/extractor.go
package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ImportExtractor collects module specifiers from import declarations and
// re-exports. TypeScript import-equals (`import x = require("y")`) and
// dynamic import() calls are not module declarations and are skipped.
type ImportExtractor struct {
	engine *ExtractorEngine
}

func NewImportExtractor() *ImportExtractor {
	x := &ImportExtractor{}
	x.engine = NewExtractorEngine(map[string]NodeHandler{
		"import_statement": handleImportStatement,
		"export_statement": handleExportStatement,
	})
	return x
}

// Extract appends every edge under root to file.Edges in source order.
func (x *ImportExtractor) Extract(root *sitter.Node, source []byte, file *File) {
	ctx := &ExtractionContext{Source: source, File: file}
	x.engine.Walk(ctx, root)
}

func handleImportStatement(ctx *ExtractionContext, node *sitter.Node) bool {
	source := node.ChildByFieldName("source")
	if source == nil {
		return true
	}
	ctx.File.Edges = append(ctx.File.Edges, ImportEdge{
		SourceFile: ctx.File.Path,
		Specifier:  unquote(ctx.Text(source)),
		Kind:       EdgeImport,
		TypeOnly:   ctx.HasChildKind(node, "type") || ctx.HasChildKind(node, "typeof"),
		Location:   ctx.Location(node),
	})
	return true
}

func handleExportStatement(ctx *ExtractionContext, node *sitter.Node) bool {
	source := node.ChildByFieldName("source")
	if source == nil {
		// Local export; declarations below may still hold ambient imports.
		return false
	}
	kind := EdgeExport
	if ctx.HasChildKind(node, "*") || ctx.HasChildKind(node, "namespace_export") {
		kind = EdgeExportAll
	}
	ctx.File.Edges = append(ctx.File.Edges, ImportEdge{
		SourceFile: ctx.File.Path,
		Specifier:  unquote(ctx.Text(source)),
		Kind:       kind,
		TypeOnly:   ctx.HasChildKind(node, "type"),
		Location:   ctx.Location(node),
	})
	return true
}

func unquote(lit string) string {
	if len(lit) >= 2 {
		first, last := lit[0], lit[len(lit)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			return lit[1 : len(lit)-1]
		}
	}
	return lit
}
