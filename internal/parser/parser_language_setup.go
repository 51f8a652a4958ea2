package parser

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// setupCSharp registers the C# grammar. Definition emission and call-site
// extraction walk the tree directly (csharp.go) rather than via tree-sitter
// queries: the second pass needs the already-built per-class field-type map,
// which isolated query captures cannot carry.
func (p *TreeSitterParser) setupCSharp() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_csharp.Language())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	p.parsers[".cs"] = parser
	p.languages[".cs"] = language
}

// setupTypeScript registers the TypeScript grammar for .ts and the TSX
// variant for .tsx; both share the walker in typescript.go.
func (p *TreeSitterParser) setupTypeScript() {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	if err := parser.SetLanguage(language); err != nil {
		return
	}
	p.parsers[".ts"] = parser
	p.languages[".ts"] = language

	tsxParser := tree_sitter.NewParser()
	tsxLanguage := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
	if err := tsxParser.SetLanguage(tsxLanguage); err == nil {
		p.parsers[".tsx"] = tsxParser
		p.languages[".tsx"] = tsxLanguage
	}
}
