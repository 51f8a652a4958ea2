// Package parser implements the AST parsers of §4.2: one parser per language
// (C#, TypeScript/TSX), each performing a single AST traversal that emits
// definitions and remembers method/constructor/function nodes by local def
// index, followed by a second pass over the remembered nodes that computes
// code stats and extracts call sites using the now-complete field-type map.
//
// Context-free unit: tree-sitter-backed single-pass extractors.
// External deps: github.com/tree-sitter/go-tree-sitter,
// github.com/tree-sitter/tree-sitter-c-sharp, github.com/tree-sitter/tree-sitter-typescript.
package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codesift/codesift/internal/types"
)

// TreeSitterParser owns one tree-sitter Parser per supported file extension.
// A tree_sitter.Parser keeps per-parse state, so a TreeSitterParser is not
// safe for concurrent Parse calls; the build driver creates one
// TreeSitterParser per worker goroutine.
type TreeSitterParser struct {
	parsers   map[string]*tree_sitter.Parser
	languages map[string]*tree_sitter.Language
}

// NewTreeSitterParser builds a parser with C# and TypeScript/TSX wired in.
func NewTreeSitterParser() *TreeSitterParser {
	p := &TreeSitterParser{
		parsers:   make(map[string]*tree_sitter.Parser),
		languages: make(map[string]*tree_sitter.Language),
	}
	p.setupCSharp()
	p.setupTypeScript()
	return p
}

// Supports reports whether ext (including the leading dot, lowercase) has a
// registered parser: either a tree-sitter grammar, or (for plain JS) the
// go-fAST fallback extractor in javascript_gofast.go.
func (p *TreeSitterParser) Supports(ext string) bool {
	if _, ok := p.parsers[ext]; ok {
		return true
	}
	return jsExtensions[ext]
}

// ExtensionContribution is one extension-method contribution from a static
// class (C#) to the global extension-method map (§4.2 "Extension-method
// detection").
type ExtensionContribution struct {
	MethodName string
	ClassName  string
}

// Result is the parser's per-file output, keyed by local def index (position
// within Defs) for CallSites and CodeStats, per the parse(...) contract of
// §4.2.
type Result struct {
	Defs              []types.Definition
	CallSites         map[int][]types.CallSite
	CodeStats         map[int]types.CodeStats
	ExtensionContribs []ExtensionContribution
}

// Parse dispatches to the language-specific walker for ext. fileID is stamped
// onto every emitted Definition.
func (p *TreeSitterParser) Parse(ext string, source []byte, fileID types.FileID) (*Result, error) {
	if jsExtensions[ext] {
		return ParseJS(source, fileID)
	}
	parser := p.parsers[ext]
	if parser == nil {
		return nil, errUnsupportedExt(ext)
	}
	tree := parser.Parse(source, nil)
	if tree == nil || tree.RootNode() == nil {
		return nil, errParseFailed(ext)
	}
	defer tree.Close()
	root := tree.RootNode()

	switch ext {
	case ".cs":
		return parseCSharp(root, source, fileID), nil
	case ".ts", ".tsx":
		return parseTypeScript(root, source, fileID), nil
	default:
		return nil, errUnsupportedExt(ext)
	}
}

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

func errUnsupportedExt(ext string) error { return &parseError{"parser: unsupported extension " + ext} }
func errParseFailed(ext string) error    { return &parseError{"parser: tree-sitter parse failed for " + ext} }

// --- shared node-text / signature helpers used by both language walkers ---

func nodeText(src []byte, n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

func nodeLine1(n *tree_sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

func nodeEndLine1(n *tree_sitter.Node) int {
	return int(n.EndPosition().Row) + 1
}

// collapseWhitespace implements the "whitespace collapsed" rule for
// signatures (§4.2).
func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// signatureUpTo returns the verbatim source from node's start to the first
// child whose kind is one of stopKinds, with whitespace collapsed.
func signatureUpTo(src []byte, n *tree_sitter.Node, stopKinds ...string) string {
	if n == nil {
		return ""
	}
	end := n.EndByte()
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		for _, k := range stopKinds {
			if child.Kind() == k {
				end = child.StartByte()
				return collapseWhitespace(string(src[n.StartByte():end]))
			}
		}
	}
	return collapseWhitespace(string(src[n.StartByte():end]))
}

// stripGenericArgs strips a trailing/embedded "<...>" type-argument list,
// e.g. "Foo<T>" -> "Foo", matching §3's call-site method_name contract.
func stripGenericArgs(s string) string {
	i := strings.IndexByte(s, '<')
	if i < 0 {
		return s
	}
	return s[:i]
}

// stripAttributeArgs normalizes an attribute/decorator to its bare name:
// strip a trailing "(...)" argument list and lowercase, so
// "[Obsolete][Obsolete(\"msg\")]" both normalize to "obsolete" (§8 parser
// boundary test).
func stripAttributeArgs(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// fieldTypeMap resolves identifier -> declared type within a single class
// body, per the field-type resolution table of §4.2.
type fieldTypeMap map[string]string

func (m fieldTypeMap) addIfAbsent(name, typ string) {
	typ = strings.TrimSpace(stripGenericArgs(typ))
	if typ == "" || name == "" {
		return
	}
	if _, exists := m[name]; !exists {
		m[name] = typ
	}
}

// addFieldOrProperty implements rule 1: add name, "_"+name, "m_"+name unless
// the field already starts with that prefix.
func (m fieldTypeMap) addFieldOrProperty(name, typ string) {
	m.addIfAbsent(name, typ)
	if !strings.HasPrefix(name, "_") {
		m.addIfAbsent("_"+name, typ)
	}
	if !strings.HasPrefix(name, "m_") {
		m.addIfAbsent("m_"+name, typ)
	}
}

// addCtorParam implements rule 2: a constructor parameter "T name" becomes a
// DI-inferred field type unless the class already declares a field named
// name, _name, or name with the original casing.
func (m fieldTypeMap) addCtorParam(name, typ string, hasField func(string) bool) {
	if hasField(name) || hasField("_"+name) {
		return
	}
	m.addIfAbsent(name, typ)
	m.addIfAbsent("_"+name, typ)
}

// classInfo accumulates per-class context while walking, used both for
// field-type resolution and for populating Definition.BaseTypes and the
// extension-method map.
type classInfo struct {
	name        string
	baseTypes   []string
	fieldNames  map[string]struct{} // declared field/property names, for rule 2's hasField check
	fieldTypes  fieldTypeMap
	isStatic    bool
}

func newClassInfo(name string) *classInfo {
	return &classInfo{name: name, fieldNames: make(map[string]struct{}), fieldTypes: make(fieldTypeMap)}
}

func (c *classInfo) hasField(name string) bool {
	_, ok := c.fieldNames[name]
	return ok
}
