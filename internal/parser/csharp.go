package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codesift/codesift/internal/types"
)

var csharpTypeDeclKinds = map[string]types.DefinitionKind{
	"class_declaration":     types.KindClass,
	"interface_declaration": types.KindInterface,
	"struct_declaration":    types.KindStruct,
	"record_declaration":    types.KindRecord,
	"enum_declaration":      types.KindEnum,
}

// csharpWalkCtx carries the per-file state threaded through the single
// recursive walk: the definitions emitted so far, the method/constructor
// AST nodes remembered by local def index for the second pass, and the
// per-class field-type maps keyed by class name (classes are not nested
// beyond one level typically, but the map is keyed by name per §3's
// "parent holds the enclosing class name... single-level").
type csharpWalkCtx struct {
	src               []byte
	fileID            types.FileID
	defs              []types.Definition
	methodNodes       map[int]*tree_sitter.Node // local def idx -> body-bearing node
	methodClass       map[int]*classInfo
	classesByName     map[string]*classInfo
	extensionContribs []ExtensionContribution
}

func parseCSharp(root *tree_sitter.Node, src []byte, fileID types.FileID) *Result {
	ctx := &csharpWalkCtx{
		src:           src,
		fileID:        fileID,
		methodNodes:   make(map[int]*tree_sitter.Node),
		methodClass:   make(map[int]*classInfo),
		classesByName: make(map[string]*classInfo),
	}

	walkCSharpNode(ctx, root, nil)

	result := &Result{
		Defs:              ctx.defs,
		CallSites:         make(map[int][]types.CallSite),
		CodeStats:         make(map[int]types.CodeStats),
		ExtensionContribs: ctx.extensionContribs,
	}

	// Second pass: now that every class's field-type map is complete, walk
	// each remembered method/constructor/function body once to extract call
	// sites and compute code stats (§4.2 "second pass... call sites from the
	// remembered nodes using the fully-built per-file symbol information").
	for idx, node := range ctx.methodNodes {
		cls := ctx.methodClass[idx]
		stats, calls := extractCSharpMethodBody(ctx, node, cls)
		result.CodeStats[idx] = stats
		if len(calls) > 0 {
			result.CallSites[idx] = calls
		}
	}

	return result
}

func childrenByKind(n *tree_sitter.Node, kind string) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := n.Child(i)
		if c != nil && c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

func extractCSharpModifiers(n *tree_sitter.Node) []string {
	var mods []string
	for _, m := range childrenByKind(n, "modifier") {
		mods = append(mods, m.Kind())
	}
	return dedupStrings(mods)
}

// extractCSharpModifierText collects the raw modifier keyword tokens
// (public, static, readonly, ...) that tree-sitter-c-sharp exposes as
// direct terminal children rather than a wrapping "modifier" node in some
// grammar versions; we scan for both shapes defensively.
func extractCSharpModifierText(n *tree_sitter.Node, src []byte) []string {
	var mods []string
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "modifier":
			mods = append(mods, nodeText(src, c))
		case "public", "private", "protected", "internal", "static", "readonly",
			"abstract", "virtual", "override", "sealed", "partial", "async", "const":
			mods = append(mods, c.Kind())
		}
	}
	return dedupStrings(mods)
}

func extractCSharpAttributes(n *tree_sitter.Node, src []byte) []string {
	var attrs []string
	for _, list := range childrenByKind(n, "attribute_list") {
		for _, attr := range childrenByKind(list, "attribute") {
			nameNode := attr.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			attrs = append(attrs, stripAttributeArgs(nodeText(src, nameNode)))
		}
	}
	return dedupStrings(attrs)
}

func extractCSharpBaseTypes(n *tree_sitter.Node, src []byte) []string {
	var bases []string
	for _, baseList := range childrenByKind(n, "base_list") {
		cc := baseList.ChildCount()
		for i := uint(0); i < cc; i++ {
			c := baseList.Child(i)
			if c == nil {
				continue
			}
			switch c.Kind() {
			case "identifier", "qualified_name", "generic_name":
				bases = append(bases, nodeText(src, c))
			}
		}
	}
	return bases
}

func isStaticModifiers(mods []string) bool {
	for _, m := range mods {
		if m == "static" {
			return true
		}
	}
	return false
}

// walkCSharpNode is the single recursive traversal: it emits definitions,
// remembers method/constructor AST nodes, and builds each class's
// field-type map as it discovers fields/properties/constructors.
func walkCSharpNode(ctx *csharpWalkCtx, n *tree_sitter.Node, enclosing *classInfo) {
	kind := n.Kind()

	if typeKind, ok := csharpTypeDeclKinds[kind]; ok {
		nameNode := n.ChildByFieldName("name")
		name := nodeText(ctx.src, nameNode)
		parent := ""
		if enclosing != nil {
			parent = enclosing.name
		}
		mods := extractCSharpModifierText(n, ctx.src)
		def := types.Definition{
			FileID:     ctx.fileID,
			Name:       name,
			Kind:       typeKind,
			LineStart:  nodeLine1(n),
			LineEnd:    nodeEndLine1(n),
			Parent:     parent,
			Signature:  signatureUpTo(ctx.src, n, "declaration_list", "{"),
			Modifiers:  mods,
			Attributes: extractCSharpAttributes(n, ctx.src),
			BaseTypes:  extractCSharpBaseTypes(n, ctx.src),
		}
		ctx.defs = append(ctx.defs, def)

		cls := newClassInfo(name)
		cls.baseTypes = def.BaseTypes
		cls.isStatic = isStaticModifiers(mods)
		ctx.classesByName[name] = cls

		// First collect fields/properties/constructors so rule 2 (ctor param
		// DI inference) can see already-declared field names regardless of
		// source order, then recurse into nested members including the
		// bodies we need for call-site extraction.
		body := n.ChildByFieldName("body")
		if body != nil {
			collectCSharpFieldsAndProps(ctx, body, cls)
		}

		if body != nil {
			walkChildren(ctx, body, cls)
		}
		return
	}

	switch kind {
	case "method_declaration":
		emitCSharpMethod(ctx, n, enclosing, types.KindMethod)
		return
	case "constructor_declaration":
		emitCSharpMethod(ctx, n, enclosing, types.KindConstructor)
		return
	case "delegate_declaration":
		nameNode := n.ChildByFieldName("name")
		parent := ""
		if enclosing != nil {
			parent = enclosing.name
		}
		ctx.defs = append(ctx.defs, types.Definition{
			FileID: ctx.fileID, Name: nodeText(ctx.src, nameNode), Kind: types.KindDelegate,
			LineStart: nodeLine1(n), LineEnd: nodeEndLine1(n), Parent: parent,
			Signature: signatureUpTo(ctx.src, n, ";"), Modifiers: extractCSharpModifierText(n, ctx.src),
			Attributes: extractCSharpAttributes(n, ctx.src),
		})
		return
	case "event_field_declaration":
		emitCSharpMultiDeclarator(ctx, n, enclosing, types.KindEvent)
		return
	case "enum_member_declaration":
		nameNode := n.ChildByFieldName("name")
		parent := ""
		if enclosing != nil {
			parent = enclosing.name
		}
		ctx.defs = append(ctx.defs, types.Definition{
			FileID: ctx.fileID, Name: nodeText(ctx.src, nameNode), Kind: types.KindEnumMember,
			LineStart: nodeLine1(n), LineEnd: nodeEndLine1(n), Parent: parent,
			Attributes: extractCSharpAttributes(n, ctx.src),
		})
		return
	}

	walkChildren(ctx, n, enclosing)
}

func walkChildren(ctx *csharpWalkCtx, n *tree_sitter.Node, enclosing *classInfo) {
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := n.Child(i)
		if c != nil {
			walkCSharpNode(ctx, c, enclosing)
		}
	}
}

// collectCSharpFieldsAndProps implements field-type resolution rule 1 and
// emits Field/Property definitions, then applies rule 2 to constructor
// parameters once every field and property name of the class body is known,
// before the walk recurses for call-site purposes.
func collectCSharpFieldsAndProps(ctx *csharpWalkCtx, body *tree_sitter.Node, cls *classInfo) {
	cc := body.ChildCount()
	for i := uint(0); i < cc; i++ {
		member := body.Child(i)
		if member == nil {
			continue
		}
		switch member.Kind() {
		case "field_declaration":
			emitCSharpFieldDeclaration(ctx, member, cls)
		case "property_declaration":
			nameNode := member.ChildByFieldName("name")
			typeNode := member.ChildByFieldName("type")
			name := nodeText(ctx.src, nameNode)
			typ := nodeText(ctx.src, typeNode)
			cls.fieldNames[name] = struct{}{}
			cls.fieldTypes.addFieldOrProperty(name, typ)
			ctx.defs = append(ctx.defs, types.Definition{
				FileID: ctx.fileID, Name: name, Kind: types.KindProperty,
				LineStart: nodeLine1(member), LineEnd: nodeEndLine1(member), Parent: cls.name,
				Signature:  signatureUpTo(ctx.src, member, "accessor_list", "=>", ";"),
				Modifiers:  extractCSharpModifierText(member, ctx.src),
				Attributes: extractCSharpAttributes(member, ctx.src),
			})
		}
	}
	for _, ctor := range childrenByKind(body, "constructor_declaration") {
		collectCSharpCtorParams(ctx, ctor, cls)
	}
}

func emitCSharpFieldDeclaration(ctx *csharpWalkCtx, member *tree_sitter.Node, cls *classInfo) {
	varDecl := member.ChildByFieldName("")
	// field_declaration wraps a variable_declaration child; find it directly.
	for _, vd := range childrenByKind(member, "variable_declaration") {
		varDecl = vd
		break
	}
	if varDecl == nil {
		return
	}
	typeNode := varDecl.ChildByFieldName("type")
	typ := nodeText(ctx.src, typeNode)
	mods := extractCSharpModifierText(member, ctx.src)
	attrs := extractCSharpAttributes(member, ctx.src)

	for _, decl := range childrenByKind(varDecl, "variable_declarator") {
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil {
			cc := decl.ChildCount()
			if cc > 0 {
				nameNode = decl.Child(0)
			}
		}
		name := nodeText(ctx.src, nameNode)
		if name == "" {
			continue
		}
		cls.fieldNames[name] = struct{}{}
		cls.fieldTypes.addFieldOrProperty(name, typ)
		ctx.defs = append(ctx.defs, types.Definition{
			FileID: ctx.fileID, Name: name, Kind: types.KindField,
			LineStart: nodeLine1(member), LineEnd: nodeEndLine1(member), Parent: cls.name,
			Signature: collapseWhitespace(typ + " " + name), Modifiers: mods, Attributes: attrs,
		})
	}
}

func collectCSharpCtorParams(ctx *csharpWalkCtx, ctor *tree_sitter.Node, cls *classInfo) {
	params := ctor.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for _, p := range childrenByKind(params, "parameter") {
		typeNode := p.ChildByFieldName("type")
		nameNode := p.ChildByFieldName("name")
		name := nodeText(ctx.src, nameNode)
		typ := nodeText(ctx.src, typeNode)
		if name == "" || typ == "" {
			continue
		}
		cls.fieldTypes.addCtorParam(name, typ, cls.hasField)
	}
}

func emitCSharpMethod(ctx *csharpWalkCtx, n *tree_sitter.Node, enclosing *classInfo, kind types.DefinitionKind) {
	nameNode := n.ChildByFieldName("name")
	name := nodeText(ctx.src, nameNode)
	parent := ""
	if enclosing != nil {
		parent = enclosing.name
	}
	paramCount := 0
	if params := n.ChildByFieldName("parameters"); params != nil {
		paramCount = len(childrenByKind(params, "parameter"))
	}

	def := types.Definition{
		FileID: ctx.fileID, Name: name, Kind: kind,
		LineStart: nodeLine1(n), LineEnd: nodeEndLine1(n), Parent: parent,
		Signature:  signatureUpTo(ctx.src, n, "block", "=>", ";"),
		Modifiers:  extractCSharpModifierText(n, ctx.src),
		Attributes: extractCSharpAttributes(n, ctx.src),
	}
	ctx.defs = append(ctx.defs, def)
	idx := len(ctx.defs) - 1
	ctx.methodNodes[idx] = n
	ctx.methodClass[idx] = enclosing

	// Extension-method detection (§4.2): a method in a static class whose
	// first parameter begins with "this " contributes to the global map.
	if enclosing != nil && enclosing.isStatic && kind == types.KindMethod {
		if params := n.ChildByFieldName("parameters"); params != nil {
			ps := childrenByKind(params, "parameter")
			if len(ps) > 0 && strings.HasPrefix(strings.TrimSpace(nodeText(ctx.src, ps[0])), "this ") {
				ctx.extensionContribs = append(ctx.extensionContribs, ExtensionContribution{
					MethodName: name, ClassName: enclosing.name,
				})
			}
		}
	}
	_ = paramCount // captured in CodeStats during the second pass, not here
}

func emitCSharpMultiDeclarator(ctx *csharpWalkCtx, n *tree_sitter.Node, enclosing *classInfo, kind types.DefinitionKind) {
	parent := ""
	if enclosing != nil {
		parent = enclosing.name
	}
	mods := extractCSharpModifierText(n, ctx.src)
	attrs := extractCSharpAttributes(n, ctx.src)
	for _, vd := range childrenByKind(n, "variable_declaration") {
		for _, decl := range childrenByKind(vd, "variable_declarator") {
			nameNode := decl.ChildByFieldName("name")
			name := nodeText(ctx.src, nameNode)
			if name == "" {
				continue
			}
			ctx.defs = append(ctx.defs, types.Definition{
				FileID: ctx.fileID, Name: name, Kind: kind,
				LineStart: nodeLine1(n), LineEnd: nodeEndLine1(n), Parent: parent,
				Modifiers: mods, Attributes: attrs,
			})
		}
	}
}
