package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codesift/codesift/internal/types"
)

var tsNameFields = []string{"name", "property"}
var tsNameKinds = []string{"identifier", "property_identifier", "type_identifier", "private_property_identifier"}

// firstNamed resolves a member's name node defensively: by field first, then
// by scanning children for a plausible identifier kind. tree-sitter-typescript
// has shuffled field names for class members across grammar versions; this
// mirrors the fallback style csharp.go uses for modifiers/fields.
func firstNamed(n *tree_sitter.Node) *tree_sitter.Node {
	if n == nil {
		return nil
	}
	for _, f := range tsNameFields {
		if c := n.ChildByFieldName(f); c != nil {
			return c
		}
	}
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		for _, k := range tsNameKinds {
			if c.Kind() == k {
				return c
			}
		}
	}
	return nil
}

// tsWalkCtx mirrors csharpWalkCtx: per-file state threaded through the single
// recursive walk, plus the class-info map used by the second pass for
// receiver-type resolution.
type tsWalkCtx struct {
	src               []byte
	fileID            types.FileID
	defs              []types.Definition
	methodNodes       map[int]*tree_sitter.Node
	methodClass       map[int]*classInfo
	classesByName     map[string]*classInfo
	extensionContribs []ExtensionContribution
}

func parseTypeScript(root *tree_sitter.Node, src []byte, fileID types.FileID) *Result {
	ctx := &tsWalkCtx{
		src:           src,
		fileID:        fileID,
		methodNodes:   make(map[int]*tree_sitter.Node),
		methodClass:   make(map[int]*classInfo),
		classesByName: make(map[string]*classInfo),
	}

	walkTSNode(ctx, root, nil)

	result := &Result{
		Defs:              ctx.defs,
		CallSites:         make(map[int][]types.CallSite),
		CodeStats:         make(map[int]types.CodeStats),
		ExtensionContribs: ctx.extensionContribs,
	}

	for idx, node := range ctx.methodNodes {
		cls := ctx.methodClass[idx]
		stats, calls := extractTSFunctionBody(ctx, node, cls)
		result.CodeStats[idx] = stats
		if len(calls) > 0 {
			result.CallSites[idx] = calls
		}
	}

	return result
}

var tsTypeDeclKinds = map[string]types.DefinitionKind{
	"class_declaration":          types.KindClass,
	"abstract_class_declaration": types.KindClass,
	"interface_declaration":      types.KindInterface,
}

// tsModifierKeywords are the leaf tokens §4.2 collects as modifiers for TS:
// "export, async, abstract, readonly, private/public/protected, const/let,
// static".
var tsModifierKeywords = map[string]bool{
	"export": true, "async": true, "abstract": true, "readonly": true,
	"private": true, "public": true, "protected": true,
	"const": true, "let": true, "static": true, "declare": true, "override": true,
}

func extractTSModifiers(n *tree_sitter.Node, src []byte) []string {
	var mods []string
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if tsModifierKeywords[c.Kind()] {
			mods = append(mods, c.Kind())
		}
		if c.Kind() == "accessibility_modifier" {
			mods = append(mods, nodeText(src, c))
		}
	}
	return dedupStrings(mods)
}

// extractTSDecorators collects "@Foo" / "@Foo(...)" decorators that are
// direct children of kind "decorator" of a class or member; decorators that
// precede a member as sibling nodes are collected by precedingDecorators.
// Decorators are attributes per §4.2 TS rules; normalized the same way as C#
// attributes (strip args, lowercase).
func extractTSDecorators(n *tree_sitter.Node, src []byte) []string {
	var attrs []string
	for _, d := range childrenByKind(n, "decorator") {
		txt := nodeText(src, d)
		txt = strings.TrimPrefix(txt, "@")
		attrs = append(attrs, stripAttributeArgs(txt))
	}
	return dedupStrings(attrs)
}

// precedingDecorators collects decorator siblings immediately before member
// in its parent's child list (the shape tree-sitter-typescript uses: a
// decorator is its own node preceding the declaration it annotates).
func precedingDecorators(parent *tree_sitter.Node, member *tree_sitter.Node, src []byte) []string {
	var attrs []string
	cc := parent.ChildCount()
	var idx = -1
	for i := uint(0); i < cc; i++ {
		if parent.Child(i) == member {
			idx = int(i)
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for i := idx - 1; i >= 0; i-- {
		c := parent.Child(uint(i))
		if c == nil {
			break
		}
		if c.Kind() != "decorator" {
			break
		}
		txt := strings.TrimPrefix(nodeText(src, c), "@")
		attrs = append(attrs, stripAttributeArgs(txt))
	}
	return dedupStrings(attrs)
}

// extractTSBaseTypes implements "class X extends Y implements I, J" ->
// base_types = [Y, I, J] (extends first).
func extractTSBaseTypes(n *tree_sitter.Node, src []byte) []string {
	var bases []string
	for _, heritage := range childrenByKind(n, "class_heritage") {
		for _, ext := range childrenByKind(heritage, "extends_clause") {
			if v := firstTypeRef(ext, src); v != "" {
				bases = append(bases, v)
			}
		}
		for _, impl := range childrenByKind(heritage, "implements_clause") {
			bases = append(bases, typeRefsOf(impl, src)...)
		}
	}
	// Some grammar versions attach extends_clause/implements_clause directly
	// on the class_declaration rather than under a class_heritage wrapper.
	for _, ext := range childrenByKind(n, "extends_clause") {
		if v := firstTypeRef(ext, src); v != "" {
			bases = append(bases, v)
		}
	}
	for _, impl := range childrenByKind(n, "implements_clause") {
		bases = append(bases, typeRefsOf(impl, src)...)
	}
	return bases
}

func firstTypeRef(n *tree_sitter.Node, src []byte) string {
	refs := typeRefsOf(n, src)
	if len(refs) == 0 {
		return ""
	}
	return refs[0]
}

func typeRefsOf(n *tree_sitter.Node, src []byte) []string {
	var out []string
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "type_identifier", "identifier", "nested_type_identifier":
			out = append(out, nodeText(src, c))
		case "generic_type":
			out = append(out, nodeText(src, c))
		}
	}
	return out
}

// walkTSNode is the single recursive traversal for TypeScript/TSX, mirroring
// walkCSharpNode: emits definitions, remembers function-like nodes, and
// builds each class's field-type map.
func walkTSNode(ctx *tsWalkCtx, n *tree_sitter.Node, enclosing *classInfo) {
	kind := n.Kind()

	if typeKind, ok := tsTypeDeclKinds[kind]; ok {
		nameNode := firstNamed(n)
		name := nodeText(ctx.src, nameNode)
		parent := ""
		if enclosing != nil {
			parent = enclosing.name
		}
		mods := extractTSModifiers(n, ctx.src)
		def := types.Definition{
			FileID:     ctx.fileID,
			Name:       name,
			Kind:       typeKind,
			LineStart:  nodeLine1(n),
			LineEnd:    nodeEndLine1(n),
			Parent:     parent,
			Signature:  signatureUpTo(ctx.src, n, "class_body", "interface_body", "{"),
			Modifiers:  mods,
			Attributes: extractTSDecorators(n, ctx.src),
			BaseTypes:  extractTSBaseTypes(n, ctx.src),
		}
		ctx.defs = append(ctx.defs, def)

		cls := newClassInfo(name)
		cls.baseTypes = def.BaseTypes
		cls.isStatic = false
		ctx.classesByName[name] = cls

		body := n.ChildByFieldName("body")
		if body == nil {
			bodies := childrenByKind(n, "class_body")
			bodies = append(bodies, childrenByKind(n, "interface_body")...)
			if len(bodies) > 0 {
				body = bodies[0]
			}
		}
		if body != nil {
			collectTSFieldsAndProps(ctx, body, cls, typeKind == types.KindInterface)
			walkTSChildren(ctx, body, cls)
		}
		return
	}

	switch kind {
	case "function_declaration", "generator_function_declaration":
		emitTSFunction(ctx, n, enclosing, types.KindFunction)
		return
	case "method_definition":
		emitTSMethod(ctx, n, enclosing)
		return
	case "type_alias_declaration":
		nameNode := firstNamed(n)
		parent := ""
		if enclosing != nil {
			parent = enclosing.name
		}
		ctx.defs = append(ctx.defs, types.Definition{
			FileID: ctx.fileID, Name: nodeText(ctx.src, nameNode), Kind: types.KindTypeAlias,
			LineStart: nodeLine1(n), LineEnd: nodeEndLine1(n), Parent: parent,
			Signature:  signatureUpTo(ctx.src, n, ";"),
			Modifiers:  extractTSModifiers(n, ctx.src),
			Attributes: extractTSDecorators(n, ctx.src),
		})
		return
	case "lexical_declaration", "variable_declaration":
		emitTSVariableDeclarators(ctx, n, enclosing)
		return
	case "enum_declaration":
		nameNode := firstNamed(n)
		name := nodeText(ctx.src, nameNode)
		ctx.defs = append(ctx.defs, types.Definition{
			FileID: ctx.fileID, Name: name, Kind: types.KindEnum,
			LineStart: nodeLine1(n), LineEnd: nodeEndLine1(n),
			Signature:  signatureUpTo(ctx.src, n, "enum_body", "{"),
			Modifiers:  extractTSModifiers(n, ctx.src),
			Attributes: extractTSDecorators(n, ctx.src),
		})
		if body := n.ChildByFieldName("body"); body != nil {
			emitTSEnumMembers(ctx, body, name)
		} else {
			for _, body := range childrenByKind(n, "enum_body") {
				emitTSEnumMembers(ctx, body, name)
			}
		}
		return
	}

	walkTSChildren(ctx, n, enclosing)
}

func emitTSEnumMembers(ctx *tsWalkCtx, body *tree_sitter.Node, parent string) {
	cc := body.ChildCount()
	for i := uint(0); i < cc; i++ {
		m := body.Child(i)
		if m == nil {
			continue
		}
		switch m.Kind() {
		case "property_identifier", "identifier":
			ctx.defs = append(ctx.defs, types.Definition{
				FileID: ctx.fileID, Name: nodeText(ctx.src, m), Kind: types.KindEnumMember,
				LineStart: nodeLine1(m), LineEnd: nodeEndLine1(m), Parent: parent,
			})
		case "enum_assignment":
			nameNode := firstNamed(m)
			ctx.defs = append(ctx.defs, types.Definition{
				FileID: ctx.fileID, Name: nodeText(ctx.src, nameNode), Kind: types.KindEnumMember,
				LineStart: nodeLine1(m), LineEnd: nodeEndLine1(m), Parent: parent,
			})
		}
	}
}

func walkTSChildren(ctx *tsWalkCtx, n *tree_sitter.Node, enclosing *classInfo) {
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := n.Child(i)
		if c != nil {
			walkTSNode(ctx, c, enclosing)
		}
	}
}

// collectTSFieldsAndProps implements the field-type resolution table (§4.2)
// for TS: rule 1 for fields/properties, rule 3's inject(T) detection, and
// emits Field/Property/Method definitions for class and interface bodies
// alike. Interface members are Property when property-shaped, Method when
// function-shaped (§4.2 "An interface body's member signatures...").
func collectTSFieldsAndProps(ctx *tsWalkCtx, body *tree_sitter.Node, cls *classInfo, isInterface bool) {
	cc := body.ChildCount()
	for i := uint(0); i < cc; i++ {
		member := body.Child(i)
		if member == nil {
			continue
		}
		switch member.Kind() {
		case "public_field_definition", "field_definition", "property_declaration":
			emitTSFieldDefinition(ctx, body, member, cls)
		case "property_signature":
			nameNode := firstNamed(member)
			name := nodeText(ctx.src, nameNode)
			typ := tsTypeAnnotationText(ctx.src, member)
			cls.fieldNames[name] = struct{}{}
			cls.fieldTypes.addFieldOrProperty(name, typ)
			ctx.defs = append(ctx.defs, types.Definition{
				FileID: ctx.fileID, Name: name, Kind: types.KindProperty,
				LineStart: nodeLine1(member), LineEnd: nodeEndLine1(member), Parent: cls.name,
				Signature: signatureUpTo(ctx.src, member, ";"),
				Modifiers: extractTSModifiers(member, ctx.src),
			})
		case "method_signature", "construct_signature", "call_signature":
			nameNode := firstNamed(member)
			name := nodeText(ctx.src, nameNode)
			if name == "" {
				name = member.Kind()
			}
			ctx.defs = append(ctx.defs, types.Definition{
				FileID: ctx.fileID, Name: name, Kind: types.KindMethod,
				LineStart: nodeLine1(member), LineEnd: nodeEndLine1(member), Parent: cls.name,
				Signature: signatureUpTo(ctx.src, member, ";"),
				Modifiers: extractTSModifiers(member, ctx.src),
			})
		case "method_definition":
			collectTSCtorParamsIfConstructor(ctx, member, cls)
		}
	}
	_ = isInterface
}

// tsTypeAnnotationText returns the text of a "type_annotation" child (the
// ": Type" suffix) with the leading colon stripped, matching §4.2's
// "Type name" parse for the field-type resolution table.
func tsTypeAnnotationText(src []byte, n *tree_sitter.Node) string {
	ann := n.ChildByFieldName("type")
	if ann == nil {
		for _, a := range childrenByKind(n, "type_annotation") {
			ann = a
			break
		}
	}
	if ann == nil {
		return ""
	}
	txt := nodeText(src, ann)
	return strings.TrimSpace(strings.TrimPrefix(txt, ":"))
}

func emitTSFieldDefinition(ctx *tsWalkCtx, parent, member *tree_sitter.Node, cls *classInfo) {
	nameNode := firstNamed(member)
	name := nodeText(ctx.src, nameNode)
	if name == "" {
		return
	}
	typ := tsTypeAnnotationText(ctx.src, member)

	// Rule 3: inject(T) / inject(T<...>) initializer.
	if typ == "" {
		if val := member.ChildByFieldName("value"); val != nil {
			if injected := injectedType(ctx.src, val); injected != "" {
				typ = injected
			}
		}
	}

	cls.fieldNames[name] = struct{}{}
	cls.fieldTypes.addFieldOrProperty(name, typ)
	attrs := extractTSDecorators(member, ctx.src)
	attrs = append(attrs, precedingDecorators(parent, member, ctx.src)...)
	ctx.defs = append(ctx.defs, types.Definition{
		FileID: ctx.fileID, Name: name, Kind: types.KindField,
		LineStart: nodeLine1(member), LineEnd: nodeEndLine1(member), Parent: cls.name,
		Signature:  collapseWhitespace(name + ": " + typ),
		Modifiers:  extractTSModifiers(member, ctx.src),
		Attributes: dedupStrings(attrs),
	})
}

// injectedType recognizes `inject(T)` / `inject(T<...>)` call expressions,
// returning "T" with generic args stripped, or "" if expr isn't such a call.
func injectedType(src []byte, expr *tree_sitter.Node) string {
	if expr == nil || expr.Kind() != "call_expression" {
		return ""
	}
	fn := expr.ChildByFieldName("function")
	if fn == nil || nodeText(src, fn) != "inject" {
		return ""
	}
	args := expr.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	cc := args.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := args.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "identifier", "type_identifier", "member_expression", "generic_type":
			return stripGenericArgs(nodeText(src, c))
		}
	}
	return ""
}

func collectTSCtorParamsIfConstructor(ctx *tsWalkCtx, ctor *tree_sitter.Node, cls *classInfo) {
	nameNode := firstNamed(ctor)
	if nodeText(ctx.src, nameNode) != "constructor" {
		return
	}
	params := ctor.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for _, p := range childrenByKind(params, "required_parameter") {
		addTSCtorParam(ctx, p, cls)
	}
	for _, p := range childrenByKind(params, "optional_parameter") {
		addTSCtorParam(ctx, p, cls)
	}
}

func addTSCtorParam(ctx *tsWalkCtx, p *tree_sitter.Node, cls *classInfo) {
	nameNode := firstNamed(p)
	name := nodeText(ctx.src, nameNode)
	typ := tsTypeAnnotationText(ctx.src, p)
	if name == "" || typ == "" {
		return
	}
	cls.fieldTypes.addCtorParam(name, typ, cls.hasField)
}

// emitTSVariableDeclarators handles top-level/nested "const x = ..." style
// declarations: an arrow-function/function-expression initializer becomes a
// Function definition (remembered for the second pass), anything else
// becomes a Variable definition. "const"/"let" are collected as modifiers
// per §4.2.
func emitTSVariableDeclarators(ctx *tsWalkCtx, n *tree_sitter.Node, enclosing *classInfo) {
	mods := extractTSModifiers(n, ctx.src)
	kw := n.Child(0)
	if kw != nil && (kw.Kind() == "const" || kw.Kind() == "let" || kw.Kind() == "var") {
		mods = append(mods, kw.Kind())
	}
	mods = dedupStrings(mods)
	parent := ""
	if enclosing != nil {
		parent = enclosing.name
	}
	for _, decl := range childrenByKind(n, "variable_declarator") {
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = firstNamed(decl)
		}
		name := nodeText(ctx.src, nameNode)
		if name == "" {
			continue
		}
		val := decl.ChildByFieldName("value")
		if val != nil && (val.Kind() == "arrow_function" || val.Kind() == "function_expression" || val.Kind() == "generator_function") {
			def := types.Definition{
				FileID: ctx.fileID, Name: name, Kind: types.KindFunction,
				LineStart: nodeLine1(n), LineEnd: nodeEndLine1(n), Parent: parent,
				Signature: signatureUpTo(ctx.src, val, "statement_block", "=>"),
				Modifiers: mods,
			}
			ctx.defs = append(ctx.defs, def)
			idx := len(ctx.defs) - 1
			ctx.methodNodes[idx] = val
			ctx.methodClass[idx] = enclosing
			continue
		}
		ctx.defs = append(ctx.defs, types.Definition{
			FileID: ctx.fileID, Name: name, Kind: types.KindVariable,
			LineStart: nodeLine1(n), LineEnd: nodeEndLine1(n), Parent: parent,
			Modifiers: mods,
		})
	}
}

func emitTSFunction(ctx *tsWalkCtx, n *tree_sitter.Node, enclosing *classInfo, kind types.DefinitionKind) {
	nameNode := firstNamed(n)
	name := nodeText(ctx.src, nameNode)
	parent := ""
	if enclosing != nil {
		parent = enclosing.name
	}
	def := types.Definition{
		FileID: ctx.fileID, Name: name, Kind: kind,
		LineStart: nodeLine1(n), LineEnd: nodeEndLine1(n), Parent: parent,
		Signature:  signatureUpTo(ctx.src, n, "statement_block", "=>", ";"),
		Modifiers:  extractTSModifiers(n, ctx.src),
		Attributes: extractTSDecorators(n, ctx.src),
	}
	ctx.defs = append(ctx.defs, def)
	idx := len(ctx.defs) - 1
	ctx.methodNodes[idx] = n
	ctx.methodClass[idx] = enclosing
}

// emitTSMethod emits a class method_definition member; the "constructor"
// member becomes a Constructor definition. Its parameters are DI-mapped
// earlier, by collectTSFieldsAndProps, not here.
func emitTSMethod(ctx *tsWalkCtx, n *tree_sitter.Node, enclosing *classInfo) {
	nameNode := firstNamed(n)
	name := nodeText(ctx.src, nameNode)
	kind := types.KindMethod
	if name == "constructor" {
		kind = types.KindConstructor
	}
	parent := ""
	if enclosing != nil {
		parent = enclosing.name
	}
	def := types.Definition{
		FileID: ctx.fileID, Name: name, Kind: kind,
		LineStart: nodeLine1(n), LineEnd: nodeEndLine1(n), Parent: parent,
		Signature:  signatureUpTo(ctx.src, n, "statement_block", "=>", ";"),
		Modifiers:  extractTSModifiers(n, ctx.src),
		Attributes: extractTSDecorators(n, ctx.src),
	}
	ctx.defs = append(ctx.defs, def)
	idx := len(ctx.defs) - 1
	ctx.methodNodes[idx] = n
	ctx.methodClass[idx] = enclosing
}
