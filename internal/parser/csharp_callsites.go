package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codesift/codesift/internal/types"
)

// extractCSharpMethodBody is the second-pass walk over one remembered
// method/constructor node: it computes CodeStats (§4.2 "Code stats
// semantics") and extracts CallSites (§4.2 "Call-site extraction") in one
// traversal of the body, using cls's already-complete field-type map.
func extractCSharpMethodBody(ctx *csharpWalkCtx, n *tree_sitter.Node, cls *classInfo) (types.CodeStats, []types.CallSite) {
	w := &csharpBodyWalker{ctx: ctx, cls: cls, stats: types.CodeStats{CyclomaticComplexity: 1}}
	if params := n.ChildByFieldName("parameters"); params != nil {
		w.stats.ParamCount = len(childrenByKind(params, "parameter"))
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		// Expression-bodied member: => expr ;
		body = lastChildOfKind(n, "arrow_expression_clause")
	}
	if body != nil {
		w.walk(body, 0, false)
	}
	calls := dedupCallSites(w.calls)
	w.stats.CallCount = len(calls)
	return w.stats, calls
}

func lastChildOfKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	list := childrenByKind(n, kind)
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

type csharpBodyWalker struct {
	ctx   *csharpWalkCtx
	cls   *classInfo
	stats types.CodeStats
	calls []types.CallSite

	// lastLogicalOp tracks the most recent &&/|| operator kind seen in the
	// current binary-expression run, so a run of the same operator counts
	// once per *new* kind in the sequence (§4.2 cognitive rule).
	lastLogicalOp string
}

// walk traverses node at the given cognitive nesting depth. inElseIf marks
// that this node is the flattened "else if" continuation of a parent
// if_statement, which gets a flat +1 with no nesting surcharge (§4.2).
func (w *csharpBodyWalker) walk(n *tree_sitter.Node, depth int, inElseIf bool) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "if_statement":
		w.handleIf(n, depth, inElseIf)
		return
	case "for_statement", "while_statement", "do_statement", "foreach_statement":
		w.stats.CyclomaticComplexity++
		w.stats.CognitiveComplexity += 1 + depth
		w.bumpNesting(depth + 1)
		w.walkChildren(n, depth+1)
		return
	case "catch_clause":
		w.stats.CyclomaticComplexity++
		w.stats.CognitiveComplexity += 1 + depth
		w.bumpNesting(depth + 1)
		w.walkChildren(n, depth+1)
		return
	case "conditional_expression": // ternary
		w.stats.CyclomaticComplexity++
		w.stats.CognitiveComplexity += 1 + depth
		w.walkChildren(n, depth+1)
		return
	case "switch_statement", "switch_expression":
		w.stats.CognitiveComplexity += 1 + depth
		w.handleSwitch(n, depth)
		return
	case "binary_expression":
		w.handleBinary(n, depth)
		return
	case "return_statement":
		w.stats.ReturnCount++
		w.walkChildren(n, depth)
		return
	case "throw_statement", "throw_expression":
		w.stats.ReturnCount++
		w.walkChildren(n, depth)
		return
	case "lambda_expression", "anonymous_method_expression", "local_function_statement":
		w.stats.LambdaCount++
		// Lambda bodies don't count toward cyclomatic for the lambda literal
		// itself, but do increase nesting depth for subsequent statements
		// inside them (§4.2).
		w.walkChildren(n, depth+1)
		return
	case "invocation_expression":
		w.handleInvocation(n)
		// Recurse into the argument list only, never the function/receiver
		// subtree: a chained call (a.Where(..).OrderBy(..).ToList()) emits
		// one call site for the outermost link, while Foo(Bar()) still
		// yields both.
		args := n.ChildByFieldName("arguments")
		if args == nil {
			args = lastChildOfKind(n, "argument_list")
		}
		if args != nil {
			w.walkChildren(args, depth)
		}
		return
	case "object_creation_expression":
		w.handleObjectCreation(n)
		w.walkChildren(n, depth)
		return
	}
	w.walkChildren(n, depth)
}

func (w *csharpBodyWalker) walkChildren(n *tree_sitter.Node, depth int) {
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := n.Child(i)
		if c != nil {
			w.walk(c, depth, false)
		}
	}
}

func (w *csharpBodyWalker) bumpNesting(d int) {
	if d > w.stats.MaxNestingDepth {
		w.stats.MaxNestingDepth = d
	}
}

// handleIf implements the flat else-if chain rule: the condition always adds
// cyclomatic+1; the cognitive increment is nesting-weighted for a genuine
// "if", but a flat +1 (no nesting surcharge) when this if is itself the
// "else if" continuation of a parent. A standalone "else" (no following if)
// adds a flat +1 when the grammar emits an explicit else_clause.
func (w *csharpBodyWalker) handleIf(n *tree_sitter.Node, depth int, inElseIf bool) {
	w.stats.CyclomaticComplexity++
	if inElseIf {
		w.stats.CognitiveComplexity++
	} else {
		w.stats.CognitiveComplexity += 1 + depth
	}

	if cond := n.ChildByFieldName("condition"); cond != nil {
		w.walk(cond, depth+1, false)
	}
	w.bumpNesting(depth + 1)
	if cons := n.ChildByFieldName("consequence"); cons != nil {
		w.walk(cons, depth+1, false)
	}

	alt := n.ChildByFieldName("alternative")
	if alt == nil {
		return
	}
	// alt is typically an else_clause wrapping either another if_statement
	// (else if) or a block (plain else).
	inner := alt
	if alt.Kind() == "else_clause" {
		if c := firstNonTrivialChild(alt); c != nil {
			inner = c
		}
	}
	if inner != nil && inner.Kind() == "if_statement" {
		w.walk(inner, depth, true)
		return
	}
	w.stats.CognitiveComplexity++
	if inner != nil {
		w.walk(inner, depth+1, false)
	}
}

func firstNonTrivialChild(n *tree_sitter.Node) *tree_sitter.Node {
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := n.Child(i)
		if c != nil && c.Kind() != "else" {
			return c
		}
	}
	return nil
}

func (w *csharpBodyWalker) handleSwitch(n *tree_sitter.Node, depth int) {
	for _, section := range childrenByKind(n, "switch_section") {
		labels := childrenByKind(section, "switch_label")
		w.stats.CyclomaticComplexity += max1(len(labels))
		w.walkChildren(section, depth+1)
	}
	for _, arm := range childrenByKind(n, "switch_expression_arm") {
		w.stats.CyclomaticComplexity++
		w.walkChildren(arm, depth+1)
	}
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// handleBinary implements the mixed-&&/|| sequence-break rule: walking left
// to right, a run of the same operator counts once; a new operator kind
// starts a new increment.
func (w *csharpBodyWalker) handleBinary(n *tree_sitter.Node, depth int) {
	op := binaryOperatorText(w.ctx.src, n)
	if op == "&&" || op == "||" {
		w.stats.CyclomaticComplexity++
		if w.lastLogicalOp != op {
			w.stats.CognitiveComplexity++
			w.lastLogicalOp = op
		}
	} else {
		w.lastLogicalOp = ""
	}
	w.walkChildren(n, depth)
}

func binaryOperatorText(src []byte, n *tree_sitter.Node) string {
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		t := nodeText(src, c)
		if t == "&&" || t == "||" {
			return t
		}
	}
	return ""
}

// --- call site extraction ---

func (w *csharpBodyWalker) handleInvocation(n *tree_sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	methodName, receiver, isGeneric := w.resolveInvocationTarget(fn)
	if methodName == "" {
		return
	}
	w.calls = append(w.calls, types.CallSite{
		MethodName:        stripGenericArgs(methodName),
		ReceiverType:      receiver,
		Line:              nodeLine1(n),
		ReceiverIsGeneric: isGeneric,
	})
}

func (w *csharpBodyWalker) handleObjectCreation(n *tree_sitter.Node) {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	raw := nodeText(w.ctx.src, typeNode)
	isGeneric := strings.Contains(raw, "<")
	name := stripGenericArgs(raw)
	w.calls = append(w.calls, types.CallSite{
		MethodName: name, ReceiverType: name, Line: nodeLine1(n), ReceiverIsGeneric: isGeneric,
	})
}

// resolveInvocationTarget implements §4.2's receiver-resolution rules for the
// callee expression of an invocation_expression.
func (w *csharpBodyWalker) resolveInvocationTarget(fn *tree_sitter.Node) (methodName, receiver string, isGeneric bool) {
	switch fn.Kind() {
	case "identifier":
		return nodeText(w.ctx.src, fn), "", false
	case "generic_name":
		nameNode := fn.ChildByFieldName("name")
		name := nodeText(w.ctx.src, nameNode)
		if name == "" {
			name = stripGenericArgs(nodeText(w.ctx.src, fn))
		}
		return name, "", true
	case "member_access_expression", "conditional_access_expression":
		exprField := "expression"
		nameField := "name"
		expr := fn.ChildByFieldName(exprField)
		nameNode := fn.ChildByFieldName(nameField)
		methodName = nodeText(w.ctx.src, nameNode)
		if gn := nameNode; gn != nil && gn.Kind() == "generic_name" {
			isGeneric = true
			if gnName := gn.ChildByFieldName("name"); gnName != nil {
				methodName = nodeText(w.ctx.src, gnName)
			}
		}
		receiver = w.resolveReceiverType(expr)
		return methodName, receiver, isGeneric
	default:
		return "", "", false
	}
}

// resolveReceiverType resolves the static type of a receiver expression:
// this/base, field-type-map lookup, capitalized-identifier static reference,
// or unknown.
func (w *csharpBodyWalker) resolveReceiverType(expr *tree_sitter.Node) string {
	if expr == nil {
		return ""
	}
	kind := expr.Kind()
	// Depending on the grammar version, this/base appear as dedicated
	// expression nodes, as bare keyword nodes, or as identifiers.
	switch nodeText(w.ctx.src, expr) {
	case "this":
		kind = "this_expression"
	case "base":
		kind = "base_expression"
	}
	switch kind {
	case "this_expression":
		if w.cls != nil {
			return w.cls.name
		}
		return ""
	case "base_expression":
		if w.cls != nil && len(w.cls.baseTypes) > 0 {
			return stripGenericArgs(w.cls.baseTypes[0])
		}
		return ""
	case "identifier":
		name := nodeText(w.ctx.src, expr)
		if w.cls != nil {
			if t, ok := w.cls.fieldTypes[name]; ok {
				return t
			}
		}
		if name != "" && isUpperFirst(name) {
			return name
		}
		return ""
	case "member_access_expression", "conditional_access_expression":
		// x.y.m() — resolve the nested receiver's type if it is itself a
		// known field, else treat as unknown (spec scopes receiver
		// resolution to one level of field-type lookup plus this/base).
		inner := expr.ChildByFieldName("expression")
		innerName := expr.ChildByFieldName("name")
		_ = innerName
		return w.resolveReceiverType(inner)
	default:
		return ""
	}
}

func isUpperFirst(s string) bool {
	if s == "" {
		return false
	}
	return s[0] >= 'A' && s[0] <= 'Z'
}

func dedupCallSites(in []types.CallSite) []types.CallSite {
	type key struct {
		line   int
		method string
		recv   string
	}
	seen := make(map[key]struct{}, len(in))
	out := make([]types.CallSite, 0, len(in))
	for _, c := range in {
		k := key{c.Line, c.MethodName, c.ReceiverType}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}
