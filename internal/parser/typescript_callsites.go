package parser

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codesift/codesift/internal/types"
)

// extractTSFunctionBody is TypeScript's analogue of extractCSharpMethodBody:
// one traversal of a remembered function/method/arrow-function node computing
// CodeStats and CallSites using cls's already-complete field-type map.
func extractTSFunctionBody(ctx *tsWalkCtx, n *tree_sitter.Node, cls *classInfo) (types.CodeStats, []types.CallSite) {
	w := &tsBodyWalker{ctx: ctx, cls: cls, stats: types.CodeStats{CyclomaticComplexity: 1}}
	if params := n.ChildByFieldName("parameters"); params != nil {
		w.stats.ParamCount = len(tsParameterNodes(params))
	} else if n.Kind() == "arrow_function" {
		// Single-parameter arrow functions may have a bare identifier
		// parameter instead of a parenthesized parameter list.
		if p := n.ChildByFieldName("parameter"); p != nil {
			w.stats.ParamCount = 1
		}
	}
	body := n.ChildByFieldName("body")
	if body != nil {
		if body.Kind() == "statement_block" {
			w.walk(body, 0, false)
		} else {
			// Concise arrow body: an expression, not a block. Still walked
			// for nested calls/lambdas but does not itself add nesting.
			w.walk(body, 0, false)
		}
	}
	calls := dedupCallSites(w.calls)
	w.stats.CallCount = len(calls)
	return w.stats, calls
}

func tsParameterNodes(params *tree_sitter.Node) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	cc := params.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := params.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "required_parameter", "optional_parameter", "identifier", "rest_pattern":
			out = append(out, c)
		}
	}
	return out
}

type tsBodyWalker struct {
	ctx   *tsWalkCtx
	cls   *classInfo
	stats types.CodeStats
	calls []types.CallSite

	lastLogicalOp string
}

func (w *tsBodyWalker) walk(n *tree_sitter.Node, depth int, inElseIf bool) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "if_statement":
		w.handleIf(n, depth, inElseIf)
		return
	case "for_statement", "for_in_statement", "while_statement", "do_statement":
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
	case "ternary_expression":
		w.stats.CyclomaticComplexity++
		w.stats.CognitiveComplexity += 1 + depth
		w.walkChildren(n, depth+1)
		return
	case "switch_statement":
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
	case "throw_statement":
		w.stats.ReturnCount++
		w.walkChildren(n, depth)
		return
	case "arrow_function", "function_expression", "generator_function":
		w.stats.LambdaCount++
		w.walkChildren(n, depth+1)
		return
	case "call_expression":
		w.handleCall(n)
		// Argument list only — walking the function/receiver subtree would
		// re-enter every inner link of a chained call.
		args := n.ChildByFieldName("arguments")
		if args == nil {
			for _, c := range childrenByKind(n, "arguments") {
				args = c
				break
			}
		}
		if args != nil {
			w.walkChildren(args, depth)
		}
		return
	case "new_expression":
		w.handleNew(n)
		w.walkChildren(n, depth)
		return
	}
	w.walkChildren(n, depth)
}

func (w *tsBodyWalker) walkChildren(n *tree_sitter.Node, depth int) {
	cc := n.ChildCount()
	for i := uint(0); i < cc; i++ {
		c := n.Child(i)
		if c != nil {
			w.walk(c, depth, false)
		}
	}
}

func (w *tsBodyWalker) bumpNesting(d int) {
	if d > w.stats.MaxNestingDepth {
		w.stats.MaxNestingDepth = d
	}
}

// handleIf mirrors csharpBodyWalker.handleIf: a flattened "else if" chain
// gets a flat +1 cognitive increment per level, no nesting surcharge; a
// standalone else gets +1.
func (w *tsBodyWalker) handleIf(n *tree_sitter.Node, depth int, inElseIf bool) {
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

func (w *tsBodyWalker) handleSwitch(n *tree_sitter.Node, depth int) {
	body := n.ChildByFieldName("body")
	if body == nil {
		body = n
	}
	for _, c := range childrenByKind(body, "switch_case") {
		w.stats.CyclomaticComplexity++
		w.walkChildren(c, depth+1)
	}
	for _, c := range childrenByKind(body, "switch_default") {
		w.walkChildren(c, depth+1)
	}
}

// handleBinary implements the mixed-&&/|| sequence-break rule, same as C#.
func (w *tsBodyWalker) handleBinary(n *tree_sitter.Node, depth int) {
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

// --- call site extraction ---

func (w *tsBodyWalker) handleCall(n *tree_sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	methodName, receiver, isGeneric := w.resolveCallTarget(fn, n)
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

func (w *tsBodyWalker) handleNew(n *tree_sitter.Node) {
	ctorNode := n.ChildByFieldName("constructor")
	if ctorNode == nil {
		return
	}
	raw := nodeText(w.ctx.src, ctorNode)
	typeArgs := n.ChildByFieldName("type_arguments")
	isGeneric := typeArgs != nil
	name := stripGenericArgs(raw)
	w.calls = append(w.calls, types.CallSite{
		MethodName: name, ReceiverType: name, Line: nodeLine1(n), ReceiverIsGeneric: isGeneric,
	})
}

// resolveCallTarget implements §4.2's TS receiver-resolution rules for the
// callee expression of a call_expression.
func (w *tsBodyWalker) resolveCallTarget(fn *tree_sitter.Node, call *tree_sitter.Node) (methodName, receiver string, isGeneric bool) {
	typeArgs := call.ChildByFieldName("type_arguments")
	isGeneric = typeArgs != nil

	switch fn.Kind() {
	case "identifier":
		return nodeText(w.ctx.src, fn), "", isGeneric
	case "member_expression":
		expr := fn.ChildByFieldName("object")
		nameNode := fn.ChildByFieldName("property")
		methodName = nodeText(w.ctx.src, nameNode)
		receiver = w.resolveReceiverType(expr)
		return methodName, receiver, isGeneric
	default:
		return "", "", isGeneric
	}
}

// resolveReceiverType resolves the static type of a receiver expression:
// this, field-type-map lookup, capitalized-identifier static reference.
func (w *tsBodyWalker) resolveReceiverType(expr *tree_sitter.Node) string {
	if expr == nil {
		return ""
	}
	switch expr.Kind() {
	case "this":
		if w.cls != nil {
			return w.cls.name
		}
		return ""
	case "super":
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
	case "member_expression":
		// this.x.m() -> resolve "this.x" as a field lookup on the current
		// class when the object is "this", else recurse through the nested
		// receiver (one level of field-type lookup, per §4.2).
		obj := expr.ChildByFieldName("object")
		prop := expr.ChildByFieldName("property")
		if obj != nil && obj.Kind() == "this" && w.cls != nil {
			name := nodeText(w.ctx.src, prop)
			if t, ok := w.cls.fieldTypes[name]; ok {
				return t
			}
			return ""
		}
		return w.resolveReceiverType(obj)
	default:
		return ""
	}
}
