package calltree

import (
	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/resolver"
	"github.com/codesift/codesift/internal/types"
)

// BuildCalleeTree implements §4.6's callee-tree builder (direction = down):
// "uses method_calls directly; for each call site it calls the resolver with
// caller_parent = enclosing class." defs must be held under at least a read
// lock by the caller for the duration of this call.
func BuildCalleeTree(defs *defindex.Index, pathOf func(types.FileID) string, req Request) Result {
	pathOf = pathOfFunc(defs, pathOf)
	roots, classes := findRoots(defs, pathOf, req)

	warning, names, total := ambiguityWarning(req.Method, classes)
	res := Result{AmbiguityWarning: warning, AmbiguousClasses: names, TotalClasses: total}
	if len(roots) == 0 {
		return res
	}

	budget := newBudget(req.MaxTotalNodes)
	var built []*Node
	for _, r := range roots {
		node, truncated := buildCalleeNode(defs, pathOf, r, 0, req, budget, nil)
		if truncated {
			res.Truncated = true
		}
		if node != nil {
			built = append(built, node)
		}
	}
	res.Roots = dedupRoots(built)
	res.TotalNodes = countNodes(res.Roots)
	return res
}

func buildCalleeNode(defs *defindex.Index, pathOf func(types.FileID) string, defIdx int, depth int, req Request, budget *nodeBudget, ancestors []visitKey) (*Node, bool) {
	if defIdx < 0 || defIdx >= len(defs.Definitions) {
		return nil, false
	}
	d := defs.Definitions[defIdx]
	key := keyOf(d)
	if containsKey(ancestors, key) {
		return nil, false
	}
	if !budget.take() {
		return nil, true
	}

	node := &Node{Class: d.Parent, Method: d.Name, File: pathOf(d.FileID), LineStart: d.LineStart}
	if req.MaxDepth > 0 && depth >= req.MaxDepth {
		return node, false
	}

	calls := defs.MethodCalls[defIdx]
	if len(calls) == 0 {
		return node, false
	}

	nextAncestors := append(append([]visitKey(nil), ancestors...), key)
	truncated := false
	childCount := 0

callLoop:
	for _, call := range calls {
		if req.MaxCallersPerLevel > 0 && childCount >= req.MaxCallersPerLevel {
			truncated = true
			break
		}
		if resolver.IsBuiltinReceiver(call.ReceiverType) {
			continue
		}
		candidates := resolver.Resolve(defs, call, d.Parent)
		for _, cIdx := range candidates {
			if req.MaxCallersPerLevel > 0 && childCount >= req.MaxCallersPerLevel {
				truncated = true
				break callLoop
			}
			cd := defs.Definitions[cIdx]
			if !passesTreeFilters(pathOf(cd.FileID), req) {
				continue
			}
			child, childTruncated := buildCalleeNode(defs, pathOf, cIdx, depth+1, req, budget, nextAncestors)
			if childTruncated {
				truncated = true
			}
			if child != nil {
				node.Children = append(node.Children, child)
				childCount++
			}
		}
	}
	return node, truncated
}

func countNodes(nodes []*Node) int {
	n := len(nodes)
	for _, node := range nodes {
		n += countNodes(node.Children)
	}
	return n
}
