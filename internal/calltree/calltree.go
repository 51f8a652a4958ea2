// Package calltree implements §4.6's caller- and callee-tree builders: the
// bounded, cycle-safe traversal of the call graph in either direction from a
// starting method, with root-level deduplication and an ambiguity warning
// when a bare method name spans multiple classes.
//
// Context-free unit: read-only over a *content.Index and *defindex.Index;
// callers hold both indexes' read locks for the duration of one build.
package calltree

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/types"
)

// Node is one call-graph tree node: a method/constructor/function definition
// plus its expanded children (callees or callers, depending on direction).
type Node struct {
	Class     string
	Method    string
	File      string
	LineStart int
	Children  []*Node
}

// Request carries the shared bounds and filters of §4.6/§4.9 for either tree
// direction.
type Request struct {
	Method string
	Class  string // optional; "" means unqualified, may be ambiguous

	MaxDepth           int // 0 means unbounded
	MaxCallersPerLevel int // 0 means unbounded
	MaxTotalNodes      int // 0 means unbounded

	Ext         []string
	ExcludeDir  []string
	ExcludeFile []string
}

// Result is the built tree plus the metadata the façade surfaces alongside
// it (§4.8's "summary" envelope fields relevant to tree building).
type Result struct {
	Roots            []*Node
	AmbiguityWarning string
	AmbiguousClasses []string
	TotalClasses     int
	TotalNodes       int
	Truncated        bool
}

// visitKey is the cycle/overload-distinguishing identity of §4.6: "a visited
// set keyed by (class, method, line_start) so overloads are not conflated
// and cycles terminate".
type visitKey struct {
	Class     string
	Method    string
	LineStart int
}

func keyOf(d types.Definition) visitKey {
	return visitKey{Class: d.Parent, Method: d.Name, LineStart: d.LineStart}
}

func containsKey(path []visitKey, k visitKey) bool {
	for _, v := range path {
		if v == k {
			return true
		}
	}
	return false
}

// nodeBudget enforces max_total_nodes as an atomic counter per §5's
// "cancellation & timeouts" model, so it stays correct if a future caller
// parallelizes sibling expansion.
type nodeBudget struct {
	remaining int64
}

func newBudget(max int) *nodeBudget {
	if max <= 0 {
		max = 1 << 30
	}
	return &nodeBudget{remaining: int64(max)}
}

func (b *nodeBudget) take() bool {
	return atomic.AddInt64(&b.remaining, -1) >= 0
}

func pathOfFunc(defs *defindex.Index, pathForFile func(types.FileID) string) func(types.FileID) string {
	if pathForFile != nil {
		return pathForFile
	}
	return func(types.FileID) string { return "" }
}

func passesTreeFilters(path string, req Request) bool {
	lp := strings.ToLower(path)
	if len(req.Ext) > 0 {
		ok := false
		for _, e := range req.Ext {
			e = strings.ToLower(strings.TrimPrefix(e, "."))
			if strings.HasSuffix(lp, "."+e) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, d := range req.ExcludeDir {
		if d != "" && strings.Contains(lp, strings.ToLower(d)) {
			return false
		}
	}
	for _, f := range req.ExcludeFile {
		if f != "" && strings.Contains(lp, strings.ToLower(f)) {
			return false
		}
	}
	return true
}

// findRoots resolves req.Method (optionally scoped to req.Class) to the set
// of method-like definition indices matching it, honoring the ext/dir/file
// filters. It also returns the set of distinct parent classes observed, for
// the ambiguity warning when req.Class is empty.
func findRoots(defs *defindex.Index, pathOf func(types.FileID) string, req Request) (roots []int, classes map[string]struct{}) {
	classes = make(map[string]struct{})
	for _, i := range defs.NameIndex[strings.ToLower(req.Method)] {
		d := defs.Definitions[i]
		if d.Tombstone || !d.Kind.IsMethodLike() {
			continue
		}
		if req.Class != "" && !strings.EqualFold(d.Parent, req.Class) {
			continue
		}
		if !passesTreeFilters(pathOf(d.FileID), req) {
			continue
		}
		roots = append(roots, i)
		if d.Parent != "" {
			classes[d.Parent] = struct{}{}
		}
	}
	return roots, classes
}

// ambiguityWarning builds §4.6's "listing up to 10 class names" message when
// an unqualified method name resolves across multiple classes.
func ambiguityWarning(method string, classes map[string]struct{}) (warning string, names []string, total int) {
	if len(classes) <= 1 {
		return "", nil, len(classes)
	}
	names = make([]string, 0, len(classes))
	for c := range classes {
		names = append(names, c)
	}
	sort.Strings(names)
	total = len(names)
	shown := names
	if len(shown) > 10 {
		shown = shown[:10]
	}
	warning = fmt.Sprintf("%q is ambiguous across %d classes: %s", method, total, strings.Join(shown, ", "))
	return warning, names, total
}

type rootKey struct {
	class, method, file string
	line                int
}

// dedupRoots implements §4.6's "results from different interface paths are
// deduplicated at the root by (class, method, file, line)".
func dedupRoots(nodes []*Node) []*Node {
	seen := make(map[rootKey]struct{}, len(nodes))
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		k := rootKey{n.Class, n.Method, n.File, n.LineStart}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}
