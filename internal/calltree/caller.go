package calltree

import (
	"sort"
	"strings"

	"github.com/codesift/codesift/internal/content"
	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/resolver"
	"github.com/codesift/codesift/internal/types"
)

// BuildCallerTree implements §4.6's caller-tree builder (direction = up):
// content-index token search for the method name, narrowed by the target
// class' token presence (directly, via its I-prefixed interface form, via
// known implementations, and via a trigram field-name lookup), each hit
// located to its containing method and checked with VerifyCallSiteTarget.
// cidx and defs must be held under at least a read lock by the caller.
func BuildCallerTree(cidx *content.Index, defs *defindex.Index, pathOf func(types.FileID) string, req Request) Result {
	pathOf = pathOfFunc(defs, pathOf)
	targets, classes := findRoots(defs, pathOf, req)

	warning, names, total := ambiguityWarning(req.Method, classes)
	res := Result{AmbiguityWarning: warning, AmbiguousClasses: names, TotalClasses: total}
	if len(targets) == 0 {
		return res
	}

	budget := newBudget(req.MaxTotalNodes)
	var built []*Node
	for _, t := range targets {
		node, truncated := buildCallerNode(cidx, defs, pathOf, t, 0, req, budget, nil)
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

func buildCallerNode(cidx *content.Index, defs *defindex.Index, pathOf func(types.FileID) string, defIdx int, depth int, req Request, budget *nodeBudget, ancestors []visitKey) (*Node, bool) {
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

	callerIdxs := findCallers(cidx, defs, pathOf, d)
	if len(callerIdxs) == 0 {
		return node, false
	}

	nextAncestors := append(append([]visitKey(nil), ancestors...), key)
	truncated := false
	childCount := 0
	for _, callerIdx := range callerIdxs {
		if req.MaxCallersPerLevel > 0 && childCount >= req.MaxCallersPerLevel {
			truncated = true
			break
		}
		cd := defs.Definitions[callerIdx]
		if !passesTreeFilters(pathOf(cd.FileID), req) {
			continue
		}
		child, childTruncated := buildCallerNode(cidx, defs, pathOf, callerIdx, depth+1, req, budget, nextAncestors)
		if childTruncated {
			truncated = true
		}
		if child != nil {
			node.Children = append(node.Children, child)
			childCount++
		}
	}
	return node, truncated
}

// findCallers locates candidate callers of target via the content index's
// method-name token, narrows by the parent class' token presence, resolves
// each surviving hit to its containing method and verifies it, returning
// deduplicated, sorted definition indices.
func findCallers(cidx *content.Index, defs *defindex.Index, pathOf func(types.FileID) string, target types.Definition) []int {
	methodTok := strings.ToLower(target.Name)
	postings := cidx.Inverted[methodTok]
	if len(postings) == 0 {
		return nil
	}

	classTokens := classTokenCandidates(defs, target.Parent)
	fieldStem := strings.ToLower(resolver.Stem(target.Parent))

	seen := make(map[int]struct{})
	var out []int
	for _, p := range postings {
		if target.Parent != "" && !fileMatchesClass(cidx, p.FileID, classTokens, fieldStem) {
			continue
		}
		for _, line := range p.Lines {
			callerIdx, ok := defs.FindContainingMethod(p.FileID, line)
			if !ok {
				continue
			}
			if _, dup := seen[callerIdx]; dup {
				continue
			}
			if !VerifyCallSiteTarget(defs, callerIdx, line, target.Name, target.Parent) {
				continue
			}
			seen[callerIdx] = struct{}{}
			out = append(out, callerIdx)
		}
	}
	sort.Ints(out)
	return out
}

// classTokenCandidates gathers the token variants §4.6 says narrow a
// method-name content hit to the right class: the class name itself, its
// I-prefixed interface form, known implementations (classes whose base_types
// name it), and the interfaces it itself implements.
func classTokenCandidates(defs *defindex.Index, className string) []string {
	if className == "" {
		return nil
	}
	set := make(map[string]struct{})
	lc := strings.ToLower(className)
	set[lc] = struct{}{}
	set["i"+lc] = struct{}{}
	if stem := strings.ToLower(resolver.Stem(className)); stem != lc {
		set[stem] = struct{}{}
	}

	key := strings.ToLower(strings.TrimSpace(className))
	for _, i := range defs.BaseTypeIndex[key] {
		d := defs.Definitions[i]
		if !d.Tombstone && d.Name != "" {
			set[strings.ToLower(d.Name)] = struct{}{}
		}
	}
	for _, i := range defs.NameIndex[lc] {
		d := defs.Definitions[i]
		if d.Tombstone {
			continue
		}
		for _, b := range d.BaseTypes {
			set[strings.ToLower(b)] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

func fileMatchesClass(cidx *content.Index, fid types.FileID, classTokens []string, fieldStem string) bool {
	for _, tok := range classTokens {
		if postingListHasFile(cidx.Inverted[tok], fid) {
			return true
		}
	}
	if len(fieldStem) >= resolver.MinStemLen {
		for _, tok := range cidx.Trigram().Substring(fieldStem) {
			if postingListHasFile(cidx.Inverted[tok], fid) {
				return true
			}
		}
	}
	return false
}

func postingListHasFile(postings []types.Posting, fid types.FileID) bool {
	i := sort.Search(len(postings), func(i int) bool { return postings[i].FileID >= fid })
	return i < len(postings) && postings[i].FileID == fid
}
