// Package resolver implements §4.6's call-graph resolver: mapping one raw
// CallSite to the set of target definition indices using receiver-type
// rules, DI interface fuzzy matching and built-in-type suppression. It is
// used directly by the callee-tree builder (direction = down) and its
// fuzzy-matching helpers are shared with the caller-tree builder's
// verification pass in internal/calltree.
//
// Context-free unit: pure functions over a *defindex.Index read snapshot; no
// locking of its own — callers hold the definition index's read lock for the
// duration of a resolve call.
// External deps: github.com/hbollon/go-edlib (secondary fuzzy-match signal).
package resolver

import (
	"strings"

	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/types"
)

// Resolve maps call to the set of candidate target definition indices,
// applying §4.6's ordered rules. callerClass is the enclosing class of the
// call site, or "" if unknown.
func Resolve(idx *defindex.Index, call types.CallSite, callerClass string) []int {
	if IsBuiltinReceiver(call.ReceiverType) {
		return nil
	}

	nameKey := strings.ToLower(call.MethodName)
	raw := idx.NameIndex[nameKey]
	candidates := make([]int, 0, len(raw))
	for _, i := range raw {
		d := idx.Definitions[i]
		if d.Tombstone || !d.Kind.IsMethodLike() {
			continue
		}
		candidates = append(candidates, i)
	}

	if call.ReceiverType != "" {
		return resolveWithReceiver(idx, candidates, call)
	}

	if callerClass != "" {
		var out []int
		for _, i := range candidates {
			if strings.EqualFold(idx.Definitions[i].Parent, callerClass) {
				out = append(out, i)
			}
		}
		return out
	}
	return candidates
}

// resolveWithReceiver implements rule 3: direct parent match (with the
// generic-arity filter) or interface base-type match.
func resolveWithReceiver(idx *defindex.Index, candidates []int, call types.CallSite) []int {
	r := call.ReceiverType
	var out []int
	for _, i := range candidates {
		d := idx.Definitions[i]
		if strings.EqualFold(d.Parent, r) {
			if call.ReceiverIsGeneric && !classHasGenericSignature(idx, d.Parent) {
				continue
			}
			out = append(out, i)
			continue
		}
		if ClassImplementsInterface(idx, d.Parent, r) {
			out = append(out, i)
		}
	}
	return out
}

// classHasGenericSignature reports whether any Class/Struct/Record/Interface
// definition named className (case-insensitive) carries a "<" in its
// signature, per §4.6's generic-arity filter: "if call.receiver_is_generic
// but no definition whose parent is R has a < in its class signature, skip".
func classHasGenericSignature(idx *defindex.Index, className string) bool {
	for _, i := range idx.NameIndex[strings.ToLower(className)] {
		d := idx.Definitions[i]
		if d.Tombstone {
			continue
		}
		switch d.Kind {
		case types.KindClass, types.KindStruct, types.KindRecord, types.KindInterface:
			if strings.Contains(d.Signature, "<") {
				return true
			}
		}
	}
	return false
}

// ClassImplementsInterface reports whether a class named className declares
// ifaceName (case-insensitive, generics stripped at index time) in its
// base_types, i.e. "some class named def.parent has R in its base_types".
// Shared with internal/calltree's verify_call_site_target, which applies the
// same check with the receiver/target roles reversed.
func ClassImplementsInterface(idx *defindex.Index, className, ifaceName string) bool {
	want := strings.ToLower(ifaceName)
	for _, i := range idx.NameIndex[strings.ToLower(className)] {
		d := idx.Definitions[i]
		if d.Tombstone {
			continue
		}
		switch d.Kind {
		case types.KindClass, types.KindStruct, types.KindRecord:
		default:
			continue
		}
		for _, b := range d.BaseTypes {
			if strings.ToLower(stripGenerics(b)) == want {
				return true
			}
		}
	}
	return false
}

func stripGenerics(s string) string {
	if i := strings.IndexByte(s, '<'); i >= 0 {
		return s[:i]
	}
	return s
}

// IsExtensionHost reports whether className declares methodName as an
// extension method (§4.2 extension-method detection, §4.6 "extension methods
// may appear to have any receiver").
func IsExtensionHost(idx *defindex.Index, methodName, className string) bool {
	hosts, ok := idx.ExtensionMethods[strings.ToLower(methodName)]
	if !ok {
		return false
	}
	_, ok = hosts[className]
	return ok
}
