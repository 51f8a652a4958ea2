package calltree

import (
	"strings"

	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/resolver"
)

// VerifyCallSiteTarget implements §4.6's verify_call_site_target: given a
// content-index hit (caller definition, line, method name) and a candidate
// target class, decide whether the hit is a genuine call to that class'
// method rather than a false positive (comment, string literal, unrelated
// same-named method).
func VerifyCallSiteTarget(defs *defindex.Index, callerDefIdx int, line int, methodName, targetClass string) bool {
	calls, ok := defs.MethodCalls[callerDefIdx]
	if !ok {
		return false
	}

	var retained []int
	for i, c := range calls {
		if c.Line == line && strings.EqualFold(c.MethodName, methodName) {
			retained = append(retained, i)
		}
	}
	if len(retained) == 0 {
		return false
	}

	if resolver.IsExtensionHost(defs, methodName, targetClass) {
		return true
	}

	if callerDefIdx < 0 || callerDefIdx >= len(defs.Definitions) {
		return false
	}
	caller := defs.Definitions[callerDefIdx]

	for _, idx := range retained {
		c := calls[idx]
		if c.ReceiverType == "" {
			if strings.EqualFold(caller.Parent, targetClass) || resolver.ClassImplementsInterface(defs, caller.Parent, targetClass) {
				return true
			}
			continue
		}
		if strings.EqualFold(c.ReceiverType, targetClass) {
			return true
		}
		if resolver.InterfaceFuzzyMatch(c.ReceiverType, targetClass) {
			return true
		}
		if resolver.ClassImplementsInterface(defs, targetClass, c.ReceiverType) {
			return true
		}
		if resolver.EdlibAccept(c.ReceiverType, targetClass) {
			return true
		}
	}
	return false
}
