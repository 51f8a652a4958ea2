package resolver

import "strings"

// builtinReceivers is the closed built-in-receiver blocklist of §6: a
// case-insensitive membership set that prevents e.g. "Promise.resolve()"
// from matching a user "Deferred.resolve()" (§4.6 rule 1).
var builtinReceivers = buildBlocklist([]string{
	"Promise", "Array", "Map", "Set", "Object", "String", "Number", "Boolean",
	"Date", "RegExp", "Error", "Symbol", "BigInt", "Function", "Math", "JSON",
	"Reflect", "Proxy", "Intl",
	"Int8Array", "Uint8Array", "Uint8ClampedArray", "Int16Array", "Uint16Array",
	"Int32Array", "Uint32Array", "Float32Array", "Float64Array",
	"BigInt64Array", "BigUint64Array",
	"ArrayBuffer", "SharedArrayBuffer", "DataView",
	"WeakMap", "WeakSet", "WeakRef", "FinalizationRegistry",
	"console", "window", "document", "globalThis", "navigator",
	"localStorage", "sessionStorage", "setTimeout", "setInterval", "fetch",
	"Iterator", "Generator", "AsyncGenerator", "AsyncIterator",
	"TypeError", "RangeError", "ReferenceError", "SyntaxError", "URIError", "EvalError",
	"Task", "List", "Dictionary", "HashSet", "Queue", "Stack",
	"Console", "Convert", "Enum", "Guid", "Nullable", "Tuple", "ValueTuple",
	"Span", "Memory",
})

func buildBlocklist(names []string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = struct{}{}
	}
	return m
}

// IsBuiltinReceiver reports whether recv (case-insensitive) is in the
// built-in blocklist of §6.
func IsBuiltinReceiver(recv string) bool {
	if recv == "" {
		return false
	}
	_, ok := builtinReceivers[strings.ToLower(recv)]
	return ok
}
