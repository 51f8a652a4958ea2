// Package types holds the data model shared across the content index, the
// definition index, the resolver and the call-tree builder: stable identifiers,
// the definition-kind closed set, call sites and code statistics.
package types

import "strings"

// Index size guards, shared between the config defaults and the walker.
const (
	DefaultMaxFileSize    = 10 * 1024 * 1024 // per-file byte cap for indexing
	DefaultMaxFileCount   = 10000            // files per single index operation
	DefaultMaxTotalSizeMB = 500              // total indexed bytes cap (MB)
)

// FileID is a stable 32-bit index into a content or definition index's file
// sequence. Deleted files remain at their FileID as tombstones so references
// from postings, call sites and definitions stay valid across incremental
// updates.
type FileID uint32

// DefID is a stable index into a definition index's definitions sequence.
// Tombstoned on removal, never reused.
type DefID uint32

// Posting is a single (file, line-numbers) entry in an inverted-index posting
// list for one token. Lines are 1-based, strictly increasing, and unique.
type Posting struct {
	FileID FileID
	Lines  []int
}

// DefinitionKind is the closed set of symbol kinds the parsers emit.
type DefinitionKind int

const (
	KindUnknown DefinitionKind = iota
	KindClass
	KindInterface
	KindEnum
	KindStruct
	KindRecord
	KindMethod
	KindProperty
	KindField
	KindConstructor
	KindDelegate
	KindEvent
	KindEnumMember
	KindFunction
	KindVariable
	KindTypeAlias
	// SQL variants are retained as placeholders only; no parser emits them
	// (see SPEC_FULL §3 open question: SQL parsing grammar is not wired).
	KindSQLTable
	KindSQLView
	KindSQLProcedure
)

var kindNames = map[DefinitionKind]string{
	KindClass:        "Class",
	KindInterface:    "Interface",
	KindEnum:         "Enum",
	KindStruct:       "Struct",
	KindRecord:       "Record",
	KindMethod:       "Method",
	KindProperty:     "Property",
	KindField:        "Field",
	KindConstructor:  "Constructor",
	KindDelegate:     "Delegate",
	KindEvent:        "Event",
	KindEnumMember:   "EnumMember",
	KindFunction:     "Function",
	KindVariable:     "Variable",
	KindTypeAlias:    "TypeAlias",
	KindSQLTable:     "SQLTable",
	KindSQLView:      "SQLView",
	KindSQLProcedure: "SQLProcedure",
}

var namesToKind = func() map[string]DefinitionKind {
	m := make(map[string]DefinitionKind, len(kindNames))
	for k, v := range kindNames {
		m[strings.ToLower(v)] = k
	}
	return m
}()

// String renders the canonical kind name.
func (k DefinitionKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// ParseDefinitionKind parses a kind name case-insensitively. Returns
// (KindUnknown, false) for an unrecognized name.
func ParseDefinitionKind(s string) (DefinitionKind, bool) {
	k, ok := namesToKind[strings.ToLower(s)]
	return k, ok
}

// IsMethodLike reports whether k is one of the kinds CodeStats are computed for.
func (k DefinitionKind) IsMethodLike() bool {
	return k == KindMethod || k == KindConstructor || k == KindFunction
}

// Definition is a single AST-derived symbol table entry.
type Definition struct {
	FileID     FileID
	Name       string
	Kind       DefinitionKind
	LineStart  int
	LineEnd    int
	Parent     string // enclosing class/interface/enum name, single-level, lexical
	Signature  string
	Modifiers  []string
	Attributes []string // normalized: stripped of "(args)", lowercased, deduplicated
	BaseTypes  []string // verbatim from source, generic args retained; index keys lowercase separately

	Tombstone bool
}

// CallSite is a single invocation occurrence inside a method body.
type CallSite struct {
	MethodName        string // type arguments stripped, e.g. "Foo<T>()" -> "Foo"
	ReceiverType      string // "" means unknown (None)
	Line              int
	ReceiverIsGeneric bool
}

// HasReceiver reports whether the call site resolved a static receiver type.
func (c CallSite) HasReceiver() bool { return c.ReceiverType != "" }

// CodeStats holds per-method/constructor/function complexity metrics.
// Recorded only for DefinitionKind.IsMethodLike(); other kinds have no entry.
type CodeStats struct {
	ParamCount           int
	CyclomaticComplexity int // base 1
	CognitiveComplexity  int // SonarSource rules, see internal/parser
	MaxNestingDepth      int
	ReturnCount          int // return + throw
	CallCount            int
	LambdaCount          int
}
