// Package defindex implements the definition index of §3/§4.5: the AST-derived
// symbol table with secondary indexes (name, kind, attribute, base-type,
// file), the per-definition call-site map, the extension-method map and the
// audit counters, plus the incremental-update mutation paths the watcher
// drives (§4.9).
//
// Context-free unit: in-memory, reader-writer-locked index over a sequence of
// Definitions built from one or more parser.Result values. Definitions are
// never removed in place (tombstoned instead) so DefID stays stable (§3, §9).
package defindex

import (
	"strings"
	"sync"
	"time"

	"github.com/codesift/codesift/internal/types"
)

// EmptyFile records a file that produced zero definitions, for the audit
// overview's "suspicious files" detail (§4.5, SPEC_FULL supplemented
// feature).
type EmptyFile struct {
	FileID   types.FileID
	ByteSize int64
}

// Index is the definition index: definitions plus secondary indexes, the
// method-calls and extension-method maps, and parse/audit counters (§3).
type Index struct {
	mu sync.RWMutex

	Definitions []types.Definition

	NameIndex      map[string][]int // lowercased name -> def idx
	KindIndex      map[types.DefinitionKind][]int
	AttributeIndex map[string][]int // normalized attribute name -> def idx
	BaseTypeIndex  map[string][]int // lowercased base type (generic args retained) -> def idx
	FileIndex      map[types.FileID][]int
	PathToID       map[string]types.FileID

	MethodCalls       map[int][]types.CallSite // def idx -> call sites
	ExtensionMethods  map[string]map[string]struct{} // method name (lowercased) -> set of class names
	CodeStats         map[int]types.CodeStats

	ParseErrors     int
	LossyFileCount  int
	EmptyFileIDs    []EmptyFile

	CreatedAt  time.Time
	MaxAgeSecs int64
}

// New returns an empty definition index.
func New() *Index {
	return &Index{
		NameIndex:        make(map[string][]int),
		KindIndex:        make(map[types.DefinitionKind][]int),
		AttributeIndex:   make(map[string][]int),
		BaseTypeIndex:    make(map[string][]int),
		FileIndex:        make(map[types.FileID][]int),
		PathToID:         make(map[string]types.FileID),
		MethodCalls:      make(map[int][]types.CallSite),
		ExtensionMethods: make(map[string]map[string]struct{}),
		CodeStats:        make(map[int]types.CodeStats),
		CreatedAt:        time.Now(),
	}
}

func (idx *Index) RLock()   { idx.mu.RLock() }
func (idx *Index) RUnlock() { idx.mu.RUnlock() }
func (idx *Index) Lock()    { idx.mu.Lock() }
func (idx *Index) Unlock()  { idx.mu.Unlock() }

// Stale reports whether the index has exceeded its MaxAgeSecs (§4.7).
func (idx *Index) Stale() bool {
	if idx.MaxAgeSecs <= 0 {
		return false
	}
	return time.Since(idx.CreatedAt) > time.Duration(idx.MaxAgeSecs)*time.Second
}

// Def returns the definition at idx position i, or (zero, false) if out of
// range. Tombstoned entries are returned with Tombstone=true rather than
// hidden, matching §3/§9's "entry remains as a tombstone".
func (idx *Index) Def(i int) (types.Definition, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.DefLocked(i)
}

// DefLocked is Def without acquiring idx.mu. Callers that already hold
// idx's read (or write) lock — e.g. query.Find, which walks Find's result
// indexes under one RLock — must use this instead of Def: Go's RWMutex
// deadlocks on a recursive RLock when a writer is waiting for the first one
// to release.
func (idx *Index) DefLocked(i int) (types.Definition, bool) {
	if i < 0 || i >= len(idx.Definitions) {
		return types.Definition{}, false
	}
	return idx.Definitions[i], true
}

// addUnique appends i to list unless it is already there, avoiding duplicate entries for repeated
// calls during a single AddFile (e.g. the same attribute seen twice would
// otherwise be indexed twice for the same def).
func addUnique(list []int, i int) []int {
	for _, v := range list {
		if v == i {
			return list
		}
	}
	return append(list, i)
}

func removeFromSlice(list []int, i int) []int {
	out := list[:0]
	for _, v := range list {
		if v != i {
			out = append(out, v)
		}
	}
	return out
}

func normalizeBaseType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
