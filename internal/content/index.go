// Package content implements the content index: inverted postings, an optional
// forward index for O(file) incremental removal, and a trigram-over-tokens
// index for substring queries (§3, §4.3, §4.4 of the design).
//
// Context-free unit: in-memory, reader-writer-locked index over a sequence of
// files. The build driver owns the only writer at startup; the watcher is the
// only writer thereafter, one batch at a time under a single write lock.
// External deps: golang.org/x/sync/errgroup (parallel build) and
// github.com/surgebase/porter2 (opt-in stemming); persistence key hashing
// (xxhash) lives in internal/persist, not here.
package content

import (
	"sort"
	"sync"
	"time"

	"github.com/codesift/codesift/internal/types"
)

// FileRecord is one entry in the content index's file sequence. Deleted files
// remain as tombstones (TokenCount 0) so FileID stays stable.
type FileRecord struct {
	Path       string // UTF-8, forward-slash normalized, canonicalized
	TokenCount int
}

// Index is the content index: inverted + forward + trigram, per §3.
type Index struct {
	mu sync.RWMutex

	Files           []FileRecord
	TotalTokens     int
	Inverted        map[string][]types.Posting // token -> postings sorted by FileID, unique FileID, unique+sorted lines
	Forward         map[types.FileID]map[string]struct{} // populated only in watch mode
	PathToID        map[string]types.FileID               // populated only in watch mode

	Extensions []string
	CreatedAt  time.Time
	MaxAgeSecs int64

	trigramMu    sync.Mutex
	trigram      *TrigramIndex
	trigramDirty bool

	// StemEnabled/StemMinLen are set from Config.Search.Stem/Semantic.MinStemLength
	// by the build driver (§4.4's opt-in stemming pass). The stem index itself
	// (stem -> original tokens) is derived from Inverted exactly like the
	// trigram index: lazily rebuilt, invalidated by the same MarkTrigramDirty
	// call sites.
	StemEnabled bool
	StemMinLen  int
	stemMu      sync.Mutex
	stemIdx     map[string][]string
	stemDirty   bool

	// WatchMode toggles forward/path_to_id maintenance; the one-shot CLI build
	// path leaves both nil to save memory, per §4.3.
	WatchMode bool
}

// New creates an empty index.
func New(watchMode bool) *Index {
	idx := &Index{
		Inverted:  make(map[string][]types.Posting),
		WatchMode: watchMode,
		CreatedAt: time.Now(),
		trigram:   NewTrigramIndex(),
	}
	if watchMode {
		idx.Forward = make(map[types.FileID]map[string]struct{})
		idx.PathToID = make(map[string]types.FileID)
	}
	return idx
}

// RLock/RUnlock/Lock/Unlock expose the reader-writer discipline directly to
// callers that need to read or mutate several fields atomically (query
// handlers and the watcher's batch-apply step).
func (idx *Index) RLock()   { idx.mu.RLock() }
func (idx *Index) RUnlock() { idx.mu.RUnlock() }
func (idx *Index) Lock()    { idx.mu.Lock() }
func (idx *Index) Unlock()  { idx.mu.Unlock() }

// FileCount returns len(Files) under a read lock.
func (idx *Index) FileCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.FileCountLocked()
}

// FileCountLocked returns len(Files) without acquiring idx.mu. Callers that
// already hold idx's read (or write) lock — e.g. query.Info, which reads
// several fields together under one RLock — must use this instead of
// FileCount to avoid Go's RWMutex deadlocking on recursive RLock when a
// writer is waiting.
func (idx *Index) FileCountLocked() int {
	return len(idx.Files)
}

// findPosting returns the Posting for fileID in postings, or nil.
func findPosting(postings []types.Posting, fileID types.FileID) *types.Posting {
	// Postings are sorted by FileID; binary search keeps removal/merge cheap
	// for files with many tokens, matching the invariant "no posting list
	// contains duplicate file_ids" by construction.
	i := sort.Search(len(postings), func(i int) bool { return postings[i].FileID >= fileID })
	if i < len(postings) && postings[i].FileID == fileID {
		return &postings[i]
	}
	return nil
}

func insertPostingSorted(postings []types.Posting, p types.Posting) []types.Posting {
	i := sort.Search(len(postings), func(i int) bool { return postings[i].FileID >= p.FileID })
	if i < len(postings) && postings[i].FileID == p.FileID {
		postings[i].Lines = unionSortedUnique(postings[i].Lines, p.Lines)
		return postings
	}
	postings = append(postings, types.Posting{})
	copy(postings[i+1:], postings[i:])
	postings[i] = p
	return postings
}

func unionSortedUnique(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// MarkTrigramDirty flags the trigram index for lazy rebuild on the next
// substring query (§3 "rebuild is lazy, triggered on first substring query").
// It also invalidates the optional stem index (§4.4's opt-in stemming pass),
// which is derived from the same Inverted map and rebuilt lazily the same
// way, so every call site that mutates Inverted only has one dirty flag to
// remember to set.
func (idx *Index) MarkTrigramDirty() {
	idx.trigramDirty = true
	idx.stemDirty = true
}

// Trigram returns the trigram index, rebuilding it first if dirty. Callers
// must hold at least a read lock on idx (MarkTrigramDirty is always called
// by a writer holding idx.mu.Lock(), so the RWMutex's happens-before
// guarantee makes the dirty flag visible to the next RLock holder). The
// rebuild itself is serialized by trigramMu, a lock private to the trigram
// fields — it never touches idx.mu, so it cannot deadlock against the
// caller's held read lock.
func (idx *Index) Trigram() *TrigramIndex {
	idx.trigramMu.Lock()
	defer idx.trigramMu.Unlock()
	if idx.trigramDirty || idx.trigram == nil {
		tokens := make([]string, 0, len(idx.Inverted))
		for tok := range idx.Inverted {
			tokens = append(tokens, tok)
		}
		idx.trigram = BuildTrigramIndex(tokens)
		idx.trigramDirty = false
	}
	return idx.trigram
}

// StemIndex returns the stem -> original-tokens map used by the opt-in
// §4.4 stemming pass, rebuilding it first if dirty. grepTokens only calls it
// for a request with Stem set, so §4.1's token identity stays exact unless
// a caller opts in. Mirrors Trigram's
// lazy-rebuild-behind-its-own-lock discipline exactly, and for the same
// reason: callers hold idx's read lock, so the rebuild must not re-acquire
// idx.mu.
func (idx *Index) StemIndex() map[string][]string {
	idx.stemMu.Lock()
	defer idx.stemMu.Unlock()
	if idx.stemDirty || idx.stemIdx == nil {
		idx.stemIdx = buildStemIndex(idx.Inverted, idx.StemMinLen)
		idx.stemDirty = false
	}
	return idx.stemIdx
}

// Stale reports whether the index has exceeded its MaxAgeSecs.
func (idx *Index) Stale() bool {
	if idx.MaxAgeSecs <= 0 {
		return false
	}
	return time.Since(idx.CreatedAt) > time.Duration(idx.MaxAgeSecs)*time.Second
}
