package content

import (
	"strings"
	"time"

	"github.com/codesift/codesift/internal/persist"
	"github.com/codesift/codesift/internal/types"
)

// Snapshot is the gob-encodable projection of Index persisted by §4.7. The
// live Index carries a sync.RWMutex and a lazily-rebuilt trigram index,
// neither of which are part of the on-disk contract: the trigram index is
// rebuilt lazily on load (dirty=true), matching "rebuild is lazy, triggered
// on first substring query" for a freshly loaded index too.
type Snapshot struct {
	Files       []FileRecord
	TotalTokens int
	Inverted    map[string][]types.Posting
	Extensions  []string
	CreatedAt   time.Time
	MaxAgeSecs  int64
	WatchMode   bool
	StemEnabled bool
	StemMinLen  int
}

// Snapshot captures idx's persisted fields under a read lock.
func (idx *Index) Snapshot() Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Snapshot{
		Files:       append([]FileRecord(nil), idx.Files...),
		TotalTokens: idx.TotalTokens,
		Inverted:    idx.Inverted,
		Extensions:  append([]string(nil), idx.Extensions...),
		CreatedAt:   idx.CreatedAt,
		MaxAgeSecs:  idx.MaxAgeSecs,
		WatchMode:   idx.WatchMode,
		StemEnabled: idx.StemEnabled,
		StemMinLen:  idx.StemMinLen,
	}
}

// FromSnapshot rebuilds a live Index from a loaded Snapshot. Forward and
// PathToID are rebuilt from scratch when watchMode is requested, since they
// are not part of the persisted contract (§4.3 "empty forward/path_to_id;
// populated only when the watcher is enabled").
func FromSnapshot(s Snapshot, watchMode bool) *Index {
	idx := &Index{
		Files:        s.Files,
		TotalTokens:  s.TotalTokens,
		Inverted:     s.Inverted,
		Extensions:   s.Extensions,
		CreatedAt:    s.CreatedAt,
		MaxAgeSecs:   s.MaxAgeSecs,
		WatchMode:    watchMode,
		StemEnabled:  s.StemEnabled,
		StemMinLen:   s.StemMinLen,
		trigram:      NewTrigramIndex(),
		trigramDirty: true,
		stemDirty:    true,
	}
	if idx.Inverted == nil {
		idx.Inverted = make(map[string][]types.Posting)
	}
	if watchMode {
		idx.Forward = make(map[types.FileID]map[string]struct{})
		idx.PathToID = make(map[string]types.FileID)
		for fid, fr := range idx.Files {
			if fr.TokenCount == 0 {
				continue
			}
			idx.PathToID[fr.Path] = types.FileID(fid)
		}
		for tok, postings := range idx.Inverted {
			for _, p := range postings {
				set := idx.Forward[p.FileID]
				if set == nil {
					set = make(map[string]struct{})
					idx.Forward[p.FileID] = set
				}
				set[tok] = struct{}{}
			}
		}
	}
	return idx
}

// Save persists idx to the deterministic path derived from
// (canonicalRoot, extensions, "content") under baseDir, per §4.7.
func (idx *Index) Save(baseDir, canonicalRoot string) error {
	path := persist.KeyPath(baseDir, canonicalRoot, strings.Join(idx.Extensions, ","), persist.PurposeContent)
	return persist.Save(path, idx.Snapshot())
}

// Load reads a previously saved content index for (canonicalRoot,
// extensions) from baseDir.
func Load(baseDir, canonicalRoot string, extensions []string, watchMode bool) (*Index, error) {
	path := persist.KeyPath(baseDir, canonicalRoot, strings.Join(extensions, ","), persist.PurposeContent)
	var snap Snapshot
	if err := persist.Load(path, &snap); err != nil {
		return nil, err
	}
	return FromSnapshot(snap, watchMode), nil
}
