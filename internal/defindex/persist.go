package defindex

import (
	"sort"
	"strings"
	"time"

	"github.com/codesift/codesift/internal/persist"
	"github.com/codesift/codesift/internal/types"
)

// Snapshot is the gob-encodable projection persisted by §4.7. Secondary
// indexes are not persisted: they are cheap to rebuild from Definitions and
// keeping them out of the blob avoids two sources of truth drifting apart
// across format versions.
type Snapshot struct {
	Definitions []types.Definition
	MethodCalls map[int][]types.CallSite
	// ExtensionMethods is flattened to name -> sorted class list: gob refuses
	// to encode struct{} set values (no exported fields).
	ExtensionMethods map[string][]string
	CodeStats        map[int]types.CodeStats
	ParseErrors      int
	LossyFileCount   int
	EmptyFileIDs     []EmptyFile
	CreatedAt        time.Time
	MaxAgeSecs       int64
}

// Snapshot captures idx's persisted fields under a read lock.
func (idx *Index) Snapshot() Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ext := make(map[string][]string, len(idx.ExtensionMethods))
	for method, hosts := range idx.ExtensionMethods {
		names := make([]string, 0, len(hosts))
		for h := range hosts {
			names = append(names, h)
		}
		sort.Strings(names)
		ext[method] = names
	}
	return Snapshot{
		Definitions:      append([]types.Definition(nil), idx.Definitions...),
		MethodCalls:      idx.MethodCalls,
		ExtensionMethods: ext,
		CodeStats:        idx.CodeStats,
		ParseErrors:      idx.ParseErrors,
		LossyFileCount:   idx.LossyFileCount,
		EmptyFileIDs:     append([]EmptyFile(nil), idx.EmptyFileIDs...),
		CreatedAt:        idx.CreatedAt,
		MaxAgeSecs:       idx.MaxAgeSecs,
	}
}

// FromSnapshot rebuilds a live Index (with fresh secondary indexes) from a
// loaded Snapshot.
func FromSnapshot(s Snapshot) *Index {
	idx := New()
	idx.Definitions = s.Definitions
	idx.MethodCalls = s.MethodCalls
	for method, hosts := range s.ExtensionMethods {
		set := make(map[string]struct{}, len(hosts))
		for _, h := range hosts {
			set[h] = struct{}{}
		}
		idx.ExtensionMethods[method] = set
	}
	idx.CodeStats = s.CodeStats
	idx.ParseErrors = s.ParseErrors
	idx.LossyFileCount = s.LossyFileCount
	idx.EmptyFileIDs = s.EmptyFileIDs
	idx.CreatedAt = s.CreatedAt
	idx.MaxAgeSecs = s.MaxAgeSecs
	if idx.MethodCalls == nil {
		idx.MethodCalls = make(map[int][]types.CallSite)
	}
	if idx.ExtensionMethods == nil {
		idx.ExtensionMethods = make(map[string]map[string]struct{})
	}
	if idx.CodeStats == nil {
		idx.CodeStats = make(map[int]types.CodeStats)
	}

	for i, d := range idx.Definitions {
		if d.Tombstone {
			continue
		}
		idx.NameIndex[strings.ToLower(d.Name)] = append(idx.NameIndex[strings.ToLower(d.Name)], i)
		idx.KindIndex[d.Kind] = append(idx.KindIndex[d.Kind], i)
		for _, a := range d.Attributes {
			key := strings.ToLower(a)
			idx.AttributeIndex[key] = append(idx.AttributeIndex[key], i)
		}
		for _, b := range d.BaseTypes {
			key := normalizeBaseType(b)
			idx.BaseTypeIndex[key] = append(idx.BaseTypeIndex[key], i)
		}
		idx.FileIndex[d.FileID] = append(idx.FileIndex[d.FileID], i)
	}
	return idx
}

// Save persists idx to the deterministic path derived from
// (canonicalRoot, extensions, "definitions") under baseDir.
func (idx *Index) Save(baseDir, canonicalRoot string, extensions []string) error {
	path := persist.KeyPath(baseDir, canonicalRoot, strings.Join(extensions, ","), persist.PurposeDefinition)
	return persist.Save(path, idx.Snapshot())
}

// Load reads a previously saved definition index for (canonicalRoot,
// extensions) from baseDir.
func Load(baseDir, canonicalRoot string, extensions []string) (*Index, error) {
	path := persist.KeyPath(baseDir, canonicalRoot, strings.Join(extensions, ","), persist.PurposeDefinition)
	var snap Snapshot
	if err := persist.Load(path, &snap); err != nil {
		return nil, err
	}
	return FromSnapshot(snap), nil
}
