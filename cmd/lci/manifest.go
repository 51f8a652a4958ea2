package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codesift/codesift/internal/persist"
)

// manifest.json is a small side table the CLI keeps next to the persisted
// blobs: §4.7's persistence key is a one-way hash of
// (canonical_root_path, extensions_csv, purpose), so recovering "which
// extensions set did this root build with" on a later invocation (or
// "which roots have blobs at all" for cleanup) needs this plain-text
// lookup rather than re-deriving the hash. persist.KnownBlob documents the
// same need for §4.7's cleanup operation.
type manifestEntry struct {
	Root       string   `json:"root"`
	Extensions []string `json:"extensions"`
}

func manifestPath(baseDir string) string {
	return filepath.Join(baseDir, "manifest.json")
}

func readManifest(baseDir string) (map[string]manifestEntry, error) {
	data, err := os.ReadFile(manifestPath(baseDir))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]manifestEntry{}, nil
		}
		return nil, err
	}
	var m map[string]manifestEntry
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]manifestEntry{}, nil
	}
	return m, nil
}

func writeManifest(baseDir string, m map[string]manifestEntry) error {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(manifestPath(baseDir), data, 0o644)
}

// loadManifest returns the extensions set a prior build recorded for
// canonicalRoot, if any.
func loadManifest(baseDir, canonicalRoot string) ([]string, bool) {
	m, err := readManifest(baseDir)
	if err != nil {
		return nil, false
	}
	e, ok := m[canonicalRoot]
	if !ok {
		return nil, false
	}
	return e.Extensions, true
}

// saveManifest records canonicalRoot's extensions set after a build.
func saveManifest(baseDir, canonicalRoot string, extensions []string) error {
	m, err := readManifest(baseDir)
	if err != nil {
		m = map[string]manifestEntry{}
	}
	m[canonicalRoot] = manifestEntry{Root: canonicalRoot, Extensions: append([]string(nil), extensions...)}
	return writeManifest(baseDir, m)
}

// knownBlobs projects the manifest into persist.Cleanup's input shape: one
// entry per (content, definition) blob path for every recorded root.
func knownBlobs(baseDir string) ([]persist.KnownBlob, error) {
	m, err := readManifest(baseDir)
	if err != nil {
		return nil, err
	}
	roots := make([]string, 0, len(m))
	for r := range m {
		roots = append(roots, r)
	}
	sort.Strings(roots)

	var blobs []persist.KnownBlob
	for _, root := range roots {
		e := m[root]
		csv := strings.Join(e.Extensions, ",")
		blobs = append(blobs,
			persist.KnownBlob{Path: persist.KeyPath(baseDir, root, csv, persist.PurposeContent), Root: root},
			persist.KnownBlob{Path: persist.KeyPath(baseDir, root, csv, persist.PurposeDefinition), Root: root},
		)
	}
	return blobs, nil
}

// removeManifestEntries drops roots from the manifest whose blobs were
// removed by cleanup, so a later build recomputes a fresh entry rather than
// pointing at a deleted blob.
func removeManifestEntries(baseDir string, roots []string) error {
	m, err := readManifest(baseDir)
	if err != nil {
		return err
	}
	for _, r := range roots {
		delete(m, r)
	}
	return writeManifest(baseDir, m)
}
