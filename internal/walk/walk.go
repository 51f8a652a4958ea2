// Package walk discovers the file set a build or rebuild should index: a
// recursive directory scan honoring Config.Include/Exclude doublestar glob
// patterns, optional .gitignore rules, a binary-extension filter, and the
// Index size/count guards (§4.1/§4.9's "files the content/definition index
// builders operate over").
//
// Grounded on the teacher's internal/indexing FileScanner (pattern
// pre-compilation, doublestar matching, gitignore integration) and
// BinaryDetector (extension + magic-number detection), adapted to this
// module's config and walk contract.
package walk

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codesift/codesift/internal/config"
)

// Result is one discovered file plus the data the caller needs without a
// second stat/read.
type Result struct {
	Path string // absolute, forward-slash normalized
	Size int64
}

// Scan walks root, returning every regular file that passes the include/
// exclude glob patterns, the optional .gitignore rules, the binary-extension
// filter (file contents are not inspected), and Config.Index's size guards.
// Paths are returned sorted, so builds are deterministic.
func Scan(root string, cfg *config.Config) ([]Result, error) {
	root = filepath.Clean(root)
	gi := loadGitignore(root, cfg)
	detector := NewBinaryDetector()

	var out []Result
	var totalBytes int64

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// A single unreadable directory entry does not fail the whole
			// scan (§7's "one bad file does not fail a batch" principle
			// applied to the walk itself).
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = normalizeSlashes(rel)

		if info.IsDir() {
			if path != root && isSkippedDir(rel) {
				return filepath.SkipDir
			}
			if cfg.Index.RespectGitignore && gi != nil && gi.ShouldIgnore(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 && !cfg.Index.FollowSymlinks {
			return nil
		}
		if cfg.Index.MaxFileSize > 0 && info.Size() > cfg.Index.MaxFileSize {
			return nil
		}
		if cfg.Index.RespectGitignore && gi != nil && gi.ShouldIgnore(rel, false) {
			return nil
		}
		if !passesGlobFilters(rel, cfg.Include, cfg.Exclude) {
			return nil
		}
		if detector.IsBinaryByExtension(path) {
			return nil
		}
		if cfg.Index.MaxFileCount > 0 && len(out) >= cfg.Index.MaxFileCount {
			return filepath.SkipAll
		}
		if cfg.Index.MaxTotalSizeMB > 0 && (totalBytes+info.Size()) > cfg.Index.MaxTotalSizeMB*1024*1024 {
			return nil
		}

		totalBytes += info.Size()
		out = append(out, Result{Path: normalizeSlashes(path), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Paths is a convenience wrapper returning just the path strings, the shape
// internal/content.Build and the definition-index build driver consume.
func Paths(results []Result) []string {
	paths := make([]string, len(results))
	for i, r := range results {
		paths[i] = r.Path
	}
	return paths
}

func loadGitignore(root string, cfg *config.Config) *config.GitignoreParser {
	if !cfg.Index.RespectGitignore {
		return nil
	}
	gi := config.NewGitignoreParser()
	if err := gi.LoadGitignore(root); err != nil {
		return nil
	}
	return gi
}

// skipDirNames are directories never worth descending into regardless of
// .gitignore state — version-control metadata, the tool's own index
// output directory, and the node_modules/bin/obj dependency and build-output
// directories. Other hidden directories are walked.
var skipDirNames = map[string]struct{}{
	".git": {}, ".hg": {}, ".svn": {}, ".lci": {},
	"node_modules": {}, "bin": {}, "obj": {},
}

func isSkippedDir(relPath string) bool {
	base := relPath
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		base = relPath[i+1:]
	}
	_, skip := skipDirNames[base]
	return skip
}

func passesGlobFilters(relPath string, include, exclude []string) bool {
	for _, pattern := range exclude {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
	}
	return false
}

func normalizeSlashes(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
