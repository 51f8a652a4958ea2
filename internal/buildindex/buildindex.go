// Package buildindex is the build driver: walk the tree, build the content
// index in parallel, parse every definition-bearing file and fold the
// results into a definition index. Build returns both indexes without
// saving them; persisting them is left to the caller. Grounded on the
// teacher's own indexing pipeline for the "parallel worker pool, single
// integrator" shape, rebuilt against content.Build/defindex.AddFile instead
// of the teacher's symbol pipeline.
//
// External deps: golang.org/x/sync/errgroup (teacher's own parallelism
// primitive, reused here for the parse stage exactly as content.Build
// already uses it for tokenization).
package buildindex

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/codesift/codesift/internal/config"
	"github.com/codesift/codesift/internal/content"
	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/parser"
	"github.com/codesift/codesift/internal/types"
	"github.com/codesift/codesift/internal/walk"
)

// Result summarizes one full build for the CLI/MCP "info" surface.
type Result struct {
	FileCount      int
	DefCount       int
	ParseErrors    int
	LossyFileCount int
}

// parseOutcome is one file's parse result or error, produced by a worker and
// consumed by the single integrator goroutine in file order.
type parseOutcome struct {
	path   string
	fileID types.FileID
	res    *parser.Result
	size   int64
	lossy  bool
	err    error
}

// Build discovers files under root per cfg, builds the content index (all
// discovered files, §4.1) and the definition index (only files with a
// registered parser, §4.2), and returns both alongside a summary. nWorkers
// <= 0 defers to content.Build's own GOMAXPROCS default for tokenization;
// parsing uses the same worker count.
func Build(root string, cfg *config.Config, p *parser.TreeSitterParser, nWorkers int) (*content.Index, *defindex.Index, Result, error) {
	files, err := walk.Scan(root, cfg)
	if err != nil {
		return nil, nil, Result{}, err
	}
	paths := walk.Paths(files)

	cidx, cres, err := content.Build(paths, nWorkers, cfg.Index.WatchMode, 2)
	if err != nil {
		return nil, nil, Result{}, err
	}
	cidx.Extensions = sortedExtensions(paths)
	cidx.MaxAgeSecs = cfg.Persist.MaxAgeSecs
	cidx.StemEnabled = cfg.Search.Stem
	cidx.StemMinLen = cfg.Semantic.MinStemLength

	didx := defindex.New()
	didx.MaxAgeSecs = cfg.Persist.MaxAgeSecs

	// pathToFileID mirrors content.Build's deterministic file ordering so a
	// parsed definition's FileID lines up with the content index's FileID
	// for the same path, keeping cross-index references (e.g. grep
	// results that also carry definitions) consistent.
	pathToFileID := make(map[string]types.FileID, len(cidx.Files))
	for fid, rec := range cidx.Files {
		pathToFileID[rec.Path] = types.FileID(fid)
	}

	parseable := make([]string, 0, len(paths))
	for _, path := range paths {
		if p.Supports(strings.ToLower(filepath.Ext(path))) {
			parseable = append(parseable, path)
		}
	}

	outcomes := parseAll(parseable, pathToFileID, nWorkers)
	didx.Lock()
	for _, o := range outcomes {
		if o.lossy {
			didx.RecordLossyFile()
		}
		if o.err != nil {
			didx.RecordParseError()
			continue
		}
		if len(o.res.Defs) == 0 {
			didx.RecordEmptyFile(o.fileID, o.size)
			continue
		}
		didx.AddFile(o.fileID, o.path, o.res)
	}
	didx.Unlock()

	res := Result{
		FileCount:      len(cidx.Files),
		DefCount:       len(didx.Definitions),
		ParseErrors:    didx.ParseErrors,
		LossyFileCount: cres.LossyFileCount,
	}
	return cidx, didx, res, nil
}

// parseAll parses every path and returns outcomes in path order, so
// AddFile's global DefID assignment is deterministic across runs — matching
// the content index's "deterministic merge" invariant (§4.3) for the
// definition index as well.
//
// Per TreeSitterParser's documented concurrency contract ("the build driver
// creates one TreeSitterParser per worker goroutine"), each worker gets its
// own parser instance rather than sharing the caller's; a tree-sitter
// Parser is not safe for concurrent Parse calls.
func parseAll(paths []string, pathToFileID map[string]types.FileID, nWorkers int) []parseOutcome {
	if nWorkers <= 0 {
		nWorkers = runtime.GOMAXPROCS(0)
	}
	if nWorkers > len(paths) && len(paths) > 0 {
		nWorkers = len(paths)
	}
	if nWorkers < 1 {
		nWorkers = 1
	}

	outcomes := make([]parseOutcome, len(paths))
	chunks := chunkIndices(len(paths), nWorkers)

	var g errgroup.Group
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			worker := parser.NewTreeSitterParser()
			for _, i := range chunk {
				path := paths[i]
				fileID, ok := pathToFileID[path]
				if !ok {
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					outcomes[i] = parseOutcome{path: path, fileID: fileID, err: err}
					continue
				}
				size := int64(len(data))
				lossy := false
				if !utf8.Valid(data) {
					data = []byte(strings.ToValidUTF8(string(data), "�"))
					lossy = true
				}
				res, perr := worker.Parse(strings.ToLower(filepath.Ext(path)), data, fileID)
				outcomes[i] = parseOutcome{path: path, fileID: fileID, res: res, size: size, lossy: lossy, err: perr}
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// sortedExtensions returns the sorted, deduplicated set of file extensions
// among paths, the "sorted_extensions_csv" persistence-key component of
// §4.3/§4.7 so that a root indexed with a different file-type mix never
// collides with (or silently reuses) another root's blob.
func sortedExtensions(paths []string) []string {
	seen := make(map[string]struct{})
	for _, p := range paths {
		ext := strings.ToLower(filepath.Ext(p))
		if ext == "" {
			continue
		}
		seen[ext] = struct{}{}
	}
	exts := make([]string, 0, len(seen))
	for e := range seen {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}

func chunkIndices(n, workers int) [][]int {
	chunks := make([][]int, workers)
	per := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * per
		if lo >= n {
			continue
		}
		hi := lo + per
		if hi > n {
			hi = n
		}
		idx := make([]int, hi-lo)
		for i := range idx {
			idx[i] = lo + i
		}
		chunks[w] = idx
	}
	return chunks
}
