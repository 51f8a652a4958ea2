package content

import (
	"os"
	"runtime"
	"sort"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/codesift/codesift/internal/tokenizer"
	"github.com/codesift/codesift/internal/types"
)

// BuildResult is returned by Build alongside the merged Index.
type BuildResult struct {
	LossyFileCount int
}

// shard is one worker's partial output over its slice of paths (§4.3).
type shard struct {
	files       []FileRecord
	tokenCounts []int
	inverted    map[string][]types.Posting // local fileID (shard-relative) postings
	lossy       int
}

// Build walks paths (already filtered by the caller's walker/exclude rules)
// and produces a merged Index. nWorkers <= 0 means runtime.GOMAXPROCS(0).
func Build(paths []string, nWorkers int, watchMode bool, minTokenLen int) (*Index, BuildResult, error) {
	if nWorkers <= 0 {
		nWorkers = runtime.GOMAXPROCS(0)
	}
	if nWorkers > len(paths) && len(paths) > 0 {
		nWorkers = len(paths)
	}
	if nWorkers < 1 {
		nWorkers = 1
	}

	chunks := chunkPaths(paths, nWorkers)
	shards := make([]*shard, len(chunks))

	var g errgroup.Group
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			s, err := buildShard(chunk, minTokenLen)
			if err != nil {
				return err
			}
			shards[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, BuildResult{}, err
	}

	idx, res := mergeShards(shards, watchMode)
	return idx, res, nil
}

func chunkPaths(paths []string, n int) [][]string {
	if n <= 1 || len(paths) == 0 {
		return [][]string{paths}
	}
	chunks := make([][]string, n)
	per := (len(paths) + n - 1) / n
	for i := 0; i < n; i++ {
		lo := i * per
		if lo >= len(paths) {
			chunks[i] = nil
			continue
		}
		hi := lo + per
		if hi > len(paths) {
			hi = len(paths)
		}
		chunks[i] = paths[lo:hi]
	}
	return chunks
}

func buildShard(paths []string, minTokenLen int) (*shard, error) {
	s := &shard{inverted: make(map[string][]types.Posting)}
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			// A single unreadable file does not fail the build (§7 IOError:
			// "reports the error path and continues if it is for one file
			// within a batch"); it is simply skipped from the index.
			continue
		}
		text := string(raw)
		lossy := false
		if !utf8.ValidString(text) {
			text = toValidUTF8Lossy(raw)
			lossy = true
		}
		fid := types.FileID(len(s.files))
		count := indexFileIntoShard(s, fid, text, minTokenLen)
		s.files = append(s.files, FileRecord{Path: p, TokenCount: count})
		s.tokenCounts = append(s.tokenCounts, count)
		if lossy {
			s.lossy++
		}
	}
	return s, nil
}

func indexFileIntoShard(s *shard, fid types.FileID, text string, minTokenLen int) int {
	lineStart := 0
	lineNo := 1
	total := 0
	// perFileLines tracks, for this file only, which lines a token occurred on
	// so the posting gets a sorted-unique line list rather than duplicates.
	perFileLines := make(map[string][]int)
	flush := func(line string, n int) {
		toks := tokenizer.Scan(line, minTokenLen)
		total += len(toks)
		for _, t := range toks {
			lines := perFileLines[t.Text]
			if len(lines) == 0 || lines[len(lines)-1] != n {
				perFileLines[t.Text] = append(lines, n)
			}
		}
	}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			flush(text[lineStart:i], lineNo)
			lineStart = i + 1
			lineNo++
		}
	}
	if lineStart < len(text) {
		flush(text[lineStart:], lineNo)
	}

	for tok, lines := range perFileLines {
		s.inverted[tok] = append(s.inverted[tok], types.Posting{FileID: fid, Lines: lines})
	}
	return total
}

// toValidUTF8Lossy replaces invalid byte sequences with the Unicode
// replacement character (§4.2 "lossy decode").
func toValidUTF8Lossy(raw []byte) string {
	out := make([]rune, 0, len(raw))
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		out = append(out, r)
		i += size
	}
	return string(out)
}

// mergeShards performs the deterministic merge of §4.3: concatenate files,
// concatenate token counts in the same order, coalesce postings per
// (token, file_id), then sort each posting list by file_id.
func mergeShards(shards []*shard, watchMode bool) (*Index, BuildResult) {
	idx := New(watchMode)
	res := BuildResult{}

	offsets := make([]types.FileID, len(shards))
	var cur types.FileID
	for i, s := range shards {
		offsets[i] = cur
		if s == nil {
			continue
		}
		idx.Files = append(idx.Files, s.files...)
		for _, c := range s.tokenCounts {
			idx.TotalTokens += c
		}
		res.LossyFileCount += s.lossy
		cur += types.FileID(len(s.files))
	}

	for i, s := range shards {
		if s == nil {
			continue
		}
		off := offsets[i]
		for tok, postings := range s.inverted {
			for _, p := range postings {
				global := types.Posting{FileID: p.FileID + off, Lines: p.Lines}
				idx.Inverted[tok] = insertPostingSorted(idx.Inverted[tok], global)
			}
		}
	}

	for tok, postings := range idx.Inverted {
		sort.Slice(postings, func(i, j int) bool { return postings[i].FileID < postings[j].FileID })
		idx.Inverted[tok] = postings
	}

	if watchMode {
		for fid, rec := range idx.Files {
			if rec.TokenCount == 0 {
				continue
			}
			idx.PathToID[rec.Path] = types.FileID(fid)
		}
		for tok, postings := range idx.Inverted {
			for _, p := range postings {
				if idx.Forward[p.FileID] == nil {
					idx.Forward[p.FileID] = make(map[string]struct{})
				}
				idx.Forward[p.FileID][tok] = struct{}{}
			}
		}
	}

	idx.MarkTrigramDirty()
	return idx, res
}
