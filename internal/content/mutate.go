package content

import (
	"github.com/codesift/codesift/internal/tokenizer"
	"github.com/codesift/codesift/internal/types"
)

// RemoveFilePath implements §4.9's "for each removed path" step: subtract
// the file's tokens from total_tokens, zero its count, drop every posting
// referencing it (located via the forward index), and drop the forward/
// path_to_id entries. The file's entry in Files remains as a tombstone so
// its FileID stays valid. Requires WatchMode (the forward index). Callers
// must hold the write lock.
func (idx *Index) RemoveFilePath(path string) (types.FileID, bool) {
	fid, ok := idx.PathToID[path]
	if !ok {
		return 0, false
	}
	idx.removeFileTokens(fid)
	delete(idx.Forward, fid)
	delete(idx.PathToID, path)
	return fid, true
}

func (idx *Index) removeFileTokens(fid types.FileID) {
	if int(fid) >= len(idx.Files) {
		return
	}
	rec := idx.Files[fid]
	idx.TotalTokens -= rec.TokenCount
	idx.Files[fid].TokenCount = 0

	for tok := range idx.Forward[fid] {
		postings := idx.Inverted[tok]
		filtered := postings[:0]
		for _, p := range postings {
			if p.FileID != fid {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			delete(idx.Inverted, tok)
		} else {
			idx.Inverted[tok] = filtered
		}
	}
}

// UpsertFilePath implements §4.9's "for each dirty path" step: if the path
// already has a fid, its old tokens are removed first; otherwise a new fid
// is assigned. The file is then re-tokenized and re-inserted. Requires
// WatchMode. Callers must hold the write lock; MarkTrigramDirty is called
// for the caller's batch to trigger lazily on the next substring query.
func (idx *Index) UpsertFilePath(path, text string, minTokenLen int) types.FileID {
	var fid types.FileID
	if existing, ok := idx.PathToID[path]; ok {
		idx.removeFileTokens(existing)
		fid = existing
	} else {
		fid = types.FileID(len(idx.Files))
		idx.Files = append(idx.Files, FileRecord{Path: path})
	}

	perFileLines := make(map[string][]int)
	lineStart := 0
	lineNo := 1
	total := 0
	flush := func(line string, n int) {
		for _, t := range tokenizer.Scan(line, minTokenLen) {
			lines := perFileLines[t.Text]
			if len(lines) == 0 || lines[len(lines)-1] != n {
				perFileLines[t.Text] = append(lines, n)
			}
			total++
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

	forward := make(map[string]struct{}, len(perFileLines))
	for tok, lines := range perFileLines {
		idx.Inverted[tok] = insertPostingSorted(idx.Inverted[tok], types.Posting{FileID: fid, Lines: lines})
		forward[tok] = struct{}{}
	}

	idx.Files[fid] = FileRecord{Path: path, TokenCount: total}
	idx.TotalTokens += total
	idx.PathToID[path] = fid
	idx.Forward[fid] = forward
	idx.MarkTrigramDirty()
	return fid
}
