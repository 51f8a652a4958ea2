package content

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/codesift/codesift/internal/tokenizer"
	"github.com/codesift/codesift/internal/types"
)

// GrepRequest is the input to Grep (§4.4 "Content Query: grep").
type GrepRequest struct {
	Terms        []string // comma-separated term list, already split by the caller
	Regex        bool
	And          bool // AND vs OR across terms
	Phrase       bool
	Extensions   []string // filter, case-insensitive, matched against file extension
	ExcludeDirs  []string
	ExcludeFiles []string
	ContextLines int
	MaxResults   int
	Stem         bool            // expand each term to every token sharing its porter2 stem (§4.4, opt-in)
	Ranking      FileTypeRanking // optional file-type score boost/penalty (§4.4, opt-in)
}

// GrepHit is one matched file with its score and matched line numbers.
type GrepHit struct {
	FileID       types.FileID
	Path         string
	Score        float64
	TermsMatched int
	Lines        []int
}

// Grep implements §4.4. Callers must hold at least an RLock on idx for the
// duration of this call (handlers acquire it, per §4.8).
func Grep(idx *Index, req GrepRequest) ([]GrepHit, error) {
	if req.Phrase {
		return grepPhrase(idx, req)
	}
	return grepTokens(idx, req)
}

func grepTokens(idx *Index, req GrepRequest) ([]GrepHit, error) {
	if len(req.Terms) == 0 {
		return nil, fmt.Errorf("grep: empty term list")
	}

	totalDocs := 0
	for _, f := range idx.Files {
		if f.TokenCount > 0 {
			totalDocs++
		}
	}
	if totalDocs == 0 {
		return nil, nil
	}

	type acc struct {
		score        float64
		termsMatched int
		lines        map[int]struct{}
	}
	accum := make(map[types.FileID]*acc)

	matchTerm := func(term string) ([]string, error) {
		if req.Regex {
			re, err := regexp.Compile("(?i)^" + term + "$")
			if err != nil {
				return nil, fmt.Errorf("grep: invalid regex %q: %w", term, err)
			}
			var matched []string
			for tok := range idx.Inverted {
				if re.MatchString(tok) {
					matched = append(matched, tok)
				}
			}
			return matched, nil
		}
		tok := tokenizer.Normalize(term)
		if !req.Stem {
			return []string{tok}, nil
		}
		si := idx.StemIndex()
		if sameStem := si[stem(tok, idx.StemMinLen)]; len(sameStem) > 0 {
			return sameStem, nil
		}
		return []string{tok}, nil
	}

	for _, rawTerm := range req.Terms {
		toks, err := matchTerm(rawTerm)
		if err != nil {
			return nil, err
		}
		for _, tok := range toks {
			postings := idx.Inverted[tok]
			if len(postings) == 0 {
				continue
			}
			df := len(postings)
			idf := math.Log(float64(totalDocs) / float64(df))
			for _, p := range postings {
				rec := idx.Files[p.FileID]
				if rec.TokenCount == 0 {
					continue
				}
				if !passesFilters(rec.Path, req.Extensions, req.ExcludeDirs, req.ExcludeFiles) {
					continue
				}
				a, ok := accum[p.FileID]
				if !ok {
					a = &acc{lines: make(map[int]struct{})}
					accum[p.FileID] = a
				}
				tf := float64(len(p.Lines)) / float64(rec.TokenCount)
				a.score += tf * idf
				a.termsMatched++
				for _, l := range p.Lines {
					a.lines[l] = struct{}{}
				}
			}
		}
	}

	hits := make([]GrepHit, 0, len(accum))
	for fid, a := range accum {
		if req.And && a.termsMatched < len(req.Terms) {
			continue
		}
		lines := make([]int, 0, len(a.lines))
		for l := range a.lines {
			lines = append(lines, l)
		}
		sort.Ints(lines)
		path := idx.Files[fid].Path
		hits = append(hits, GrepHit{
			FileID:       fid,
			Path:         path,
			Score:        a.score + fileTypeAdjustment(path, req.Ranking),
			TermsMatched: a.termsMatched,
			Lines:        lines,
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if req.MaxResults > 0 && len(hits) > req.MaxResults {
		hits = hits[:req.MaxResults]
	}
	return hits, nil
}

func grepPhrase(idx *Index, req GrepRequest) ([]GrepHit, error) {
	phrase := strings.Join(req.Terms, " ")
	toks := tokenizer.ScanWords(phrase, tokenizer.DefaultMinLength)
	if len(toks) == 0 {
		return nil, fmt.Errorf("grep: empty phrase")
	}

	var candidateSets [][]types.FileID
	for _, tok := range toks {
		postings := idx.Inverted[tok]
		ids := make([]types.FileID, 0, len(postings))
		for _, p := range postings {
			ids = append(ids, p.FileID)
		}
		candidateSets = append(candidateSets, ids)
	}

	candidates := intersectFileIDs(candidateSets)
	if len(candidates) == 0 {
		return nil, nil
	}

	escaped := make([]string, len(toks))
	for i, t := range toks {
		escaped[i] = regexp.QuoteMeta(t)
	}
	phraseRe, err := regexp.Compile("(?i)" + strings.Join(escaped, `\s+`))
	if err != nil {
		return nil, fmt.Errorf("grep: phrase regex build failed: %w", err)
	}

	var hits []GrepHit
	for _, fid := range candidates {
		rec := idx.Files[fid]
		if rec.TokenCount == 0 {
			continue
		}
		if !passesFilters(rec.Path, req.Extensions, req.ExcludeDirs, req.ExcludeFiles) {
			continue
		}
		lines, err := matchingLinesInFile(rec.Path, phraseRe)
		if err != nil || len(lines) == 0 {
			continue
		}
		hits = append(hits, GrepHit{FileID: fid, Path: rec.Path, Lines: lines, TermsMatched: len(toks)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Path < hits[j].Path })
	if req.MaxResults > 0 && len(hits) > req.MaxResults {
		hits = hits[:req.MaxResults]
	}
	return hits, nil
}

func intersectFileIDs(sets [][]types.FileID) []types.FileID {
	if len(sets) == 0 {
		return nil
	}
	present := make(map[types.FileID]int)
	for _, set := range sets {
		seen := make(map[types.FileID]struct{}, len(set))
		for _, fid := range set {
			if _, dup := seen[fid]; dup {
				continue
			}
			seen[fid] = struct{}{}
			present[fid]++
		}
	}
	var out []types.FileID
	for fid, n := range present {
		if n == len(sets) {
			out = append(out, fid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func passesFilters(path string, exts, excludeDirs, excludeFiles []string) bool {
	lp := strings.ToLower(path)
	if len(exts) > 0 {
		ok := false
		for _, e := range exts {
			e = strings.ToLower(strings.TrimPrefix(e, "."))
			if strings.HasSuffix(lp, "."+e) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, d := range excludeDirs {
		if d != "" && strings.Contains(lp, strings.ToLower(d)) {
			return false
		}
	}
	for _, f := range excludeFiles {
		if f != "" && strings.Contains(lp, strings.ToLower(f)) {
			return false
		}
	}
	return true
}
