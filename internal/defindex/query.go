package defindex

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/codesift/codesift/internal/types"
)

// Filter carries §4.5's AND-composed definition-query filters.
type Filter struct {
	Name        string
	NameRegex   bool
	Kind        types.DefinitionKind
	HasKind     bool
	Parent      string
	Attribute   string
	BaseType    string
	File        string
	ExcludeDir  string
	ExcludeFile string
	ContainsLine int
	HasContainsLine bool
}

func normalizeSlashes(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// Find evaluates f against every live definition and returns matching
// indices. Callers must hold at least a read lock.
func (idx *Index) Find(f Filter, pathOf func(types.FileID) string) ([]int, error) {
	var nameRe *regexp.Regexp
	if f.Name != "" && f.NameRegex {
		re, err := regexp.Compile("(?i)" + f.Name)
		if err != nil {
			return nil, err
		}
		nameRe = re
	}

	candidates := idx.candidateSet(f)

	var out []int
	for _, i := range candidates {
		if i < 0 || i >= len(idx.Definitions) {
			continue
		}
		d := idx.Definitions[i]
		if d.Tombstone {
			continue
		}
		if !matchFilter(d, f, nameRe, pathOf) {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

// candidateSet narrows the scan using the cheapest available secondary index
// before falling back to a full scan, matching §4.5's AND semantics.
func (idx *Index) candidateSet(f Filter) []int {
	// Name is a substring filter (§4.5), so NameIndex's exact-key lookup
	// cannot narrow it; matchFilter does the contains check over the scan.
	switch {
	case f.HasKind:
		return idx.KindIndex[f.Kind]
	case f.Attribute != "":
		return idx.AttributeIndex[strings.ToLower(f.Attribute)]
	case f.BaseType != "":
		return idx.BaseTypeIndex[normalizeBaseType(f.BaseType)]
	default:
		all := make([]int, len(idx.Definitions))
		for i := range all {
			all[i] = i
		}
		return all
	}
}

func matchFilter(d types.Definition, f Filter, nameRe *regexp.Regexp, pathOf func(types.FileID) string) bool {
	if f.Name != "" {
		if f.NameRegex {
			if nameRe != nil && !nameRe.MatchString(d.Name) {
				return false
			}
		} else if !strings.Contains(strings.ToLower(d.Name), strings.ToLower(f.Name)) {
			return false
		}
	}
	if f.HasKind && d.Kind != f.Kind {
		return false
	}
	if f.Parent != "" && !strings.EqualFold(d.Parent, f.Parent) {
		return false
	}
	if f.Attribute != "" {
		found := false
		for _, a := range d.Attributes {
			if strings.EqualFold(a, f.Attribute) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.BaseType != "" {
		found := false
		want := normalizeBaseType(f.BaseType)
		for _, b := range d.BaseTypes {
			if normalizeBaseType(b) == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	path := ""
	if pathOf != nil {
		path = normalizeSlashes(pathOf(d.FileID))
	}
	if f.File != "" && !strings.Contains(path, normalizeSlashes(f.File)) {
		return false
	}
	if f.ExcludeDir != "" && strings.Contains(path, normalizeSlashes(f.ExcludeDir)) {
		return false
	}
	if f.ExcludeFile != "" && strings.Contains(path, normalizeSlashes(f.ExcludeFile)) {
		return false
	}
	if f.HasContainsLine {
		if f.File == "" {
			return false
		}
		if !(d.LineStart <= f.ContainsLine && f.ContainsLine <= d.LineEnd) {
			return false
		}
	}
	return true
}

// FindContainingMethod implements §4.6's find_containing_method(file_id,
// line): the method-like definition in fileID whose [LineStart, LineEnd]
// contains line. When multiple nest (rare without lambdas as top-level
// defs), the narrowest span wins. Callers must hold at least a read lock.
func (idx *Index) FindContainingMethod(fileID types.FileID, line int) (int, bool) {
	best := -1
	bestSpan := 0
	for _, i := range idx.FileIndex[fileID] {
		d := idx.Definitions[i]
		if d.Tombstone || !d.Kind.IsMethodLike() {
			continue
		}
		if d.LineStart > line || line > d.LineEnd {
			continue
		}
		span := d.LineEnd - d.LineStart
		if best == -1 || span < bestSpan {
			best = i
			bestSpan = span
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// SuspiciousFile is one empty-file audit entry whose byte size exceeds the
// suspicion threshold despite yielding zero definitions (§4.5 audit=true).
type SuspiciousFile struct {
	FileID   types.FileID
	Path     string
	ByteSize int64
}

// AuditReport is §4.5's audit=true overview, enriched per SPEC_FULL with the
// per-file suspicious detail (byte size; parse-error text is not tracked per
// file by this index, only the aggregate counter).
type AuditReport struct {
	TotalFiles      int
	FilesWithDefs   int
	FilesWithoutDefs int
	ParseErrors     int
	LossyFileCount  int
	Suspicious      []SuspiciousFile
}

// SuspiciousByteThreshold is the minimum file size (bytes) for an
// empty-definitions file to be flagged suspicious (§4.5).
const SuspiciousByteThreshold = 256

// Audit computes the overview. Callers must hold at least a read lock.
func (idx *Index) Audit(pathOf func(types.FileID) string) AuditReport {
	withDefs := make(map[types.FileID]struct{})
	for fid, defs := range idx.FileIndex {
		if len(defs) > 0 {
			withDefs[fid] = struct{}{}
		}
	}

	report := AuditReport{
		FilesWithDefs:  len(withDefs),
		ParseErrors:    idx.ParseErrors,
		LossyFileCount: idx.LossyFileCount,
	}

	seen := make(map[types.FileID]struct{})
	for fid := range idx.FileIndex {
		seen[fid] = struct{}{}
	}
	for _, ef := range idx.EmptyFileIDs {
		seen[ef.FileID] = struct{}{}
		if ef.ByteSize > SuspiciousByteThreshold {
			path := ""
			if pathOf != nil {
				path = pathOf(ef.FileID)
			}
			report.Suspicious = append(report.Suspicious, SuspiciousFile{
				FileID: ef.FileID, Path: path, ByteSize: ef.ByteSize,
			})
		}
	}
	report.TotalFiles = len(seen)
	report.FilesWithoutDefs = report.TotalFiles - report.FilesWithDefs
	return report
}

// BodyResult is one includeBody=true payload for a single definition (§4.5).
type BodyResult struct {
	Lines       []string
	BodyWarning string
	BodyError   string
}

// fileContents is one file's cached read: its lines and modtime (or the read
// error), so a BodyCache never opens the same file twice in one request.
type fileContents struct {
	lines   []string
	modUnix int64
	err     error
}

func readFileContents(path string) fileContents {
	info, statErr := os.Stat(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fileContents{err: err}
	}
	fc := fileContents{lines: strings.Split(string(data), "\n")}
	if statErr == nil {
		fc.modUnix = info.ModTime().Unix()
	}
	return fc
}

func clampBody(fc fileContents, lineStart, lineEnd, maxBodyLines int, indexCreatedAtUnix int64) BodyResult {
	if fc.err != nil {
		return BodyResult{BodyError: fc.err.Error()}
	}
	lines := fc.lines
	if lineStart < 1 {
		lineStart = 1
	}
	if lineEnd > len(lines) {
		lineEnd = len(lines)
	}
	if lineStart > lineEnd {
		return BodyResult{}
	}
	body := lines[lineStart-1 : lineEnd]
	truncated := false
	if maxBodyLines > 0 && len(body) > maxBodyLines {
		body = body[:maxBodyLines]
		truncated = true
	}
	res := BodyResult{Lines: body}
	if truncated {
		res.BodyWarning = "truncated to " + strconv.Itoa(maxBodyLines) + " lines"
	}
	if fc.modUnix > indexCreatedAtUnix {
		res.BodyWarning = strings.TrimSpace(res.BodyWarning + " file modified since index build")
	}
	return res
}

// ReadBody implements §4.5's includeBody contract: clamp to
// [line_start, line_end], truncate to maxBodyLines, attach bodyWarning if the
// file mtime is newer than indexCreatedAt (a tie counts as fresh, §9 open
// question), bodyError if unreadable. It always reads the file fresh; a
// caller serving many definitions from the same file in one request should
// use BodyCache instead.
func ReadBody(path string, lineStart, lineEnd, maxBodyLines int, indexCreatedAtUnix int64) BodyResult {
	return clampBody(readFileContents(path), lineStart, lineEnd, maxBodyLines, indexCreatedAtUnix)
}

// BodyCache caches each file's read (lines + mtime) for the duration of one
// request, per §4.5 ("File reads are cached for the duration of one
// request"): a Find call with includeBody=true hitting several definitions
// in the same file reads and stats it only once.
type BodyCache struct {
	files map[string]fileContents
}

// NewBodyCache returns an empty per-request cache.
func NewBodyCache() *BodyCache {
	return &BodyCache{files: make(map[string]fileContents)}
}

// ReadBody is ReadBody's per-cache equivalent: the first call for a given
// path reads and stats the file; subsequent calls for the same path in the
// same cache reuse that read.
func (c *BodyCache) ReadBody(path string, lineStart, lineEnd, maxBodyLines int, indexCreatedAtUnix int64) BodyResult {
	fc, ok := c.files[path]
	if !ok {
		fc = readFileContents(path)
		c.files[path] = fc
	}
	return clampBody(fc, lineStart, lineEnd, maxBodyLines, indexCreatedAtUnix)
}
