// Package query implements §4.8's façade contract: a stateless set of
// handlers exposing §4.3-4.6's grep, definition-lookup, and call-graph
// operations over a content/definition index pair. Handlers acquire read
// locks only and never mutate; every response carries a Summary envelope
// (timing, truncation, staleness) alongside its payload, per §4.8.
//
// Context-free unit: pure read-side orchestration over *content.Index and
// *defindex.Index. The CLI (cmd/lci) and the MCP server (internal/mcpserver)
// both sit on top of this package rather than touching the indexes
// directly, so the two façades can never drift in filter/response shape.
package query

import (
	"fmt"
	"sort"
	"time"

	"github.com/codesift/codesift/internal/calltree"
	"github.com/codesift/codesift/internal/content"
	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/encoding"
	"github.com/codesift/codesift/internal/types"
	"github.com/codesift/codesift/pkg/pathutil"
)

// Summary is §4.8's envelope metadata, carried alongside every handler's
// payload.
type Summary struct {
	DurationMs int64
	Truncated  bool
	Stale      bool
	Warning    string
}

func newSummary(start time.Time) Summary {
	return Summary{DurationMs: time.Since(start).Milliseconds()}
}

// Handlers bundles the live index pair a façade call reads from. Root is
// used to render result paths relative to the project, per pathutil's
// internal/external representation split.
type Handlers struct {
	Content     *content.Index
	Definitions *defindex.Index
	Root        string
}

// New returns a façade over the given index pair.
func New(cidx *content.Index, didx *defindex.Index, root string) *Handlers {
	return &Handlers{Content: cidx, Definitions: didx, Root: root}
}

// pathOf resolves a FileID to its path via the content index's Files
// sequence (O(1) direct indexing), which is the authoritative file-id space
// both indexes share when built by the same driver run.
func (h *Handlers) pathOf(fid types.FileID) string {
	if h.Content == nil {
		return ""
	}
	if int(fid) < 0 || int(fid) >= len(h.Content.Files) {
		return ""
	}
	return h.Content.Files[fid].Path
}

// --- §4.4 grep ---

// GrepResponse wraps content.Grep's hits with the §4.8 envelope.
type GrepResponse struct {
	Hits    []content.GrepHit
	Summary Summary
}

// Grep implements the "search_grep"/"search_find" MCP tools and the CLI's
// grep/find subcommands (§4.4).
func (h *Handlers) Grep(req content.GrepRequest) (GrepResponse, error) {
	start := time.Now()
	if h.Content == nil {
		return GrepResponse{}, fmt.Errorf("query: no content index loaded")
	}
	h.Content.RLock()
	defer h.Content.RUnlock()

	hits, err := content.Grep(h.Content, req)
	if err != nil {
		return GrepResponse{}, err
	}

	if req.Ranking.Enabled && req.Ranking.RequireSymbol && h.Definitions != nil {
		h.Definitions.RLock()
		for i := range hits {
			if len(h.Definitions.FileIndex[hits[i].FileID]) == 0 {
				hits[i].Score += req.Ranking.NonSymbolPenalty
			}
		}
		h.Definitions.RUnlock()
		sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	}

	sum := newSummary(start)
	sum.Stale = h.Content.Stale()
	if req.MaxResults > 0 && len(hits) == req.MaxResults {
		sum.Truncated = true
	}
	return GrepResponse{Hits: hits, Summary: sum}, nil
}

// --- §4.5 definitions ---

// DefinitionHit is one definition-query match, enriched with its file path
// and a compact base-63 display ID (SPEC_FULL addition grounded on
// internal/encoding's id-compaction scheme, which the teacher carries for
// user-facing identifiers).
type DefinitionHit struct {
	ID        string
	Def       types.Definition
	Path      string
	Body      []string
	BodyWarn  string
	BodyError string
}

// FindOptions carries §4.5's includeBody controls alongside the filter.
type FindOptions struct {
	IncludeBody     bool
	MaxBodyLines    int
	MaxTotalLines   int
}

// FindResponse wraps the definition query's matches.
type FindResponse struct {
	Hits    []DefinitionHit
	Summary Summary
}

// Find implements §4.5's definition query, including the on-demand
// includeBody file reads with the global per-request line budget.
func (h *Handlers) Find(f defindex.Filter, opts FindOptions) (FindResponse, error) {
	start := time.Now()
	if h.Definitions == nil {
		return FindResponse{}, fmt.Errorf("query: no definition index loaded")
	}
	if h.Content != nil {
		h.Content.RLock()
		defer h.Content.RUnlock()
	}
	h.Definitions.RLock()
	defer h.Definitions.RUnlock()

	idxs, err := h.Definitions.Find(f, h.pathOf)
	if err != nil {
		return FindResponse{}, err
	}

	sum := newSummary(start)
	sum.Stale = h.Definitions.Stale()

	remaining := opts.MaxTotalLines // 0 means unbounded
	cache := defindex.NewBodyCache()
	hits := make([]DefinitionHit, 0, len(idxs))
	for _, i := range idxs {
		d, _ := h.Definitions.DefLocked(i)
		absPath := h.pathOf(d.FileID)
		hit := DefinitionHit{
			ID:  encoding.EncodeID(uint64(i)),
			Def: d,
			// Display path is root-relative; file reads below stay absolute.
			Path: pathutil.ToRelative(absPath, h.Root),
		}
		if opts.IncludeBody && (opts.MaxTotalLines <= 0 || remaining > 0) {
			maxLines := opts.MaxBodyLines
			if opts.MaxTotalLines > 0 && (maxLines <= 0 || remaining < maxLines) {
				maxLines = remaining
			}
			body := cache.ReadBody(absPath, d.LineStart, d.LineEnd, maxLines, h.Definitions.CreatedAt.Unix())
			hit.Body = body.Lines
			hit.BodyWarn = body.BodyWarning
			hit.BodyError = body.BodyError
			if opts.MaxTotalLines > 0 {
				remaining -= len(body.Lines)
			}
		} else if opts.IncludeBody {
			sum.Truncated = true
		}
		hits = append(hits, hit)
	}
	return FindResponse{Hits: hits, Summary: sum}, nil
}

// AuditResponse wraps §4.5's audit=true overview.
type AuditResponse struct {
	Report  defindex.AuditReport
	Summary Summary
}

// Audit implements §4.5's audit=true overview query.
func (h *Handlers) Audit() (AuditResponse, error) {
	start := time.Now()
	if h.Definitions == nil {
		return AuditResponse{}, fmt.Errorf("query: no definition index loaded")
	}
	if h.Content != nil {
		h.Content.RLock()
		defer h.Content.RUnlock()
	}
	h.Definitions.RLock()
	defer h.Definitions.RUnlock()
	report := h.Definitions.Audit(h.pathOf)
	sum := newSummary(start)
	sum.Stale = h.Definitions.Stale()
	return AuditResponse{Report: report, Summary: sum}, nil
}

// --- §4.6 call graph ---

// TreeResponse wraps a built caller/callee tree.
type TreeResponse struct {
	Result  calltree.Result
	Summary Summary
}

// Callers implements §4.6's caller-tree builder (direction = up).
func (h *Handlers) Callers(req calltree.Request) (TreeResponse, error) {
	start := time.Now()
	if h.Content == nil || h.Definitions == nil {
		return TreeResponse{}, fmt.Errorf("query: caller tree requires both content and definition indexes")
	}
	h.Content.RLock()
	defer h.Content.RUnlock()
	h.Definitions.RLock()
	defer h.Definitions.RUnlock()

	res := calltree.BuildCallerTree(h.Content, h.Definitions, h.pathOf, req)
	sum := newSummary(start)
	sum.Truncated = res.Truncated
	sum.Stale = h.Definitions.Stale() || h.Content.Stale()
	sum.Warning = res.AmbiguityWarning
	return TreeResponse{Result: res, Summary: sum}, nil
}

// Callees implements §4.6's callee-tree builder (direction = down).
func (h *Handlers) Callees(req calltree.Request) (TreeResponse, error) {
	start := time.Now()
	if h.Definitions == nil {
		return TreeResponse{}, fmt.Errorf("query: no definition index loaded")
	}
	if h.Content != nil {
		h.Content.RLock()
		defer h.Content.RUnlock()
	}
	h.Definitions.RLock()
	defer h.Definitions.RUnlock()

	res := calltree.BuildCalleeTree(h.Definitions, h.pathOf, req)
	sum := newSummary(start)
	sum.Truncated = res.Truncated
	sum.Stale = h.Definitions.Stale()
	sum.Warning = res.AmbiguityWarning
	return TreeResponse{Result: res, Summary: sum}, nil
}

// --- info ---

// InfoResponse is the "search_info"/"info" CLI surface: a snapshot of both
// indexes' sizes and staleness, per §4.8/§6.
type InfoResponse struct {
	Root              string
	FileCount         int
	TotalTokens       int
	DefinitionCount   int
	ParseErrors       int
	LossyFileCount    int
	ContentCreatedAt  time.Time
	ContentStale      bool
	DefIndexCreatedAt time.Time
	DefIndexStale     bool
}

// Info reports a snapshot of both indexes, for the CLI "info" command and
// the "search_info" MCP tool.
func (h *Handlers) Info() InfoResponse {
	resp := InfoResponse{Root: h.Root}
	if h.Content != nil {
		h.Content.RLock()
		resp.FileCount = h.Content.FileCountLocked()
		resp.TotalTokens = h.Content.TotalTokens
		resp.ContentCreatedAt = h.Content.CreatedAt
		resp.ContentStale = h.Content.Stale()
		h.Content.RUnlock()
	}
	if h.Definitions != nil {
		h.Definitions.RLock()
		resp.DefinitionCount = len(h.Definitions.Definitions)
		resp.ParseErrors = h.Definitions.ParseErrors
		resp.LossyFileCount = h.Definitions.LossyFileCount
		resp.DefIndexCreatedAt = h.Definitions.CreatedAt
		resp.DefIndexStale = h.Definitions.Stale()
		h.Definitions.RUnlock()
	}
	return resp
}
