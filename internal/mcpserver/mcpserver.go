// Package mcpserver exposes the query façade as the MCP tool surface:
// JSON-RPC 2.0 over stdio via github.com/modelcontextprotocol/go-sdk, one
// tool per façade operation. Each tool unmarshals its own params struct from
// the raw arguments and answers with a single JSON text-content block,
// setting IsError inside the result rather than failing the protocol call.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codesift/codesift/internal/buildindex"
	"github.com/codesift/codesift/internal/calltree"
	"github.com/codesift/codesift/internal/config"
	"github.com/codesift/codesift/internal/content"
	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/githist"
	"github.com/codesift/codesift/internal/parser"
	"github.com/codesift/codesift/internal/query"
	"github.com/codesift/codesift/internal/types"
	"github.com/codesift/codesift/internal/version"
	"github.com/codesift/codesift/pkg/pathutil"
)

// Server bundles the façade plus the state a "reindex" tool call must mutate
// in place: the running process's root/config so a fresh build can replace
// the live index pair without restarting the server.
type Server struct {
	Handlers *query.Handlers
	Root     string
	Cfg      *config.Config

	server *mcp.Server
}

// New returns an MCP tool surface over h.
func New(h *query.Handlers, root string, cfg *config.Config) *Server {
	return &Server{Handlers: h, Root: root, Cfg: cfg}
}

// Run registers every tool and serves JSON-RPC 2.0 over stdio until the
// client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "codesift",
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	grepSchema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"terms":        {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Search terms; each is one token unless regex or phrase mode is set"},
			"regex":        {Type: "boolean", Description: "Treat each term as a case-insensitive anchored regex over index tokens"},
			"and":          {Type: "boolean", Description: "Require every term to match in a file (default OR)"},
			"phrase":       {Type: "boolean", Description: "Match the terms as one literal whitespace-separated phrase"},
			"ext":          {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Restrict to these file extensions"},
			"excludeDir":   {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Case-insensitive path substrings to exclude"},
			"excludeFile":  {Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: "Case-insensitive file-name substrings to exclude"},
			"contextLines": {Type: "integer", Description: "Accepted but not applied: each hit lists matched line numbers only, without surrounding lines"},
			"maxResults":   {Type: "integer", Description: "Truncate to this many files"},
			"stem":         {Type: "boolean", Description: "Expand each term to tokens sharing its stem"},
		},
		Required: []string{"terms"},
	}

	s.server.AddTool(&mcp.Tool{
		Name:        "search_grep",
		Description: "Token/phrase search over the content index: TF-IDF ranked file hits with matched line numbers. Supports regex terms, AND/OR, phrase mode, extension and directory filters.",
		InputSchema: grepSchema,
	}, s.handleGrep(false))

	s.server.AddTool(&mcp.Tool{
		Name:        "search_find",
		Description: "Alias of search_grep kept for the CLI's 'find' verb: same token/phrase search over the content index.",
		InputSchema: grepSchema,
	}, s.handleGrep(false))

	s.server.AddTool(&mcp.Tool{
		Name:        "search_fast",
		Description: "Literal token search over the content index: no regex or phrase verification, lowest-latency path.",
		InputSchema: grepSchema,
	}, s.handleGrep(true))

	s.server.AddTool(&mcp.Tool{
		Name:        "search_definitions",
		Description: "Definition-table query: filter by name/regex, kind, parent, attribute, baseType, file, excludeDir/excludeFile, containsLine; includeBody reads source on demand. Set audit=true for an index health overview instead of matches.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name":              {Type: "string", Description: "Name substring, or regex when nameRegex is set"},
				"nameRegex":         {Type: "boolean"},
				"kind":              {Type: "string", Description: "Class, Interface, Method, Property, ... (case-insensitive)"},
				"parent":            {Type: "string", Description: "Enclosing type name, exact, case-insensitive"},
				"attribute":         {Type: "string", Description: "Attribute/decorator name, args stripped"},
				"baseType":          {Type: "string", Description: "Base class or implemented interface"},
				"file":              {Type: "string", Description: "Path substring, separator-insensitive"},
				"excludeDir":        {Type: "string"},
				"excludeFile":       {Type: "string"},
				"containsLine":      {Type: "integer", Description: "Select definitions whose span contains this 1-based line (with file)"},
				"includeBody":       {Type: "boolean"},
				"maxBodyLines":      {Type: "integer"},
				"maxTotalBodyLines": {Type: "integer"},
				"audit":             {Type: "boolean"},
			},
		},
	}, s.handleDefinitions)

	s.server.AddTool(&mcp.Tool{
		Name:        "search_callers",
		Description: "Call-graph tree builder. direction='up' walks callers of method/class (who calls this); direction='down' (default) walks callees (what this calls). Bounded by maxDepth/maxCallersPerLevel/maxTotalNodes.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"method":             {Type: "string"},
				"class":              {Type: "string", Description: "Optional; omitting it may produce an ambiguity warning"},
				"direction":          {Type: "string", Description: "'up' or 'down' (default)"},
				"maxDepth":           {Type: "integer"},
				"maxCallersPerLevel": {Type: "integer"},
				"maxTotalNodes":      {Type: "integer"},
				"ext":                {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"excludeDir":         {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
				"excludeFile":        {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			},
			Required: []string{"method"},
		},
	}, s.handleTree)

	s.server.AddTool(&mcp.Tool{
		Name:        "search_reindex_definitions",
		Description: "Rebuild the content and definition indexes from disk and install them, replacing the running server's in-memory state. Use after large out-of-band changes the watcher may have missed.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleReindex)

	s.server.AddTool(&mcp.Tool{
		Name:        "search_info",
		Description: "Snapshot of both indexes: file/definition counts, parse error and lossy-file counts, staleness.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleInfo)

	s.server.AddTool(&mcp.Tool{
		Name:        "search_git_history",
		Description: "Recent commit history for the project root (hash, author, timestamp, files touched). Independent of the content/definition indexes; shares only the blob codec.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"limit":   {Type: "integer", Description: "Maximum commits to report"},
				"refresh": {Type: "boolean", Description: "Bypass the persisted cache and re-run git log"},
			},
		},
	}, s.handleGitHistory)
}

// jsonResult marshals v into a single text-content block, per the
// "{content: [{type:\"text\", text: \"<JSON>\"}], isError: bool}" response
// contract.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}, nil
}

// errorResult reports a tool-level failure inside the result object with
// IsError set, not as a protocol-level error.
func errorResult(operation string, err error) (*mcp.CallToolResult, error) {
	payload := map[string]interface{}{
		"error":     err.Error(),
		"operation": operation,
	}
	b, merr := json.Marshal(payload)
	if merr != nil {
		return nil, merr
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
		IsError: true,
	}, nil
}

// --- search_grep / search_find / search_fast ---

// GrepParams mirrors the grep request shape as a JSON object.
type GrepParams struct {
	Terms        []string `json:"terms"`
	Regex        bool     `json:"regex,omitempty"`
	And          bool     `json:"and,omitempty"`
	Phrase       bool     `json:"phrase,omitempty"`
	Ext          []string `json:"ext,omitempty"`
	ExcludeDir   []string `json:"excludeDir,omitempty"`
	ExcludeFile  []string `json:"excludeFile,omitempty"`
	ContextLines int      `json:"contextLines,omitempty"`
	MaxResults   int      `json:"maxResults,omitempty"`
	Stem         bool     `json:"stem,omitempty"`
}

// rankingFromConfig adapts config.SearchRanking to content.FileTypeRanking.
// Kept at this MCP edge (mirroring cmd/lci's copy) so internal/content never
// imports internal/config.
func rankingFromConfig(r config.SearchRanking) content.FileTypeRanking {
	return content.FileTypeRanking{
		Enabled:          r.Enabled,
		CodeFileBoost:    r.CodeFileBoost,
		DocFilePenalty:   r.DocFilePenalty,
		ConfigFileBoost:  r.ConfigFileBoost,
		RequireSymbol:    r.RequireSymbol,
		NonSymbolPenalty: r.NonSymbolPenalty,
		ExtensionWeights: r.ExtensionWeights,
	}
}

// handleGrep serves the token/phrase tools and the fast literal tool; fast
// forces regex and phrase off so every term goes straight down the posting
// list path.
func (s *Server) handleGrep(fast bool) func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var a GrepParams
		if err := json.Unmarshal(req.Params.Arguments, &a); err != nil {
			return errorResult("search_grep", fmt.Errorf("invalid parameters: %w", err))
		}
		greq := content.GrepRequest{
			Terms:        a.Terms,
			Regex:        a.Regex && !fast,
			And:          a.And,
			Phrase:       a.Phrase && !fast,
			Extensions:   a.Ext,
			ExcludeDirs:  a.ExcludeDir,
			ExcludeFiles: a.ExcludeFile,
			ContextLines: a.ContextLines,
			MaxResults:   a.MaxResults,
			Stem:         a.Stem || s.Cfg.Search.Stem,
			Ranking:      rankingFromConfig(s.Cfg.Search.Ranking),
		}
		resp, err := s.Handlers.Grep(greq)
		if err != nil {
			return errorResult("search_grep", err)
		}
		return jsonResult(resp)
	}
}

// --- search_definitions ---

// DefinitionParams mirrors the definition filter plus its includeBody
// controls and the audit=true overview switch.
type DefinitionParams struct {
	Name          string `json:"name,omitempty"`
	NameRegex     bool   `json:"nameRegex,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Parent        string `json:"parent,omitempty"`
	Attribute     string `json:"attribute,omitempty"`
	BaseType      string `json:"baseType,omitempty"`
	File          string `json:"file,omitempty"`
	ExcludeDir    string `json:"excludeDir,omitempty"`
	ExcludeFile   string `json:"excludeFile,omitempty"`
	ContainsLine  *int   `json:"containsLine,omitempty"`
	IncludeBody   bool   `json:"includeBody,omitempty"`
	MaxBodyLines  int    `json:"maxBodyLines,omitempty"`
	MaxTotalLines int    `json:"maxTotalBodyLines,omitempty"`
	Audit         bool   `json:"audit,omitempty"`
}

func (s *Server) handleDefinitions(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a DefinitionParams
	if err := json.Unmarshal(req.Params.Arguments, &a); err != nil {
		return errorResult("search_definitions", fmt.Errorf("invalid parameters: %w", err))
	}

	if a.Audit {
		resp, err := s.Handlers.Audit()
		if err != nil {
			return errorResult("search_definitions", err)
		}
		return jsonResult(resp)
	}

	f := defindex.Filter{
		Name:        a.Name,
		NameRegex:   a.NameRegex,
		Parent:      a.Parent,
		Attribute:   a.Attribute,
		BaseType:    a.BaseType,
		File:        a.File,
		ExcludeDir:  a.ExcludeDir,
		ExcludeFile: a.ExcludeFile,
	}
	if a.ContainsLine != nil {
		f.ContainsLine = *a.ContainsLine
		f.HasContainsLine = true
	}
	if a.Kind != "" {
		k, ok := types.ParseDefinitionKind(a.Kind)
		if !ok {
			return errorResult("search_definitions", fmt.Errorf("unknown kind %q", a.Kind))
		}
		f.Kind = k
		f.HasKind = true
	}
	opts := query.FindOptions{
		IncludeBody:   a.IncludeBody,
		MaxBodyLines:  a.MaxBodyLines,
		MaxTotalLines: a.MaxTotalLines,
	}
	resp, err := s.Handlers.Find(f, opts)
	if err != nil {
		return errorResult("search_definitions", err)
	}
	return jsonResult(resp)
}

// --- search_callers ---

// TreeParams mirrors the shared tree Request plus the direction switch that
// picks Callers (up) vs Callees (down).
type TreeParams struct {
	Method             string   `json:"method"`
	Class              string   `json:"class,omitempty"`
	Direction          string   `json:"direction,omitempty"`
	MaxDepth           int      `json:"maxDepth,omitempty"`
	MaxCallersPerLevel int      `json:"maxCallersPerLevel,omitempty"`
	MaxTotalNodes      int      `json:"maxTotalNodes,omitempty"`
	Ext                []string `json:"ext,omitempty"`
	ExcludeDir         []string `json:"excludeDir,omitempty"`
	ExcludeFile        []string `json:"excludeFile,omitempty"`
}

func (s *Server) handleTree(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a TreeParams
	if err := json.Unmarshal(req.Params.Arguments, &a); err != nil {
		return errorResult("search_callers", fmt.Errorf("invalid parameters: %w", err))
	}
	if a.Method == "" {
		return errorResult("search_callers", fmt.Errorf("method is required"))
	}
	treq := calltree.Request{
		Method:             a.Method,
		Class:              a.Class,
		MaxDepth:           a.MaxDepth,
		MaxCallersPerLevel: a.MaxCallersPerLevel,
		MaxTotalNodes:      a.MaxTotalNodes,
		Ext:                a.Ext,
		ExcludeDir:         a.ExcludeDir,
		ExcludeFile:        a.ExcludeFile,
	}

	var resp query.TreeResponse
	var err error
	if a.Direction == "up" {
		resp, err = s.Handlers.Callers(treq)
	} else {
		resp, err = s.Handlers.Callees(treq)
	}
	if err != nil {
		return errorResult("search_callers", err)
	}
	return jsonResult(resp)
}

// --- search_reindex_definitions ---

func (s *Server) handleReindex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := parser.NewTreeSitterParser()
	cidx, didx, res, err := buildindex.Build(s.Root, s.Cfg, p, 0)
	if err != nil {
		return errorResult("search_reindex_definitions", err)
	}
	if s.Cfg.Persist.BaseDir != "" {
		canonicalRoot := pathutil.Canonicalize(s.Root)
		_ = cidx.Save(s.Cfg.Persist.BaseDir, canonicalRoot)
		_ = didx.Save(s.Cfg.Persist.BaseDir, canonicalRoot, cidx.Extensions)
	}
	// Swapping these fields without synchronization relies on the MCP SDK
	// dispatching one tool call at a time on this stdio session.
	s.Handlers.Content = cidx
	s.Handlers.Definitions = didx
	return jsonResult(res)
}

// --- search_info ---

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.Handlers.Info())
}

// --- search_git_history ---

// GitHistoryParams controls the git-history cache tool: how many commits to
// report and whether to bypass the persisted cache and re-run git log.
type GitHistoryParams struct {
	Limit   int  `json:"limit,omitempty"`
	Refresh bool `json:"refresh,omitempty"`
}

func (s *Server) handleGitHistory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a GitHistoryParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &a); err != nil {
			return errorResult("search_git_history", fmt.Errorf("invalid parameters: %w", err))
		}
	}
	canonicalRoot := pathutil.Canonicalize(s.Root)

	var commits []githist.Commit
	if !a.Refresh && s.Cfg.Persist.BaseDir != "" {
		if snap, err := githist.Load(s.Cfg.Persist.BaseDir, canonicalRoot); err == nil {
			commits = snap.Commits
		}
	}
	if commits == nil {
		fetched, err := githist.Fetch(s.Root, a.Limit)
		if err != nil {
			return errorResult("search_git_history", err)
		}
		commits = fetched
		if s.Cfg.Persist.BaseDir != "" {
			_ = githist.Save(s.Cfg.Persist.BaseDir, canonicalRoot, commits, time.Now().UTC())
		}
	}
	if a.Limit > 0 && len(commits) > a.Limit {
		commits = commits[:a.Limit]
	}

	return jsonResult(map[string]interface{}{"commits": commits})
}
