package query

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codesift/codesift/internal/buildindex"
	"github.com/codesift/codesift/internal/calltree"
	"github.com/codesift/codesift/internal/config"
	"github.com/codesift/codesift/internal/content"
	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/parser"
	"github.com/codesift/codesift/internal/types"
)

// newTestHandlers indexes a small C# project with a DI call chain:
// OrderService.Process -> _userService.GetUser(), where IUserService is
// implemented by UserService.
func newTestHandlers(t *testing.T) (*Handlers, string) {
	t.Helper()
	dir := t.TempDir()

	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("IUserService.cs", "interface IUserService\n{\n    User GetUser();\n}\n")
	write("UserService.cs", "class UserService : IUserService\n{\n    public User GetUser()\n    {\n        return null;\n    }\n}\n")
	write("OrderService.cs", "class OrderService\n{\n    private readonly IUserService _userService;\n\n    public void Process()\n    {\n        _userService.GetUser();\n    }\n}\n")

	cfg := &config.Config{Project: config.Project{Root: dir}, Index: config.Index{WatchMode: true}}
	cidx, didx, _, err := buildindex.Build(dir, cfg, parser.NewTreeSitterParser(), 1)
	require.NoError(t, err)
	return New(cidx, didx, dir), dir
}

func TestGrep_TokenModeMatchesAndFilters(t *testing.T) {
	h, _ := newTestHandlers(t)

	resp, err := h.Grep(content.GrepRequest{Terms: []string{"getuser"}})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 3)
	require.False(t, resp.Summary.Stale)

	resp, err = h.Grep(content.GrepRequest{Terms: []string{"getuser", "process"}, And: true})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	require.Contains(t, resp.Hits[0].Path, "OrderService.cs")
}

func TestGrep_NoContentIndexErrors(t *testing.T) {
	h := New(nil, defindex.New(), "")
	_, err := h.Grep(content.GrepRequest{Terms: []string{"x"}})
	require.Error(t, err)
}

func TestFind_SubstringNameWithBody(t *testing.T) {
	h, _ := newTestHandlers(t)

	resp, err := h.Find(defindex.Filter{Name: "User", Kind: types.KindMethod, HasKind: true},
		FindOptions{IncludeBody: true, MaxBodyLines: 10})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Hits)
	for _, hit := range resp.Hits {
		require.Equal(t, "GetUser", hit.Def.Name)
		require.NotEmpty(t, hit.ID)
		require.NotEmpty(t, hit.Path)
	}

	// The implementation's body is retrievable on demand.
	var implSeen bool
	for _, hit := range resp.Hits {
		if hit.Def.Parent == "UserService" {
			implSeen = true
			require.NotEmpty(t, hit.Body)
			require.Empty(t, hit.BodyError)
		}
	}
	require.True(t, implSeen)
}

func TestFind_ContainsLine(t *testing.T) {
	h, _ := newTestHandlers(t)

	// Line 7 of OrderService.cs is inside Process's body; both the class and
	// the method span it, and §4.5 returns all containing definitions.
	resp, err := h.Find(defindex.Filter{
		File:            "OrderService.cs",
		ContainsLine:    7,
		HasContainsLine: true,
	}, FindOptions{})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, hit := range resp.Hits {
		names[hit.Def.Name] = true
	}
	require.True(t, names["OrderService"])
	require.True(t, names["Process"])
}

func TestCallers_DIInterfaceScenario(t *testing.T) {
	h, _ := newTestHandlers(t)

	resp, err := h.Callers(calltree.Request{Method: "GetUser", Class: "UserService", MaxDepth: 3})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Result.Roots)

	var found bool
	for _, root := range resp.Result.Roots {
		for _, child := range root.Children {
			if child.Class == "OrderService" && child.Method == "Process" {
				found = true
			}
		}
	}
	require.True(t, found, "expected OrderService.Process as a caller of UserService.GetUser")
}

func TestCallees_ProcessResolvesGetUser(t *testing.T) {
	h, _ := newTestHandlers(t)

	resp, err := h.Callees(calltree.Request{Method: "Process", Class: "OrderService", MaxDepth: 3})
	require.NoError(t, err)
	require.Len(t, resp.Result.Roots, 1)

	var found bool
	for _, child := range resp.Result.Roots[0].Children {
		if child.Method == "GetUser" {
			found = true
		}
	}
	require.True(t, found, "expected GetUser among Process's callees")
}

func TestAudit_ReportsTotals(t *testing.T) {
	h, _ := newTestHandlers(t)

	resp, err := h.Audit()
	require.NoError(t, err)
	require.Zero(t, resp.Report.ParseErrors)
	require.Zero(t, resp.Report.LossyFileCount)
}

func TestInfo_Snapshot(t *testing.T) {
	h, _ := newTestHandlers(t)

	info := h.Info()
	require.Equal(t, 3, info.FileCount)
	require.Greater(t, info.TotalTokens, 0)
	require.Greater(t, info.DefinitionCount, 0)
	require.False(t, info.ContentStale)
	require.False(t, info.DefIndexStale)
}
