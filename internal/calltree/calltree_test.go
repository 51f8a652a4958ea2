package calltree

import (
	"testing"

	"github.com/codesift/codesift/internal/content"
	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/types"
	"github.com/stretchr/testify/require"
)

// buildScenario wires the §4.6 DI scenario from the spec's worked example:
// OrderService.Process() calls _userService.GetUser() through an
// IUserService field, resolved via constructor-injection inference.
func buildScenario(t *testing.T) (*defindex.Index, func(types.FileID) string) {
	t.Helper()
	idx := defindex.New()

	paths := map[types.FileID]string{0: "order_service.go", 1: "user_service.go"}
	pathOf := func(f types.FileID) string { return paths[f] }

	idx.Lock()
	process := types.Definition{Name: "Process", Kind: types.KindMethod, Parent: "OrderService", FileID: 0, LineStart: 10, LineEnd: 12}
	getUser := types.Definition{Name: "GetUser", Kind: types.KindMethod, Parent: "UserService", FileID: 1, LineStart: 5, LineEnd: 7}
	userServiceClass := types.Definition{Name: "UserService", Kind: types.KindClass, FileID: 1, LineStart: 1, LineEnd: 20, BaseTypes: []string{"iuserservice"}}

	for _, d := range []types.Definition{process, getUser, userServiceClass} {
		global := len(idx.Definitions)
		idx.Definitions = append(idx.Definitions, d)
		idx.NameIndex[lower(d.Name)] = append(idx.NameIndex[lower(d.Name)], global)
		idx.KindIndex[d.Kind] = append(idx.KindIndex[d.Kind], global)
		idx.FileIndex[d.FileID] = append(idx.FileIndex[d.FileID], global)
	}
	// Process (def idx 0) calls GetUser via the injected IUserService field.
	idx.MethodCalls[0] = []types.CallSite{{MethodName: "GetUser", ReceiverType: "IUserService", Line: 11}}
	idx.Unlock()

	return idx, pathOf
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func TestBuildCalleeTree_ResolvesDIInterfaceCall(t *testing.T) {
	defs, pathOf := buildScenario(t)
	req := Request{Method: "Process", Class: "OrderService", MaxDepth: 3, MaxCallersPerLevel: 10, MaxTotalNodes: 100}

	res := BuildCalleeTree(defs, pathOf, req)
	require.Len(t, res.Roots, 1)
	require.Equal(t, "Process", res.Roots[0].Method)
	require.Len(t, res.Roots[0].Children, 1)
	require.Equal(t, "GetUser", res.Roots[0].Children[0].Method)
	require.Equal(t, "UserService", res.Roots[0].Children[0].Class)
}

func TestBuildCalleeTree_AmbiguousMethodNameWarns(t *testing.T) {
	idx := defindex.New()
	idx.Lock()
	a := types.Definition{Name: "Run", Kind: types.KindMethod, Parent: "A"}
	b := types.Definition{Name: "Run", Kind: types.KindMethod, Parent: "B"}
	for _, d := range []types.Definition{a, b} {
		global := len(idx.Definitions)
		idx.Definitions = append(idx.Definitions, d)
		idx.NameIndex[lower(d.Name)] = append(idx.NameIndex[lower(d.Name)], global)
	}
	idx.Unlock()

	res := BuildCalleeTree(idx, func(types.FileID) string { return "" }, Request{Method: "Run"})
	require.NotEmpty(t, res.AmbiguityWarning)
	require.Equal(t, 2, res.TotalClasses)
	require.Len(t, res.Roots, 2)
}

func TestBuildCalleeTree_CycleTerminates(t *testing.T) {
	idx := defindex.New()
	idx.Lock()
	d := types.Definition{Name: "Recurse", Kind: types.KindMethod, Parent: "Self"}
	idx.Definitions = append(idx.Definitions, d)
	idx.NameIndex[lower(d.Name)] = []int{0}
	idx.MethodCalls[0] = []types.CallSite{{MethodName: "Recurse", ReceiverType: "Self", Line: 1}}
	idx.Unlock()

	res := BuildCalleeTree(idx, func(types.FileID) string { return "" }, Request{Method: "Recurse", Class: "Self", MaxDepth: 50, MaxTotalNodes: 50})
	require.Len(t, res.Roots, 1)
	// The self-call cycle must not expand past the first occurrence.
	require.Empty(t, res.Roots[0].Children)
}

func TestBuildCallerTree_FindsDICaller(t *testing.T) {
	defs, pathOf := buildScenario(t)
	cidx := content.New(false)
	cidx.Lock()
	cidx.Files = []content.FileRecord{{Path: "order_service.go", TokenCount: 10}, {Path: "user_service.go", TokenCount: 10}}
	cidx.Inverted["getuser"] = []types.Posting{{FileID: 0, Lines: []int{11}}}
	// order_service.go also references the IUserService field type; this is
	// what narrows the GetUser hit to the right class (§4.6 "filters by the
	// parent class's token presence ... also considers the I-prefixed
	// interface token").
	cidx.Inverted["iuserservice"] = []types.Posting{{FileID: 0, Lines: []int{3}}}
	cidx.Unlock()

	req := Request{Method: "GetUser", Class: "UserService", MaxDepth: 3, MaxCallersPerLevel: 10, MaxTotalNodes: 100}
	res := BuildCallerTree(cidx, defs, pathOf, req)
	require.Len(t, res.Roots, 1)
	require.Equal(t, "GetUser", res.Roots[0].Method)
	require.Len(t, res.Roots[0].Children, 1)
	require.Equal(t, "Process", res.Roots[0].Children[0].Method)
	require.Equal(t, "OrderService", res.Roots[0].Children[0].Class)
}

func TestVerifyCallSiteTarget_AcceptsExtensionHost(t *testing.T) {
	idx := defindex.New()
	idx.Lock()
	// token.IsValid() — the receiver is a local of unknown type, but TokenExt
	// hosts IsValid as an extension method, which accepts any receiver.
	idx.Definitions = append(idx.Definitions, types.Definition{Name: "Consume", Kind: types.KindMethod, Parent: "Consumer"})
	idx.MethodCalls[0] = []types.CallSite{{MethodName: "IsValid", Line: 5}}
	idx.ExtensionMethods["isvalid"] = map[string]struct{}{"TokenExt": {}}
	idx.Unlock()

	require.True(t, VerifyCallSiteTarget(idx, 0, 5, "IsValid", "TokenExt"))
	require.False(t, VerifyCallSiteTarget(idx, 0, 5, "IsValid", "OtherClass"))
}

func TestVerifyCallSiteTarget_RejectsWrongLine(t *testing.T) {
	idx := defindex.New()
	idx.Lock()
	idx.MethodCalls[0] = []types.CallSite{{MethodName: "GetUser", ReceiverType: "IUserService", Line: 11}}
	idx.Definitions = append(idx.Definitions, types.Definition{Name: "Process", Parent: "OrderService"})
	idx.Unlock()

	require.False(t, VerifyCallSiteTarget(idx, 0, 99, "GetUser", "UserService"))
}
