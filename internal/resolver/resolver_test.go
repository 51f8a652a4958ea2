package resolver

import (
	"strings"
	"testing"

	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/types"
	"github.com/stretchr/testify/require"
)

func newIdxWithDefs(t *testing.T, defs ...types.Definition) *defindex.Index {
	t.Helper()
	idx := defindex.New()
	idx.Lock()
	for _, d := range defs {
		global := len(idx.Definitions)
		idx.Definitions = append(idx.Definitions, d)
		idx.NameIndex[strings.ToLower(d.Name)] = append(idx.NameIndex[strings.ToLower(d.Name)], global)
		idx.KindIndex[d.Kind] = append(idx.KindIndex[d.Kind], global)
	}
	idx.Unlock()
	return idx
}

func TestResolve_BuiltinReceiverBlocked(t *testing.T) {
	idx := newIdxWithDefs(t, types.Definition{Name: "resolve", Kind: types.KindMethod, Parent: "Deferred"})
	got := Resolve(idx, types.CallSite{MethodName: "resolve", ReceiverType: "Promise"}, "")
	require.Empty(t, got)
}

func TestResolve_DirectParentMatch(t *testing.T) {
	idx := newIdxWithDefs(t,
		types.Definition{Name: "GetUser", Kind: types.KindMethod, Parent: "UserService"},
		types.Definition{Name: "GetUser", Kind: types.KindMethod, Parent: "OtherService"},
	)
	got := Resolve(idx, types.CallSite{MethodName: "GetUser", ReceiverType: "UserService"}, "")
	require.Equal(t, []int{0}, got)
}

func TestResolve_InterfaceBaseTypeMatch(t *testing.T) {
	idx := newIdxWithDefs(t,
		types.Definition{Name: "UserService", Kind: types.KindClass, BaseTypes: []string{"iuserservice"}},
		types.Definition{Name: "GetUser", Kind: types.KindMethod, Parent: "UserService"},
	)
	got := Resolve(idx, types.CallSite{MethodName: "GetUser", ReceiverType: "IUserService"}, "")
	require.Equal(t, []int{1}, got)
}

func TestResolve_NoReceiverRestrictsToCallerClass(t *testing.T) {
	idx := newIdxWithDefs(t,
		types.Definition{Name: "Helper", Kind: types.KindMethod, Parent: "A"},
		types.Definition{Name: "Helper", Kind: types.KindMethod, Parent: "B"},
	)
	got := Resolve(idx, types.CallSite{MethodName: "Helper"}, "B")
	require.Equal(t, []int{1}, got)
}

func TestResolve_NoReceiverNoCallerClassReturnsAll(t *testing.T) {
	idx := newIdxWithDefs(t,
		types.Definition{Name: "Helper", Kind: types.KindMethod, Parent: "A"},
		types.Definition{Name: "Helper", Kind: types.KindMethod, Parent: "B"},
	)
	got := Resolve(idx, types.CallSite{MethodName: "Helper"}, "")
	require.ElementsMatch(t, []int{0, 1}, got)
}

func TestResolve_GenericArityFilter(t *testing.T) {
	idx := newIdxWithDefs(t,
		types.Definition{Name: "Repo", Kind: types.KindClass, Signature: "class Repo"},
		types.Definition{Name: "Save", Kind: types.KindMethod, Parent: "Repo"},
	)
	got := Resolve(idx, types.CallSite{MethodName: "Save", ReceiverType: "Repo", ReceiverIsGeneric: true}, "")
	require.Empty(t, got, "non-generic class signature must reject a generic call site")
}

func TestStemMatch(t *testing.T) {
	require.True(t, StemMatch("IUserService", "UserService"))
	require.False(t, StemMatch("IUserService", "UserWebService"), "shared prefix \"user\" is shorter than half of the stem \"userservice\"")
	require.False(t, StemMatch("IOk", "Anything"), "stem shorter than MinStemLen never matches")
}

func TestIsBuiltinReceiver(t *testing.T) {
	require.True(t, IsBuiltinReceiver("promise"))
	require.True(t, IsBuiltinReceiver("Array"))
	require.False(t, IsBuiltinReceiver("UserService"))
	require.False(t, IsBuiltinReceiver(""))
}
