package defindex

import (
	"testing"

	"github.com/codesift/codesift/internal/parser"
	"github.com/codesift/codesift/internal/types"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTripRebuildsSecondaryIndexes(t *testing.T) {
	idx := New()
	res := &parser.Result{
		Defs: []types.Definition{
			{Name: "TokenExt", Kind: types.KindClass, LineStart: 1, LineEnd: 10},
			{Name: "IsValid", Kind: types.KindMethod, Parent: "TokenExt", LineStart: 2, LineEnd: 4},
		},
		CallSites: map[int][]types.CallSite{
			1: {{MethodName: "Trim", ReceiverType: "Token", Line: 3}},
		},
		CodeStats: map[int]types.CodeStats{
			1: {ParamCount: 1, CyclomaticComplexity: 1, CallCount: 1},
		},
		ExtensionContribs: []parser.ExtensionContribution{
			{MethodName: "IsValid", ClassName: "TokenExt"},
		},
	}
	idx.Lock()
	idx.AddFile(types.FileID(0), "token_ext.cs", res)
	idx.Unlock()

	baseDir := t.TempDir()
	require.NoError(t, idx.Save(baseDir, "/proj", []string{".cs"}))

	loaded, err := Load(baseDir, "/proj", []string{".cs"})
	require.NoError(t, err)

	require.Equal(t, idx.Definitions, loaded.Definitions)
	require.Equal(t, idx.NameIndex, loaded.NameIndex)
	require.Equal(t, idx.KindIndex, loaded.KindIndex)
	require.Equal(t, idx.MethodCalls, loaded.MethodCalls)
	require.Equal(t, idx.CodeStats, loaded.CodeStats)
	require.Equal(t, idx.ExtensionMethods, loaded.ExtensionMethods)
}

func TestAddFile_PopulatesSecondaryIndexes(t *testing.T) {
	idx := New()
	res := &parser.Result{
		Defs: []types.Definition{
			{Name: "UserService", Kind: types.KindClass, LineStart: 1, LineEnd: 20, Attributes: []string{"injectable"}, BaseTypes: []string{"iuserservice"}},
			{Name: "GetUser", Kind: types.KindMethod, Parent: "UserService", LineStart: 5, LineEnd: 7},
		},
	}

	idx.Lock()
	localToGlobal := idx.AddFile(types.FileID(0), "user_service.go", res)
	idx.Unlock()

	require.Len(t, localToGlobal, 2)
	require.Equal(t, []int{0}, idx.NameIndex["userservice"])
	require.Equal(t, []int{1}, idx.NameIndex["getuser"])
	require.Equal(t, []int{0}, idx.AttributeIndex["injectable"])
	require.Equal(t, []int{0}, idx.BaseTypeIndex["iuserservice"])
	require.ElementsMatch(t, []int{0, 1}, idx.FileIndex[types.FileID(0)])
}

func TestRemoveFile_Tombstones(t *testing.T) {
	idx := New()
	res := &parser.Result{
		Defs: []types.Definition{{Name: "Foo", Kind: types.KindClass, LineStart: 1, LineEnd: 5}},
	}
	idx.Lock()
	idx.AddFile(types.FileID(0), "foo.go", res)
	idx.RemoveFile(types.FileID(0))
	idx.Unlock()

	d, ok := idx.Def(0)
	require.True(t, ok)
	require.True(t, d.Tombstone)
	require.Empty(t, idx.NameIndex["foo"])
	require.Empty(t, idx.FileIndex[types.FileID(0)])
}

func TestFindContainingMethod_NarrowestSpanWins(t *testing.T) {
	idx := New()
	res := &parser.Result{
		Defs: []types.Definition{
			{Name: "Outer", Kind: types.KindMethod, LineStart: 1, LineEnd: 100},
			{Name: "Inner", Kind: types.KindFunction, LineStart: 10, LineEnd: 20},
		},
	}
	idx.Lock()
	idx.AddFile(types.FileID(0), "f.go", res)
	idx.Unlock()

	got, ok := idx.FindContainingMethod(types.FileID(0), 15)
	require.True(t, ok)
	require.Equal(t, "Inner", idx.Definitions[got].Name)
}

func TestFind_NameSubstringAndKind(t *testing.T) {
	idx := New()
	res := &parser.Result{
		Defs: []types.Definition{
			{Name: "UserController", Kind: types.KindClass, LineStart: 1, LineEnd: 10},
			{Name: "UserService", Kind: types.KindClass, LineStart: 1, LineEnd: 10},
		},
	}
	idx.Lock()
	idx.AddFile(types.FileID(0), "a.go", res)
	idx.Unlock()

	idx.RLock()
	defer idx.RUnlock()
	got, err := idx.Find(Filter{Name: "service", Kind: types.KindClass, HasKind: true}, func(types.FileID) string { return "a.go" })
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "UserService", idx.Definitions[got[0]].Name)
}

func TestAudit_FlagsSuspiciousEmptyFile(t *testing.T) {
	idx := New()
	idx.Lock()
	idx.RecordEmptyFile(types.FileID(1), 1024)
	idx.Unlock()

	idx.RLock()
	report := idx.Audit(func(types.FileID) string { return "big_empty.go" })
	idx.RUnlock()

	require.Len(t, report.Suspicious, 1)
	require.Equal(t, int64(1024), report.Suspicious[0].ByteSize)
}
