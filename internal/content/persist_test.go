package content

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codesift/codesift/internal/tokenizer"
	"github.com/codesift/codesift/internal/types"
)

// checkUniversalInvariants asserts §8's universal invariants over idx:
// total-token sum, forward/posting agreement, and posting ordering.
func checkUniversalInvariants(t *testing.T, idx *Index) {
	t.Helper()

	sum := 0
	for _, f := range idx.Files {
		sum += f.TokenCount
	}
	require.Equal(t, idx.TotalTokens, sum)

	for tok, postings := range idx.Inverted {
		for i := 1; i < len(postings); i++ {
			require.Less(t, postings[i-1].FileID, postings[i].FileID, "postings for %q out of order", tok)
		}
		for _, p := range postings {
			for i := 1; i < len(p.Lines); i++ {
				require.Less(t, p.Lines[i-1], p.Lines[i], "lines for %q in file %d not strictly increasing", tok, p.FileID)
			}
		}
	}

	if idx.WatchMode {
		// forward[fid] covers exactly the tokens whose postings mention fid.
		fromPostings := make(map[types.FileID]map[string]struct{})
		for tok, postings := range idx.Inverted {
			for _, p := range postings {
				if fromPostings[p.FileID] == nil {
					fromPostings[p.FileID] = make(map[string]struct{})
				}
				fromPostings[p.FileID][tok] = struct{}{}
			}
		}
		for fid, want := range fromPostings {
			require.Equal(t, want, idx.Forward[fid], "forward index mismatch for file %d", fid)
		}
		for fid := range idx.Forward {
			_, ok := fromPostings[fid]
			require.True(t, ok, "forward entry for file %d has no postings", fid)
		}
	}
}

func TestSaveLoad_StructuralEquality(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTemp(t, dir, "svc.cs", "class OrderService { void Process() {} }\n")
	p2 := writeTemp(t, dir, "repo.cs", "class OrderRepo { void Save() {} }\n")

	idx, _, err := Build([]string{p1, p2}, 1, true, 2)
	require.NoError(t, err)
	idx.Extensions = []string{".cs"}

	baseDir := filepath.Join(dir, "blobs")
	require.NoError(t, idx.Save(baseDir, dir))

	loaded, err := Load(baseDir, dir, []string{".cs"}, true)
	require.NoError(t, err)

	require.Equal(t, idx.Files, loaded.Files)
	require.Equal(t, idx.TotalTokens, loaded.TotalTokens)
	require.True(t, reflect.DeepEqual(idx.Inverted, loaded.Inverted))
	require.Equal(t, idx.Extensions, loaded.Extensions)
	require.Equal(t, idx.PathToID, loaded.PathToID)
	require.Equal(t, idx.Forward, loaded.Forward)
	checkUniversalInvariants(t, loaded)

	// Identical queries on both sides.
	for _, i := range []*Index{idx, loaded} {
		hits, err := Grep(i, GrepRequest{Terms: []string{"orderservice"}})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		require.Equal(t, p1, hits[0].Path)
	}
}

func TestLoad_MissingBlobIsNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "blobs"), dir, []string{".cs"}, false)
	require.Error(t, err)
}

func TestUpsertSameBytes_MatchesFreshRebuild(t *testing.T) {
	dir := t.TempDir()
	body := "class User {\n  int id;\n  int id2;\n}\n"
	p := writeTemp(t, dir, "user.cs", body)

	idx, _, err := Build([]string{p}, 1, true, tokenizer.DefaultMinLength)
	require.NoError(t, err)

	idx.Lock()
	idx.UpsertFilePath(p, body, tokenizer.DefaultMinLength)
	idx.Unlock()

	fresh, _, err := Build([]string{p}, 1, true, tokenizer.DefaultMinLength)
	require.NoError(t, err)

	require.Equal(t, fresh.Files, idx.Files)
	require.Equal(t, fresh.TotalTokens, idx.TotalTokens)
	require.True(t, reflect.DeepEqual(fresh.Inverted, idx.Inverted))
	checkUniversalInvariants(t, idx)
}

func TestRemoveFilePath_TombstonesAndCleansPostings(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTemp(t, dir, "a.cs", "class Alpha { }\n")
	p2 := writeTemp(t, dir, "b.cs", "class Beta { }\n")

	idx, _, err := Build([]string{p1, p2}, 1, true, 2)
	require.NoError(t, err)
	require.Len(t, idx.Files, 2)

	idx.Lock()
	fid, ok := idx.RemoveFilePath(p1)
	idx.MarkTrigramDirty()
	idx.Unlock()
	require.True(t, ok)

	// Tombstone: the file stays in the sequence with a zero token count.
	require.Len(t, idx.Files, 2)
	require.Zero(t, idx.Files[fid].TokenCount)
	_, inForward := idx.Forward[fid]
	require.False(t, inForward)
	_, inPathMap := idx.PathToID[p1]
	require.False(t, inPathMap)
	for tok, postings := range idx.Inverted {
		for _, post := range postings {
			require.NotEqual(t, fid, post.FileID, "posting for %q still references removed file", tok)
		}
	}
	checkUniversalInvariants(t, idx)

	// The surviving file is still searchable.
	hits, err := Grep(idx, GrepRequest{Terms: []string{"beta"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestUpsertNewPath_AssignsFreshFileID(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTemp(t, dir, "a.cs", "class Alpha { }\n")

	idx, _, err := Build([]string{p1}, 1, true, 2)
	require.NoError(t, err)

	p2 := filepath.Join(dir, "b.cs")
	require.NoError(t, os.WriteFile(p2, []byte("class Beta { }\n"), 0o644))

	idx.Lock()
	fid := idx.UpsertFilePath(p2, "class Beta { }\n", 2)
	idx.Unlock()
	require.Equal(t, types.FileID(1), fid)
	require.Len(t, idx.Files, 2)
	checkUniversalInvariants(t, idx)

	// Trigram index sees the new token after the lazy rebuild.
	matches := idx.Trigram().Substring("beta")
	require.Contains(t, matches, "beta")
}
