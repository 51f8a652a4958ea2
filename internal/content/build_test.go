package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestBuild_MergeIsDeterministicAndPostingsSorted(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTemp(t, dir, "a.go", "func order() {}\n")
	p2 := writeTemp(t, dir, "b.go", "func order() { order() }\n")

	idx, res, err := Build([]string{p1, p2}, 2, false, 3)
	require.NoError(t, err)
	require.Zero(t, res.LossyFileCount)
	require.Len(t, idx.Files, 2)

	postings, ok := idx.Inverted["order"]
	require.True(t, ok)
	for i := 1; i < len(postings); i++ {
		require.Less(t, postings[i-1].FileID, postings[i].FileID)
	}
	for _, p := range postings {
		for i := 1; i < len(p.Lines); i++ {
			require.Less(t, p.Lines[i-1], p.Lines[i])
		}
	}
}

func TestBuild_TotalTokensInvariant(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTemp(t, dir, "a.txt", "foo bar baz\n")

	idx, _, err := Build([]string{p1}, 1, false, 2)
	require.NoError(t, err)

	sum := 0
	for _, f := range idx.Files {
		sum += f.TokenCount
	}
	require.Equal(t, idx.TotalTokens, sum)
}

func TestGrep_PhraseRejectsScatteredTokens(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTemp(t, dir, "has_phrase.txt", "the order id is 42\n")
	p2 := writeTemp(t, dir, "scattered.txt", "order placed; the id field is set\n")

	idx, _, err := Build([]string{p1, p2}, 1, false, 2)
	require.NoError(t, err)

	hits, err := Grep(idx, GrepRequest{Terms: []string{"order", "id", "is"}, Phrase: true})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, p1, hits[0].Path)
}

func TestGrep_AndModeRequiresAllTerms(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTemp(t, dir, "both.txt", "alpha beta\n")
	p2 := writeTemp(t, dir, "one.txt", "alpha only\n")

	idx, _, err := Build([]string{p1, p2}, 1, false, 3)
	require.NoError(t, err)

	hits, err := Grep(idx, GrepRequest{Terms: []string{"alpha", "beta"}, And: true})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, p1, hits[0].Path)
}

func TestTrigramIndex_SubstringMatch(t *testing.T) {
	ti := BuildTrigramIndex([]string{"_foo", "m_foo", "barfoo", "unrelated"})
	matches := ti.Substring("foo")
	require.ElementsMatch(t, []string{"_foo", "m_foo", "barfoo"}, matches)
}
