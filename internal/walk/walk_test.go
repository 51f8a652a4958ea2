package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codesift/codesift/internal/config"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func scannedRels(t *testing.T, root string, cfg *config.Config) []string {
	t.Helper()
	results, err := Scan(root, cfg)
	require.NoError(t, err)
	var rels []string
	for _, r := range results {
		rel, err := filepath.Rel(root, filepath.FromSlash(r.Path))
		require.NoError(t, err)
		rels = append(rels, filepath.ToSlash(rel))
	}
	return rels
}

func TestScan_IncludeExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.cs", "class A {}")
	writeFile(t, root, "src/b.ts", "class B {}")
	writeFile(t, root, "src/gen/c.cs", "class C {}")
	writeFile(t, root, "notes.md", "# notes")

	cfg := &config.Config{
		Include: []string{"**/*.cs", "**/*.ts"},
		Exclude: []string{"**/gen/**"},
	}
	rels := scannedRels(t, root, cfg)
	require.ElementsMatch(t, []string{"src/a.cs", "src/b.ts"}, rels)
}

func TestScan_SkipsVCSAndDependencyDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.cs", "class K {}")
	writeFile(t, root, ".git/objects/junk.cs", "class G {}")
	writeFile(t, root, "node_modules/pkg/index.ts", "export const x = 1;")

	rels := scannedRels(t, root, &config.Config{})
	require.Equal(t, []string{"keep.cs"}, rels)
}

func TestScan_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "ignored/\n*.tmp.cs\n")
	writeFile(t, root, "kept.cs", "class K {}")
	writeFile(t, root, "scratch.tmp.cs", "class S {}")
	writeFile(t, root, "ignored/deep.cs", "class D {}")

	cfg := &config.Config{Index: config.Index{RespectGitignore: true}}
	rels := scannedRels(t, root, cfg)
	require.NotContains(t, rels, "scratch.tmp.cs")
	require.NotContains(t, rels, "ignored/deep.cs")
	require.Contains(t, rels, "kept.cs")
}

func TestScan_SkipsBinaryExtensionsAndOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "logo.png", "\x89PNG....")
	writeFile(t, root, "small.cs", "class S {}")
	writeFile(t, root, "big.cs", "class B { /* "+string(make([]byte, 100))+" */ }")

	cfg := &config.Config{Index: config.Index{MaxFileSize: 50}}
	rels := scannedRels(t, root, cfg)
	require.Equal(t, []string{"small.cs"}, rels)
}

func TestScan_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.cs", "class B {}")
	writeFile(t, root, "a.cs", "class A {}")

	first := scannedRels(t, root, &config.Config{})
	second := scannedRels(t, root, &config.Config{})
	require.Equal(t, first, second)
	require.Equal(t, []string{"a.cs", "b.cs"}, first)
}

func TestBinaryDetector_Extension(t *testing.T) {
	bd := NewBinaryDetector()
	require.True(t, bd.IsBinaryByExtension("assets/logo.PNG"))
	require.True(t, bd.IsBinaryByExtension("lib/native.dll"))
	require.False(t, bd.IsBinaryByExtension("src/service.cs"))
	require.False(t, bd.IsBinaryByExtension("icon.svg"))
	require.False(t, bd.IsBinaryByExtension("Makefile"))
}

func TestBinaryDetector_MagicAndDensity(t *testing.T) {
	bd := NewBinaryDetector()
	require.True(t, bd.IsBinaryByMagicNumber([]byte{0x89, 'P', 'N', 'G', 0}))
	require.True(t, bd.IsBinaryByMagicNumber([]byte{0x1F, 0x8B, 0x08}))
	require.False(t, bd.IsBinaryByMagicNumber([]byte("plain text\nwith lines\n")))

	nullHeavy := append([]byte("text"), make([]byte, 60)...)
	require.True(t, bd.IsBinaryByMagicNumber(nullHeavy))
}
