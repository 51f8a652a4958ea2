package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGitignore_BasicPatterns(t *testing.T) {
	g := NewGitignoreParser()
	g.LoadFromContent(`
# build output
*.log
tmp/
/secrets.json
docs/internal
`)

	require.True(t, g.ShouldIgnore("server.log", false))
	require.True(t, g.ShouldIgnore("nested/deep/server.log", false))
	require.False(t, g.ShouldIgnore("server.log.go", false))

	require.True(t, g.ShouldIgnore("tmp", true))
	require.True(t, g.ShouldIgnore("nested/tmp", true))
	require.True(t, g.ShouldIgnore("tmp/scratch.txt", false)) // under an ignored dir

	require.True(t, g.ShouldIgnore("secrets.json", false))
	require.False(t, g.ShouldIgnore("config/secrets.json", false)) // anchored to root

	require.True(t, g.ShouldIgnore("docs/internal", false))
	require.False(t, g.ShouldIgnore("other/docs/internal", false)) // slash anchors
}

func TestGitignore_NegationLastMatchWins(t *testing.T) {
	g := NewGitignoreParser()
	g.LoadFromContent(`
*.log
!keep.log
`)
	require.True(t, g.ShouldIgnore("debug.log", false))
	require.False(t, g.ShouldIgnore("keep.log", false))

	// Reversed order: the ignore comes last and wins again.
	g2 := NewGitignoreParser()
	g2.LoadFromContent(`
!keep.log
*.log
`)
	require.True(t, g2.ShouldIgnore("keep.log", false))
}

func TestGitignore_DirOnlyDoesNotMatchFile(t *testing.T) {
	g := NewGitignoreParser()
	g.LoadFromContent("cache/\n")
	require.True(t, g.ShouldIgnore("cache", true))
	require.False(t, g.ShouldIgnore("cache", false)) // a plain file named cache
}

func TestGitignore_CommentsAndBlanksSkipped(t *testing.T) {
	g := NewGitignoreParser()
	g.LoadFromContent("# nothing but comments\n\n   \n")
	require.False(t, g.ShouldIgnore("anything.go", false))
}

func TestGitignore_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.tmp\n"), 0o644))

	g := NewGitignoreParser()
	require.NoError(t, g.LoadGitignore(dir))
	require.True(t, g.ShouldIgnore("a.tmp", false))

	// Missing file: no rules, no error.
	g2 := NewGitignoreParser()
	require.NoError(t, g2.LoadGitignore(t.TempDir()))
	require.False(t, g2.ShouldIgnore("a.tmp", false))
}

func TestGitignore_ExclusionPatterns(t *testing.T) {
	g := NewGitignoreParser()
	g.LoadFromContent(`
*.log
build/
/gen.go
!keep.log
`)
	patterns := g.ExclusionPatterns()
	require.Contains(t, patterns, "**/*.log")
	require.Contains(t, patterns, "**/build/**")
	require.Contains(t, patterns, "gen.go")
	require.NotContains(t, patterns, "keep.log")
}
