package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults("/proj")
	require.Equal(t, "/proj", cfg.Project.Root)
	require.True(t, cfg.Index.RespectGitignore)
	require.Equal(t, 300, cfg.Index.WatchDebounceMs)
	require.Equal(t, 500, cfg.Index.BulkThreshold)
	require.Equal(t, 50, cfg.Search.MaxResults)
	require.True(t, cfg.Search.Ranking.Enabled)
	require.Equal(t, DefaultCodeFileBoost, cfg.Search.Ranking.CodeFileBoost)
	require.Equal(t, filepath.Join("/proj", ".lci", "index"), cfg.Persist.BaseDir)
	require.Contains(t, cfg.Exclude, "**/node_modules/**")
}

func TestApplyKDL_AllSections(t *testing.T) {
	cfg := Defaults("/proj")
	err := applyKDL(cfg, `
project {
    name "billing"
}
index {
    max_file_size "2MB"
    max_file_count 1234
    respect_gitignore false
    watch_mode true
    watch_debounce_ms 150
    bulk_threshold 42
}
performance {
    workers 8
}
semantic {
    min_stem_length 5
}
search {
    max_results 25
    stem true
    ranking {
        enabled true
        code_file_boost 75.0
        doc_file_penalty -10.0
        require_symbol true
        non_symbol_penalty -40.0
        extension_weight ".cs" 90.0
    }
}
persist {
    dir "/var/cache/lci"
    max_age_secs 3600
}
include "**/*.cs" "**/*.ts"
exclude "**/generated/**"
`)
	require.NoError(t, err)
	require.Equal(t, "billing", cfg.Project.Name)
	require.Equal(t, int64(2*1024*1024), cfg.Index.MaxFileSize)
	require.Equal(t, 1234, cfg.Index.MaxFileCount)
	require.False(t, cfg.Index.RespectGitignore)
	require.True(t, cfg.Index.WatchMode)
	require.Equal(t, 150, cfg.Index.WatchDebounceMs)
	require.Equal(t, 42, cfg.Index.BulkThreshold)
	require.Equal(t, 8, cfg.Performance.ParallelFileWorkers)
	require.Equal(t, 5, cfg.Semantic.MinStemLength)
	require.Equal(t, 25, cfg.Search.MaxResults)
	require.True(t, cfg.Search.Stem)
	require.Equal(t, 75.0, cfg.Search.Ranking.CodeFileBoost)
	require.Equal(t, -10.0, cfg.Search.Ranking.DocFilePenalty)
	require.True(t, cfg.Search.Ranking.RequireSymbol)
	require.Equal(t, -40.0, cfg.Search.Ranking.NonSymbolPenalty)
	require.Equal(t, 90.0, cfg.Search.Ranking.ExtensionWeights["cs"])
	require.Equal(t, "/var/cache/lci", cfg.Persist.BaseDir)
	require.Equal(t, int64(3600), cfg.Persist.MaxAgeSecs)
	require.Equal(t, []string{"**/*.cs", "**/*.ts"}, cfg.Include)
	require.Contains(t, cfg.Exclude, "**/generated/**")
	// Accumulated, not replaced: the defaults survive a project exclude.
	require.Contains(t, cfg.Exclude, "**/node_modules/**")
}

func TestApplyKDL_IntegerAcceptedForFloat(t *testing.T) {
	cfg := Defaults("/proj")
	err := applyKDL(cfg, `
search {
    ranking {
        code_file_boost 60
    }
}
`)
	require.NoError(t, err)
	require.Equal(t, 60.0, cfg.Search.Ranking.CodeFileBoost)
}

func TestApplyKDL_UnknownNodesIgnored(t *testing.T) {
	cfg := Defaults("/proj")
	err := applyKDL(cfg, `
retired_section {
    something 1
}
index {
    future_knob true
}
`)
	require.NoError(t, err)
}

func TestApplyKDL_MalformedFails(t *testing.T) {
	cfg := Defaults("/proj")
	require.Error(t, applyKDL(cfg, `index { max_file_size "unterminated`))
}

func TestParseSize(t *testing.T) {
	for in, want := range map[string]int64{
		"10MB":  10 << 20,
		"500KB": 500 << 10,
		"1GB":   1 << 30,
		"2048B": 2048,
		"4096":  4096,
	} {
		got, err := parseSize(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := parseSize("lots")
	require.Error(t, err)
}

func TestLoadWithRoot_ProjectConfigOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir()) // isolate from any real ~/.lci.kdl
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".lci.kdl"), []byte(`
index {
    watch_debounce_ms 77
}
`), 0o644))

	cfg, err := LoadWithRoot("", dir)
	require.NoError(t, err)
	require.Equal(t, 77, cfg.Index.WatchDebounceMs)
	require.Equal(t, 500, cfg.Index.BulkThreshold) // untouched default
}

func TestLoadWithRoot_GlobalThenProjectLayering(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".lci.kdl"), []byte(`
index {
    watch_debounce_ms 111
    bulk_threshold 99
}
exclude "**/global-skip/**"
`), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".lci.kdl"), []byte(`
index {
    watch_debounce_ms 222
}
`), 0o644))

	cfg, err := LoadWithRoot("", dir)
	require.NoError(t, err)
	require.Equal(t, 222, cfg.Index.WatchDebounceMs) // project wins
	require.Equal(t, 99, cfg.Index.BulkThreshold)    // global survives
	require.Contains(t, cfg.Exclude, "**/global-skip/**")
}

func TestLoadWithRoot_ExplicitConfigPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	alt := filepath.Join(dir, "custom.kdl")
	require.NoError(t, os.WriteFile(alt, []byte(`
project {
    name "from-custom"
}
`), 0o644))

	cfg, err := LoadWithRoot(alt, dir)
	require.NoError(t, err)
	require.Equal(t, "from-custom", cfg.Project.Name)
}

func TestLoadWithRoot_NoConfigUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	cfg, err := LoadWithRoot("", dir)
	require.NoError(t, err)
	require.Equal(t, dir, cfg.Project.Root)
	require.Equal(t, 300, cfg.Index.WatchDebounceMs)
}

func TestLoadWithRoot_RankingOutOfRangeRejected(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".lci.kdl"), []byte(`
search {
    ranking {
        code_file_boost 5000.0
    }
}
`), 0o644))

	_, err := LoadWithRoot("", dir)
	require.Error(t, err)
}

func TestSearchRankingValidate(t *testing.T) {
	ok := SearchRanking{CodeFileBoost: 50, DocFilePenalty: -20, ConfigFileBoost: 10, NonSymbolPenalty: -30}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.ExtensionWeights = map[string]float64{"cs": 99999}
	require.Error(t, bad.Validate())
}
