package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectBuildArtifacts_TsconfigOutDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tsconfig.json"), []byte(`{
  // output goes here
  "compilerOptions": {
    "outDir": "./compiled"
  }
}`), 0o644))

	patterns := DetectBuildArtifacts(dir)
	require.Contains(t, patterns, "**/compiled/**")
}

func TestDetectBuildArtifacts_CargoDefaultTarget(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(`
[package]
name = "engine"
version = "0.1.0"
`), 0o644))

	patterns := DetectBuildArtifacts(dir)
	require.Contains(t, patterns, "**/target/**")
}

func TestDetectBuildArtifacts_CargoTargetDirOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(`
[build]
target-dir = "artifacts"
`), 0o644))

	patterns := DetectBuildArtifacts(dir)
	require.Contains(t, patterns, "**/artifacts/**")
	require.NotContains(t, patterns, "**/target/**")
}

func TestDetectBuildArtifacts_Pyproject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte("[project]\nname = \"pkg\"\n"), 0o644))

	patterns := DetectBuildArtifacts(dir)
	require.Contains(t, patterns, "**/dist/**")
	require.Contains(t, patterns, "**/.eggs/**")
}

func TestDetectBuildArtifacts_EmptyProject(t *testing.T) {
	require.Empty(t, DetectBuildArtifacts(t.TempDir()))
}

func TestDetectBuildArtifacts_RejectsEscapingOutDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tsconfig.json"), []byte(`{
  "compilerOptions": { "outDir": "../elsewhere" }
}`), 0o644))

	require.Empty(t, DetectBuildArtifacts(dir))
}
