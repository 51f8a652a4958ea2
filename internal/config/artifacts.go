package config

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DetectBuildArtifacts inspects the project's language manifests for build
// output directories and returns exclude patterns for them, so generated
// trees never enter the index even when a project forgets to gitignore them.
//
// Recognized manifests: tsconfig.json (compilerOptions.outDir), Cargo.toml
// ([build] target-dir, default "target"), pyproject.toml (dist/.eggs).
func DetectBuildArtifacts(root string) []string {
	var patterns []string
	seen := make(map[string]struct{})
	add := func(dir string) {
		dir = path.Clean(strings.ReplaceAll(strings.TrimSpace(dir), "\\", "/"))
		dir = strings.Trim(dir, "/")
		if dir == "" || dir == "." || strings.HasPrefix(dir, "..") {
			return
		}
		p := "**/" + dir + "/**"
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		patterns = append(patterns, p)
	}

	if outDir := tsconfigOutDir(filepath.Join(root, "tsconfig.json")); outDir != "" {
		add(outDir)
	}
	if targetDir, ok := cargoTargetDir(filepath.Join(root, "Cargo.toml")); ok {
		add(targetDir)
	}
	if _, err := os.Stat(filepath.Join(root, "pyproject.toml")); err == nil {
		add("dist")
		add(".eggs")
	}
	return patterns
}

// tsconfigOutDir reads compilerOptions.outDir. tsconfig allows JS-style
// comments, so comment lines are stripped before unmarshalling; a file that
// still fails to parse yields no pattern rather than an error.
func tsconfigOutDir(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "//") {
			continue
		}
		lines = append(lines, line)
	}
	var tsconfig struct {
		CompilerOptions struct {
			OutDir string `json:"outDir"`
		} `json:"compilerOptions"`
	}
	if err := json.Unmarshal([]byte(strings.Join(lines, "\n")), &tsconfig); err != nil {
		return ""
	}
	return tsconfig.CompilerOptions.OutDir
}

// cargoTargetDir returns the Rust build output directory when a Cargo.toml
// exists: the [build] target-dir override, or cargo's default "target".
func cargoTargetDir(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var cargo struct {
		Build struct {
			TargetDir string `toml:"target-dir"`
		} `toml:"build"`
	}
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return "target", true
	}
	if cargo.Build.TargetDir != "" {
		return cargo.Build.TargetDir, true
	}
	return "target", true
}
