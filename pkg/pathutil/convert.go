// Package pathutil provides utilities for converting between absolute and relative
// paths, and for normalizing paths to the canonical form the indexes use as map keys.
//
// Architecture Pattern:
// The index stores canonicalized, forward-slash-normalized absolute paths internally
// for consistency across platforms and to avoid ambiguity. User-facing output uses
// relative paths for readability and portability. This package is the conversion
// layer between the internal and external representations.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.go", "/home/user/project") → "src/main.go"
//   - ToRelative("/other/location/file.go", "/home/user/project") → "/other/location/file.go" (outside root)
//   - ToRelative("src/main.go", "/home/user/project") → "src/main.go" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}

	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}

	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// ToForwardSlash normalizes a path to use forward slashes regardless of platform,
// the form every index uses as a map key (file paths, exclude-dir matching).
func ToForwardSlash(p string) string {
	if filepath.Separator == '/' {
		return p
	}
	return strings.ReplaceAll(p, string(filepath.Separator), "/")
}

// Canonicalize resolves symlinks and cleans the path, then forward-slash normalizes
// it. Falls back to a cleaned, forward-slash form if symlink resolution fails (the
// path may not exist yet, e.g. during a watcher create-then-stat race).
func Canonicalize(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return ToForwardSlash(filepath.Clean(abs))
	}
	return ToForwardSlash(filepath.Clean(resolved))
}

// ContainsSubstringNormalized reports whether haystack contains needle after both
// are forward-slash normalized and lowercased — the separator-insensitive path
// substring match required by definition-query file filters.
func ContainsSubstringNormalized(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	h := strings.ToLower(ToForwardSlash(haystack))
	n := strings.ToLower(ToForwardSlash(needle))
	return strings.Contains(h, n)
}
