package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// GitignoreParser evaluates the root .gitignore's patterns against
// forward-slash relative paths, with gitignore semantics: last matching
// pattern wins, "!" negates, a trailing "/" restricts to directories, and a
// pattern containing a non-trailing "/" is anchored to the root.
//
// Only the repository-root .gitignore is read; nested per-directory
// .gitignore files are out of scope for index exclusion (the walker's
// default directory skips cover the common cases they would add).
type GitignoreParser struct {
	rules []ignoreRule
}

type ignoreRule struct {
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool
}

// NewGitignoreParser returns an empty parser; ShouldIgnore reports false
// until patterns are loaded.
func NewGitignoreParser() *GitignoreParser {
	return &GitignoreParser{}
}

// LoadGitignore reads root/.gitignore. A missing file leaves the parser
// empty and is not an error.
func (g *GitignoreParser) LoadGitignore(root string) error {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		g.addLine(scanner.Text())
	}
	return scanner.Err()
}

// LoadFromContent parses gitignore-format content directly, for callers that
// already hold the bytes.
func (g *GitignoreParser) LoadFromContent(content string) {
	for _, line := range strings.Split(content, "\n") {
		g.addLine(line)
	}
}

func (g *GitignoreParser) addLine(line string) {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	rule := ignoreRule{}
	if strings.HasPrefix(line, "!") {
		rule.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		rule.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		rule.anchored = true
		line = line[1:]
	} else if strings.Contains(line, "/") {
		// A separator anywhere else also anchors the pattern to the root,
		// per gitignore semantics.
		rule.anchored = true
	}
	if line == "" {
		return
	}
	rule.pattern = line
	g.rules = append(g.rules, rule)
}

// ShouldIgnore reports whether rel (forward-slash, relative to the root)
// is excluded. The last matching rule decides; negations re-admit.
func (g *GitignoreParser) ShouldIgnore(rel string, isDir bool) bool {
	rel = strings.TrimPrefix(rel, "/")
	ignored := false
	for _, r := range g.rules {
		if r.dirOnly && !isDir {
			// A directory-only pattern still covers files beneath a matching
			// directory component.
			if !hasDirComponentMatch(rel, r) {
				continue
			}
		} else if !r.matches(rel) {
			continue
		}
		ignored = !r.negate
	}
	return ignored
}

func (r ignoreRule) matches(rel string) bool {
	if r.anchored {
		ok, err := doublestar.Match(r.pattern, rel)
		return err == nil && ok
	}
	// Unanchored: match the basename or any path suffix segment.
	if ok, err := doublestar.Match(r.pattern, filepath.Base(rel)); err == nil && ok {
		return true
	}
	ok, err := doublestar.Match("**/"+r.pattern, rel)
	return err == nil && ok
}

// hasDirComponentMatch reports whether any directory component of rel (every
// prefix except the final element) matches the dir-only rule.
func hasDirComponentMatch(rel string, r ignoreRule) bool {
	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], "/")
		if r.matches(prefix) {
			return true
		}
	}
	return false
}

// ExclusionPatterns projects the loaded rules into walker-style doublestar
// excludes, for callers that prefer one merged pattern list over per-path
// ShouldIgnore calls. Negated rules have no glob equivalent and are skipped.
func (g *GitignoreParser) ExclusionPatterns() []string {
	var out []string
	for _, r := range g.rules {
		if r.negate {
			continue
		}
		p := r.pattern
		if !r.anchored {
			p = "**/" + p
		}
		if r.dirOnly {
			p += "/**"
		}
		out = append(out, p)
	}
	return out
}
