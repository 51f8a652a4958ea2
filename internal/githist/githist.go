// Package githist is the narrow git-history cache SPEC_FULL adds as a
// supplemental, explicitly standalone feature: it shares only the blob
// codec (internal/persist) with the rest of the engine and is never
// consulted by the resolver, the content index, or the definition index.
//
// Grounded in the pack's os/exec-based git invocation style (e.g.
// josephgoksu-TaskWing's internal/bootstrap/git_stats.go: cmd.Dir set to the
// repo root, "--format=%aI" for RFC3339 timestamps, parsing plain stdout) —
// no example repo's go.mod carries a VCS library, so os/exec is the
// justified choice here rather than a third-party git client (see
// DESIGN.md).
package githist

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/codesift/codesift/internal/errors"
	"github.com/codesift/codesift/internal/persist"
)

// recordStart and fieldSep are ASCII control bytes unlikely to appear in
// author names or commit hashes, used to delimit commit boundaries and
// header fields in a single `git log` invocation's output.
const (
	recordStart = "\x02"
	fieldSep    = "\x1f"
)

// Commit is one git-history entry: a commit's identity plus the paths it
// touched, per spec.md §6's "(commit_hash, author, timestamp,
// files_touched)" sketch.
type Commit struct {
	Hash         string
	Author       string
	Timestamp    time.Time
	FilesTouched []string
}

// Snapshot is the gob-encodable cache persisted under PurposeGitHistory.
type Snapshot struct {
	Root      string
	CreatedAt time.Time
	Commits   []Commit
}

// Fetch runs `git log` against root and returns the most recent limit
// commits, newest first. A non-git directory or missing git binary surfaces
// as an IOError; spec.md's "independent... not wired into the watcher or
// the resolver" framing means callers treat this as an optional feature,
// not a hard dependency of any index build.
func Fetch(root string, limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = 50
	}
	format := recordStart + "%H" + fieldSep + "%an" + fieldSep + "%aI"
	cmd := exec.Command("git", "log", fmt.Sprintf("-n%d", limit), "--format="+format, "--name-only")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.New(errors.IOError, "githist.Fetch", fmt.Errorf("%w: %s", err, stderr.String())).WithPath(root)
	}
	return parseLog(stdout.String()), nil
}

// parseLog splits `git log`'s recordStart-delimited output into Commit
// values. Malformed records (missing fields, unparseable timestamp) are
// skipped rather than failing the whole fetch, since a single odd commit
// (e.g. a merge with unusual metadata) should not lose the rest of the
// history.
func parseLog(out string) []Commit {
	var commits []Commit
	for _, block := range strings.Split(out, recordStart) {
		block = strings.TrimRight(block, "\n")
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		header := strings.Split(lines[0], fieldSep)
		if len(header) != 3 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, header[2])
		if err != nil {
			continue
		}
		var files []string
		for _, f := range lines[1:] {
			f = strings.TrimSpace(f)
			if f != "" {
				files = append(files, f)
			}
		}
		commits = append(commits, Commit{
			Hash:         header[0],
			Author:       header[1],
			Timestamp:    ts,
			FilesTouched: files,
		})
	}
	return commits
}

// Save persists commits for canonicalRoot under PurposeGitHistory. The
// extensions component of §4.7's key is irrelevant to this cache (it is not
// keyed by language), so an empty extensions CSV is used.
func Save(baseDir, canonicalRoot string, commits []Commit, now time.Time) error {
	path := persist.KeyPath(baseDir, canonicalRoot, "", persist.PurposeGitHistory)
	snap := Snapshot{Root: canonicalRoot, CreatedAt: now, Commits: commits}
	return persist.Save(path, &snap)
}

// Load reads a previously persisted git-history cache for canonicalRoot.
func Load(baseDir, canonicalRoot string) (Snapshot, error) {
	path := persist.KeyPath(baseDir, canonicalRoot, "", persist.PurposeGitHistory)
	var snap Snapshot
	if err := persist.Load(path, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
