package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/codesift/codesift/internal/githist"
	"github.com/codesift/codesift/pkg/pathutil"
)

// githistCommand implements SPEC_FULL §3's git-history cache as a
// standalone verb: it shares only the persistence codec with the rest of
// the engine, so it reads/writes its own cache file rather than going
// through loadIndexes/newHandlers.
func githistCommand() *cli.Command {
	return &cli.Command{
		Name:  "githist",
		Usage: "Show recent commit history for the project root (independent of the content/definition indexes)",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 50, Usage: "Maximum number of commits"},
			&cli.BoolFlag{Name: "refresh", Usage: "Re-run git log instead of reading the cached snapshot"},
			&cli.BoolFlag{Name: "json", Usage: "Emit results as JSON"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			canonicalRoot := pathutil.Canonicalize(cfg.Project.Root)

			var commits []githist.Commit
			if !c.Bool("refresh") && cfg.Persist.BaseDir != "" {
				if snap, loadErr := githist.Load(cfg.Persist.BaseDir, canonicalRoot); loadErr == nil {
					commits = snap.Commits
				}
			}
			if commits == nil {
				commits, err = githist.Fetch(cfg.Project.Root, c.Int("limit"))
				if err != nil {
					return err
				}
				if cfg.Persist.BaseDir != "" {
					if err := githist.Save(cfg.Persist.BaseDir, canonicalRoot, commits, time.Now().UTC()); err != nil {
						return err
					}
				}
			}
			if limit := c.Int("limit"); limit > 0 && len(commits) > limit {
				commits = commits[:limit]
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(commits)
			}
			for _, commit := range commits {
				hash := commit.Hash
				if len(hash) > 12 {
					hash = hash[:12]
				}
				fmt.Printf("%s  %-20s %s  (%d files)\n",
					hash, commit.Author, commit.Timestamp.Format("2006-01-02T15:04:05Z07:00"), len(commit.FilesTouched))
			}
			return nil
		},
	}
}
