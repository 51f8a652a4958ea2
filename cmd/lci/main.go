// Command lci is the CLI façade over the content/definition index core:
// build, search (grep/find/fast), definition lookup, call-graph traversal,
// the MCP stdio server, and index maintenance (info/cleanup).
//
// Grounded on the teacher's own cmd/lci/main.go: a urfave/cli.App with a
// shared set of root flags (--config, --root, --include, --exclude) and one
// subcommand per operation, each loading config via loadConfigWithOverrides
// before dispatching into the core packages.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/codesift/codesift/internal/config"
	"github.com/codesift/codesift/internal/version"
)

// loadConfigWithOverrides mirrors the teacher's own helper: load the KDL
// config for the resolved root, then let --include/--exclude/--root flags
// override whatever the file specified.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	cfg, err := config.LoadWithRoot(c.String("config"), absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Project.Root = absRoot

	if include := c.StringSlice("include"); len(include) > 0 {
		cfg.Include = include
	}
	if exclude := c.StringSlice("exclude"); len(exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, exclude...)
	}
	if baseDir := c.String("index-dir"); baseDir != "" {
		cfg.Persist.BaseDir = baseDir
	}
	return cfg, nil
}

func main() {
	app := &cli.App{
		Name:                   "lci",
		Usage:                  "Code intelligence: content/definition indexing and call-graph queries",
		Version:                version.Full(),
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   ".lci.kdl",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to index (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (e.g. --include '**/*.cs')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns",
			},
			&cli.StringFlag{
				Name:  "index-dir",
				Usage: "Override the persisted-index base directory",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Emit log diagnostics (watcher events, per-file warnings) to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			if !c.Bool("verbose") {
				log.SetOutput(io.Discard)
			}
			return nil
		},
		Commands: []*cli.Command{
			buildCommand(),
			grepCommand("grep", "Token/phrase search over the content index"),
			grepCommand("find", "Alias of grep"),
			fastCommand(),
			defCommand(),
			treeCommand(),
			serveCommand(),
			watchCommand(),
			infoCommand(),
			auditCommand(),
			cleanupCommand(),
			githistCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lci:", err)
		os.Exit(1)
	}
}
