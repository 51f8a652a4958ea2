package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/codesift/codesift/internal/defindex"
	"github.com/codesift/codesift/internal/query"
	"github.com/codesift/codesift/internal/types"
)

// defCommand implements §4.5's definition query as the "def" subcommand.
func defCommand() *cli.Command {
	return &cli.Command{
		Name:      "def",
		Usage:     "Query the definition index (classes, methods, properties, ...)",
		ArgsUsage: "[name substring or regex]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "regex", Usage: "Treat the name argument as a regex"},
			&cli.StringFlag{Name: "kind", Usage: "Filter by definition kind (Class, Method, Interface, ...)"},
			&cli.StringFlag{Name: "parent", Usage: "Filter by enclosing type name"},
			&cli.StringFlag{Name: "attribute", Usage: "Filter by attribute/decorator name"},
			&cli.StringFlag{Name: "base-type", Usage: "Filter by base type / implemented interface"},
			&cli.StringFlag{Name: "file", Usage: "Filter by path substring (separator-insensitive)"},
			&cli.StringFlag{Name: "exclude-dir", Usage: "Exclude paths containing this substring"},
			&cli.StringFlag{Name: "exclude-file", Usage: "Exclude paths containing this substring"},
			&cli.IntFlag{Name: "contains-line", Usage: "Select definitions whose span contains this 1-based line (requires --file)"},
			&cli.BoolFlag{Name: "include-body", Usage: "Read and include each definition's source body"},
			&cli.IntFlag{Name: "max-body-lines", Value: 200, Usage: "Per-definition body line cap"},
			&cli.IntFlag{Name: "max-total-body-lines", Value: 2000, Usage: "Response-wide body line budget"},
			&cli.BoolFlag{Name: "json", Usage: "Emit results as JSON"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			cidx, didx, err := loadIndexes(cfg, true)
			if err != nil {
				return err
			}
			h := newHandlers(cidx, didx, cfg.Project.Root)

			f := defindex.Filter{
				Name:            strings.Join(c.Args().Slice(), " "),
				NameRegex:       c.Bool("regex"),
				Parent:          c.String("parent"),
				Attribute:       c.String("attribute"),
				BaseType:        c.String("base-type"),
				File:            c.String("file"),
				ExcludeDir:      c.String("exclude-dir"),
				ExcludeFile:     c.String("exclude-file"),
				ContainsLine:    c.Int("contains-line"),
				HasContainsLine: c.IsSet("contains-line"),
			}
			if kind := c.String("kind"); kind != "" {
				k, ok := types.ParseDefinitionKind(kind)
				if !ok {
					return fmt.Errorf("def: unknown kind %q", kind)
				}
				f.Kind = k
				f.HasKind = true
			}
			opts := query.FindOptions{
				IncludeBody:   c.Bool("include-body"),
				MaxBodyLines:  c.Int("max-body-lines"),
				MaxTotalLines: c.Int("max-total-body-lines"),
			}

			resp, err := h.Find(f, opts)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			for _, hit := range resp.Hits {
				d := hit.Def
				loc := fmt.Sprintf("%s:%d-%d", hit.Path, d.LineStart, d.LineEnd)
				if d.Parent != "" {
					fmt.Printf("[%s] %s %s.%s  %s\n", hit.ID, d.Kind, d.Parent, d.Name, loc)
				} else {
					fmt.Printf("[%s] %s %s  %s\n", hit.ID, d.Kind, d.Name, loc)
				}
				for _, l := range hit.Body {
					fmt.Println("    " + l)
				}
				if hit.BodyWarn != "" {
					fmt.Fprintln(os.Stderr, "  warning:", hit.BodyWarn)
				}
				if hit.BodyError != "" {
					fmt.Fprintln(os.Stderr, "  error:", hit.BodyError)
				}
			}
			return nil
		},
	}
}

// auditCommand exposes §4.5's audit=true overview as its own top-level verb,
// alongside "def --audit"-equivalent access through the MCP tool.
func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Report definition-index health: parse errors, lossy files, suspicious empty files",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Emit the report as JSON"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			cidx, didx, err := loadIndexes(cfg, true)
			if err != nil {
				return err
			}
			h := newHandlers(cidx, didx, cfg.Project.Root)

			resp, err := h.Audit()
			if err != nil {
				return err
			}
			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			r := resp.Report
			fmt.Printf("files: %d (with defs: %d, without: %d)\n", r.TotalFiles, r.FilesWithDefs, r.FilesWithoutDefs)
			fmt.Printf("parse errors: %d, lossy files: %d\n", r.ParseErrors, r.LossyFileCount)
			for _, s := range r.Suspicious {
				fmt.Printf("  suspicious: %s (%d bytes, 0 defs)\n", s.Path, s.ByteSize)
			}
			return nil
		},
	}
}
