package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/codesift/codesift/internal/calltree"
	"github.com/codesift/codesift/internal/query"
)

// treeCommand implements §4.6's caller/callee tree builder.
func treeCommand() *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Build a bounded caller or callee tree for a method",
		ArgsUsage: "<method>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "class", Usage: "Scope the lookup to this class/interface"},
			&cli.StringFlag{Name: "direction", Value: "down", Usage: "\"up\" (callers) or \"down\" (callees)"},
			&cli.IntFlag{Name: "max-depth", Value: 5, Usage: "Maximum tree depth"},
			&cli.IntFlag{Name: "max-callers-per-level", Value: 25, Usage: "Maximum siblings expanded per node"},
			&cli.IntFlag{Name: "max-total-nodes", Value: 500, Usage: "Whole-tree node budget"},
			&cli.StringSliceFlag{Name: "ext", Usage: "Limit to file extensions (repeatable)"},
			&cli.StringSliceFlag{Name: "exclude-dir", Usage: "Exclude paths containing this substring (repeatable)"},
			&cli.StringSliceFlag{Name: "exclude-file", Usage: "Exclude paths containing this substring (repeatable)"},
			&cli.BoolFlag{Name: "json", Usage: "Emit the tree as JSON"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("usage: lci tree <method>")
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			cidx, didx, err := loadIndexes(cfg, true)
			if err != nil {
				return err
			}
			h := newHandlers(cidx, didx, cfg.Project.Root)

			req := calltree.Request{
				Method:             c.Args().First(),
				Class:              c.String("class"),
				MaxDepth:           c.Int("max-depth"),
				MaxCallersPerLevel: c.Int("max-callers-per-level"),
				MaxTotalNodes:      c.Int("max-total-nodes"),
				Ext:                c.StringSlice("ext"),
				ExcludeDir:         c.StringSlice("exclude-dir"),
				ExcludeFile:        c.StringSlice("exclude-file"),
			}

			var resp query.TreeResponse
			if strings.EqualFold(c.String("direction"), "up") {
				resp, err = h.Callers(req)
			} else {
				resp, err = h.Callees(req)
			}
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			if resp.Result.AmbiguityWarning != "" {
				fmt.Fprintln(os.Stderr, "warning:", resp.Result.AmbiguityWarning)
			}
			for _, root := range resp.Result.Roots {
				printNode(root, 0)
			}
			fmt.Printf("(%d nodes visited, truncated=%v)\n", resp.Result.TotalNodes, resp.Result.Truncated)
			return nil
		},
	}
}

func printNode(n *calltree.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.Class != "" {
		fmt.Printf("%s%s.%s  %s:%d\n", indent, n.Class, n.Method, n.File, n.LineStart)
	} else {
		fmt.Printf("%s%s  %s:%d\n", indent, n.Method, n.File, n.LineStart)
	}
	for _, child := range n.Children {
		printNode(child, depth+1)
	}
}
