package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// infoCommand reports a snapshot of both indexes, the CLI counterpart of
// the "search_info" MCP tool (§4.8).
func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Report index size, staleness, and parse-health counters",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Emit the snapshot as JSON"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			cidx, didx, err := loadIndexes(cfg, false)
			if err != nil {
				return err
			}
			h := newHandlers(cidx, didx, cfg.Project.Root)
			resp := h.Info()

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			fmt.Printf("root: %s\n", resp.Root)
			fmt.Printf("files: %d  total tokens: %d\n", resp.FileCount, resp.TotalTokens)
			fmt.Printf("definitions: %d  parse errors: %d  lossy files: %d\n",
				resp.DefinitionCount, resp.ParseErrors, resp.LossyFileCount)
			fmt.Printf("content index built: %s (stale=%v)\n", resp.ContentCreatedAt, resp.ContentStale)
			fmt.Printf("definition index built: %s (stale=%v)\n", resp.DefIndexCreatedAt, resp.DefIndexStale)
			return nil
		},
	}
}
