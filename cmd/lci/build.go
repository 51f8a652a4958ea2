package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// buildCommand runs a one-shot build of the content and definition indexes
// and persists both, per §4.3/§4.7. It never auto-loads an existing index;
// it always rebuilds from disk, the CLI equivalent of the watcher's bulk
// rebuild path.
func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Build the content and definition indexes and persist them",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Emit the build summary as JSON"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			_, _, res, err := buildAndSave(cfg)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Printf("indexed %d files, %d definitions (%d parse errors, %d lossy files)\n",
				res.FileCount, res.DefCount, res.ParseErrors, res.LossyFileCount)
			return nil
		},
	}
}
