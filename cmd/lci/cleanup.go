package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/codesift/codesift/internal/persist"
)

// cleanupCommand implements §4.7's "Cleanup: removes blobs whose recorded
// root no longer exists", reading the CLI's manifest side table for the set
// of known (root, blob) pairs.
func cleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Remove persisted index blobs whose project root no longer exists",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			if cfg.Persist.BaseDir == "" {
				return fmt.Errorf("cleanup: no persist.base_dir configured")
			}

			blobs, err := knownBlobs(cfg.Persist.BaseDir)
			if err != nil {
				return err
			}
			removed, err := persist.Cleanup(blobs, func(root string) bool {
				info, statErr := os.Stat(root)
				return statErr == nil && info.IsDir()
			})
			if err != nil {
				return err
			}

			var staleRoots []string
			for _, b := range blobs {
				if _, statErr := os.Stat(b.Root); statErr != nil {
					staleRoots = append(staleRoots, b.Root)
				}
			}
			if len(staleRoots) > 0 {
				if err := removeManifestEntries(cfg.Persist.BaseDir, staleRoots); err != nil {
					return err
				}
			}

			for _, p := range removed {
				fmt.Println("removed", p)
			}
			fmt.Printf("removed %d blob(s)\n", len(removed))
			return nil
		},
	}
}
