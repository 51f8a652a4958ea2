package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/codesift/codesift/internal/parser"
	"github.com/codesift/codesift/internal/watch"
)

// watchCommand runs the §4.9 watcher standalone (no MCP surface), printing
// periodic activity stats until interrupted. Useful for keeping the
// persisted indexes warm for CLI queries from another terminal.
func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep the content/definition indexes updated as files change",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			cfg.Index.WatchMode = true

			cidx, didx, err := loadIndexes(cfg, true)
			if err != nil {
				return err
			}

			p := parser.NewTreeSitterParser()
			w := watch.New(cfg.Project.Root, cfg, p, cidx, didx)
			if err := w.Start(); err != nil {
				return fmt.Errorf("watch: failed to start: %w", err)
			}
			defer w.Stop()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			fmt.Printf("watching %s (debounce=%dms, bulk-threshold=%d)\n",
				cfg.Project.Root, cfg.Index.WatchDebounceMs, cfg.Index.BulkThreshold)

			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					s := w.Stats()
					fmt.Printf("batches=%d events=%d bulk-rebuilds=%d last=%s\n",
						s.BatchesApplied, s.EventsProcessed, s.BulkRebuilds, s.LastBatchAt)
				}
			}
		},
	}
}
