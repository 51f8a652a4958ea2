package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/codesift/codesift/internal/mcpserver"
	"github.com/codesift/codesift/internal/parser"
	"github.com/codesift/codesift/internal/query"
	"github.com/codesift/codesift/internal/watch"
)

// serveCommand runs the §6 MCP tool surface over stdio. It always enables
// Index.WatchMode and starts the §4.9 watcher, which feeds it live updates.
func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the MCP tool surface over stdio (search_grep, search_definitions, search_callers, ...)",
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

			h := query.New(cidx, didx, cfg.Project.Root)
			srv := mcpserver.New(h, cfg.Project.Root, cfg)

			p := parser.NewTreeSitterParser()
			w := watch.New(cfg.Project.Root, cfg, p, cidx, didx)
			if err := w.Start(); err != nil {
				return fmt.Errorf("serve: failed to start watcher: %w", err)
			}
			defer w.Stop()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			// A bulk rebuild (§4.9) swaps the watcher's index pair to a fresh
			// pair of objects rather than mutating in place, so the façade's
			// pointers need periodic resync. Per §5 "single-threaded request
			// handler is acceptable for the MCP façade", the swap races only
			// with the dispatcher's own single goroutine, matching the same
			// assumption the "search_reindex_definitions" tool already relies
			// on for its own in-place Handlers mutation.
			go resyncHandlers(ctx, h, w)

			return srv.Run(ctx)
		},
	}
}

func resyncHandlers(ctx context.Context, h *query.Handlers, w *watch.Watcher) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Content = w.Content()
			h.Definitions = w.Definitions()
		}
	}
}
