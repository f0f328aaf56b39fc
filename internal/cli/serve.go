package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/mission-control/internal/feed"
	"github.com/rcliao/mission-control/internal/httpapi"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and live feed",
		Long: `Serve the JSON API, the /ws/feed websocket and /metrics.

Documents under indexer.roots are indexed on start and kept current while
the server runs unless --no-index is given.`,
		Run: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default: server.addr from config)")
	cmd.Flags().Bool("no-index", false, "Do not index or watch indexer.roots")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	noIndex, _ := cmd.Flags().GetBool("no-index")

	e := openEnv()
	defer e.Close()
	if addr == "" {
		addr = e.cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(ctxOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if roots := e.cfg.Indexer.Roots; len(roots) > 0 && !noIndex {
		ix := newIndexer(e)
		go func() {
			for _, root := range roots {
				res, err := ix.IndexRoot(ctx, root)
				if err != nil {
					e.logger.Error("index root failed", "root", root, "err", err)
					continue
				}
				e.logger.Info("indexed root", "root", res.Root, "indexed", res.Indexed, "skipped", res.Skipped, "removed", res.Removed)
			}
			if err := ix.Watch(ctx, roots...); err != nil {
				e.logger.Error("document watch stopped", "err", err)
			}
		}()
	}

	srv := httpapi.New(e.svc,
		httpapi.WithLogger(e.logger.WithPrefix("http")),
		httpapi.WithRegistry(e.registry),
		httpapi.WithFeedOptions(
			feed.WithDebounce(e.cfg.Search.Debounce.Std()),
			feed.WithSearchLimit(e.cfg.Search.Limit),
		),
	)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		exitErr("serve", err)
	}
}
