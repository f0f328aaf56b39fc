package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/mission-control/internal/feed"
	"github.com/rcliao/mission-control/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "feed [query]",
		Short: "Show the dashboard feed",
		Long: `Show the unified feed: recent items from every collection, or search
results when a query of at least two characters is given.

With --follow the feed stays open and prints a new view whenever the data
changes. Documents under indexer.roots are watched while following.`,
		Run: runFeed,
	}
	cmd.Flags().String("filter", "", "Only show these types (comma-separated: memory, document, activity, task)")
	cmd.Flags().Bool("follow", false, "Keep printing views as data changes")

	RootCmd.AddCommand(cmd)
}

func runFeed(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")
	filters := filterFlag(cmd)
	follow, _ := cmd.Flags().GetBool("follow")

	e := openEnv()
	defer e.Close()

	if !follow {
		printView(feedOnce(ctxOf(cmd), e, feed.State{Query: query, Debounced: query, Filters: filters}))
		return
	}

	ctx, stop := signal.NotifyContext(ctxOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := feed.NewSession(e.svc, e.svc.Subscribe(),
		feed.WithLogger(e.logger.WithPrefix("feed")),
		feed.WithDebounce(e.cfg.Search.Debounce.Std()),
		feed.WithSearchLimit(e.cfg.Search.Limit),
	)
	views, cancel := sess.Subscribe()
	defer cancel()

	go func() { _ = sess.Run(ctx) }()
	sess.SetFilters(filters)
	if query != "" {
		sess.SetQuery(query)
	}

	if roots := e.cfg.Indexer.Roots; len(roots) > 0 {
		ix := newIndexer(e)
		go func() {
			if err := ix.Watch(ctx, roots...); err != nil {
				e.logger.Error("document watch stopped", "err", err)
			}
		}()
	}

	for v := range views {
		printView(v)
	}
	<-sess.Done()
}

// feedOnce composes a single view without a session.
func feedOnce(ctx context.Context, e *env, state feed.State) feed.View {
	recent, err := e.svc.RecentAll(ctx)
	var warnings []string
	if err != nil {
		warnings = append(warnings, err.Error())
	}

	var results *search.Results
	if state.Searching() {
		res, err := e.svc.SearchAll(ctx, state.Debounced, 0)
		if res == nil {
			exitErr("feed", err)
		}
		if err != nil {
			warnings = append(warnings, err.Error())
		}
		results = res
	}

	v := feed.Compose(state, recent, results)
	v.Warnings = warnings
	return v
}

func printView(v feed.View) {
	if !textOutput() {
		printJSON(v)
		return
	}
	header := string(v.Mode)
	if v.Mode == feed.ModeSearch {
		header += fmt.Sprintf(" %q", v.Debounced)
	}
	if !v.Filters.Empty() {
		var names []string
		for _, t := range v.Filters.Types() {
			names = append(names, string(t))
		}
		header += " [" + strings.Join(names, ",") + "]"
	}
	fmt.Printf("== %s: %d items ==\n", header, len(v.Items))
	printItems(v.Items)
	for _, w := range v.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}
