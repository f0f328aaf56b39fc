package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mission-control/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every collection at once",
		Long:  "Search activities, tasks, memories and documents. Hits are merged newest first and the query is recorded in search history.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}
	cmd.Flags().IntP("limit", "l", 0, "Max hits per collection (default: search.limit from config)")
	cmd.Flags().String("filter", "", "Only show these types (comma-separated: memory, document, activity, task)")

	history := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches",
		Run:   runSearchHistory,
	}
	history.Flags().IntP("limit", "l", 20, "Max entries")

	cmd.AddCommand(history)
	RootCmd.AddCommand(cmd)
}

func filterFlag(cmd *cobra.Command) search.FilterSet {
	raw, _ := cmd.Flags().GetString("filter")
	f, err := search.ParseFilters(splitList(raw))
	if err != nil {
		exitErr("filter", err)
	}
	return f
}

func runSearch(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")
	filters := filterFlag(cmd)

	e := openEnv()
	defer e.Close()

	res, err := e.svc.SearchAll(ctxOf(cmd), query, limit)
	if res == nil {
		exitErr("search", err)
	}
	var warnings []string
	if err != nil {
		e.logger.Warn("search incomplete", "err", err)
		warnings = append(warnings, err.Error())
	}

	items := search.Merge(res.PerType, filters)
	if textOutput() {
		printItems(items)
		fmt.Printf("\n%d shown, %d total\n", len(items), res.TotalCount)
		return
	}
	printJSON(struct {
		Query      string        `json:"query"`
		TotalCount int           `json:"total_count"`
		Items      []search.Item `json:"items"`
		Warnings   []string      `json:"warnings,omitempty"`
	}{query, res.TotalCount, items, warnings})
}

func runSearchHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	e := openEnv()
	defer e.Close()

	hist, err := e.svc.SearchHistory(ctxOf(cmd), limit)
	if err != nil {
		exitErr("search history", err)
	}
	if textOutput() {
		for _, h := range hist {
			fmt.Printf("%s  %-4d %s\n", h.Timestamp.Local().Format(textTime), h.ResultCount, h.Query)
		}
		return
	}
	printJSON(orEmpty(hist))
}
