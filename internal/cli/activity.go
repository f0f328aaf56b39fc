package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/stats"
	"github.com/rcliao/mission-control/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Record and browse activities",
	}

	add := &cobra.Command{
		Use:   "add [title]",
		Short: "Record an activity",
		Run:   runActivityAdd,
	}
	add.Flags().StringP("type", "t", "", "Type: task_completed, task_created, file_created, file_modified, command_executed, message_sent, search_performed, cron_scheduled, cron_completed, note_added (required)")
	add.Flags().String("description", "", "Description")
	add.Flags().String("category", "", "Category")
	add.Flags().String("status", "", "Status: success, failed, pending (default success)")
	add.Flags().Float64("duration", 0, "Duration in seconds")
	add.Flags().String("session", "", "Session key")
	add.Flags().String("meta", "", "JSON metadata")
	add.MarkFlagRequired("type")

	list := &cobra.Command{
		Use:   "list",
		Short: "List activities newest first",
		Run:   runActivityList,
	}
	list.Flags().StringP("type", "t", "", "Filter by type")
	list.Flags().String("category", "", "Filter by category (ignored when --type is set)")
	list.Flags().String("before", "", "Only activities older than this time")
	list.Flags().IntP("limit", "l", 50, "Max results")

	rng := &cobra.Command{
		Use:   "range",
		Short: "List activities in a time range, inclusive",
		Run:   runActivityRange,
	}
	rng.Flags().String("from", "", "Range start (required)")
	rng.Flags().String("to", "", "Range end (required)")
	rng.MarkFlagRequired("from")
	rng.MarkFlagRequired("to")

	status := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change an activity's status",
		Args:  cobra.ExactArgs(2),
		Run:   runActivityStatus,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Activity counts by type, category and status",
		Run:   runActivityStats,
	}

	cmd.AddCommand(add, list, rng, status, statsCmd)
	RootCmd.AddCommand(cmd)
}

func runActivityAdd(cmd *cobra.Command, args []string) {
	title := strings.TrimSpace(strings.Join(args, " "))
	typ, _ := cmd.Flags().GetString("type")
	description, _ := cmd.Flags().GetString("description")
	category, _ := cmd.Flags().GetString("category")
	status, _ := cmd.Flags().GetString("status")
	session, _ := cmd.Flags().GetString("session")

	in := model.ActivityInput{
		Type:        model.ActivityType(typ),
		Title:       title,
		Description: description,
		Category:    category,
		Status:      model.ActivityStatus(status),
		SessionKey:  session,
		Metadata:    metaFlag(cmd),
	}
	if cmd.Flags().Changed("duration") {
		d, _ := cmd.Flags().GetFloat64("duration")
		in.DurationSeconds = &d
	}

	e := openEnv()
	defer e.Close()

	a, err := e.svc.CreateActivity(ctxOf(cmd), in)
	if err != nil {
		exitErr("activity add", err)
	}
	printJSON(a)
}

func runActivityList(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")

	q := store.ActivityQuery{Category: category, Limit: limit}
	if typ != "" {
		t, err := model.ParseActivityType(typ)
		if err != nil {
			exitErr("activity list", err)
		}
		q.Type = t
	}
	if before := timeFlag(cmd, "before"); !before.IsZero() {
		q.Before = &before
	}

	e := openEnv()
	defer e.Close()

	acts, err := e.svc.ListActivities(ctxOf(cmd), q)
	if err != nil {
		exitErr("activity list", err)
	}
	printActivities(acts)
}

func runActivityRange(cmd *cobra.Command, args []string) {
	from := timeFlag(cmd, "from")
	to := timeFlag(cmd, "to")

	e := openEnv()
	defer e.Close()

	acts, err := e.svc.ActivitiesInRange(ctxOf(cmd), from, to)
	if err != nil {
		exitErr("activity range", err)
	}
	printActivities(acts)
}

func runActivityStatus(cmd *cobra.Command, args []string) {
	status, err := model.ParseActivityStatus(args[1])
	if err != nil {
		exitErr("activity status", err)
	}

	e := openEnv()
	defer e.Close()

	a, err := e.svc.UpdateActivityStatus(ctxOf(cmd), args[0], status)
	if err != nil {
		exitErr("activity status", err)
	}
	printJSON(a)
}

func runActivityStats(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	st, err := e.svc.ActivityStats(ctxOf(cmd))
	if err != nil {
		exitErr("activity stats", err)
	}
	if textOutput() {
		fmt.Printf("total %d  today %d  this week %d  success %d%%\n", st.Total, st.Today, st.ThisWeek, st.SuccessRate())
		for t, n := range st.ByType {
			fmt.Printf("  %-18s %d\n", t, n)
		}
		return
	}
	printJSON(struct {
		stats.ActivityStats
		SuccessRate int `json:"success_rate"`
	}{st, st.SuccessRate()})
}
