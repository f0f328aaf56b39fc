package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/mission-control/internal/app"
	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/stats"
)

func init() {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Schedule and manage tasks",
	}

	add := &cobra.Command{
		Use:   "add [title]",
		Short: "Schedule a task",
		Run:   runTaskAdd,
	}
	add.Flags().String("at", "", "When the task is due (required)")
	add.Flags().StringP("recurrence", "r", "once", "Recurrence: once, daily, weekly, monthly")
	add.Flags().StringP("priority", "p", "medium", "Priority: low, medium, high")
	add.Flags().String("description", "", "Description")
	add.Flags().String("category", "", "Category")
	add.Flags().String("source", "", "Source")
	add.Flags().String("meta", "", "JSON metadata")
	add.MarkFlagRequired("at")

	list := &cobra.Command{
		Use:   "list",
		Short: "List upcoming pending tasks",
		Run:   runTaskList,
	}
	list.Flags().String("from", "", "List tasks due at or after this time (default now)")
	list.Flags().IntP("limit", "l", 20, "Max results")

	rng := &cobra.Command{
		Use:   "range",
		Short: "List tasks in a time range, inclusive",
		Run:   runTaskRange,
	}
	rng.Flags().String("from", "", "Range start (required)")
	rng.Flags().String("to", "", "Range end (required)")
	rng.MarkFlagRequired("from")
	rng.MarkFlagRequired("to")

	week := &cobra.Command{
		Use:   "week",
		Short: "List tasks in a week",
		Run:   runTaskWeek,
	}
	week.Flags().String("start", "", "Week start (default: this week's Sunday)")

	month := &cobra.Command{
		Use:   "month",
		Short: "List tasks in a calendar month",
		Run:   runTaskMonth,
	}
	month.Flags().Int("year", 0, "Year (default: current)")
	month.Flags().Int("month", 0, "Month 1-12 (default: current)")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		Run:   runTaskGet,
	}
	get.Flags().IntP("upcoming", "n", 0, "Also show the next N occurrences of a recurring task")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a task's fields",
		Args:  cobra.ExactArgs(1),
		Run:   runTaskUpdate,
	}
	update.Flags().String("title", "", "Title")
	update.Flags().String("description", "", "Description")
	update.Flags().String("at", "", "When the task is due")
	update.Flags().String("category", "", "Category")
	update.Flags().StringP("priority", "p", "", "Priority: low, medium, high")
	update.Flags().String("meta", "", "JSON metadata")

	complete := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task completed; recurring tasks get their next occurrence",
		Args:  cobra.ExactArgs(1),
		Run:   runTaskComplete,
	}

	cancel := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending task",
		Args:  cobra.ExactArgs(1),
		Run:   runTaskCancel,
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		Run:   runTaskRm,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Task counts by status and priority",
		Run:   runTaskStats,
	}

	cmd.AddCommand(add, list, rng, week, month, get, update, complete, cancel, rm, statsCmd)
	RootCmd.AddCommand(cmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) {
	title := strings.TrimSpace(strings.Join(args, " "))
	recurrence, _ := cmd.Flags().GetString("recurrence")
	priority, _ := cmd.Flags().GetString("priority")
	description, _ := cmd.Flags().GetString("description")
	category, _ := cmd.Flags().GetString("category")
	source, _ := cmd.Flags().GetString("source")

	in := model.TaskInput{
		Title:        title,
		Description:  description,
		ScheduledFor: timeFlag(cmd, "at"),
		Recurrence:   model.Recurrence(recurrence),
		Category:     category,
		Priority:     model.Priority(priority),
		Source:       source,
		Metadata:     metaFlag(cmd),
	}

	e := openEnv()
	defer e.Close()

	t, err := e.svc.CreateTask(ctxOf(cmd), in)
	if err != nil {
		exitErr("task add", err)
	}
	printJSON(t)
}

func runTaskList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	from := timeFlag(cmd, "from")

	e := openEnv()
	defer e.Close()

	if from.IsZero() {
		from = e.svc.Now()
	}
	tasks, err := e.svc.UpcomingTasks(ctxOf(cmd), from, limit)
	if err != nil {
		exitErr("task list", err)
	}
	printTasks(tasks)
}

func runTaskRange(cmd *cobra.Command, args []string) {
	from := timeFlag(cmd, "from")
	to := timeFlag(cmd, "to")

	e := openEnv()
	defer e.Close()

	tasks, err := e.svc.TasksInRange(ctxOf(cmd), from, to)
	if err != nil {
		exitErr("task range", err)
	}
	printTasks(tasks)
}

func runTaskWeek(cmd *cobra.Command, args []string) {
	start := timeFlag(cmd, "start")

	e := openEnv()
	defer e.Close()

	if start.IsZero() {
		start = app.WeekStart(e.svc.Now())
	}
	tasks, err := e.svc.TasksByWeek(ctxOf(cmd), start)
	if err != nil {
		exitErr("task week", err)
	}
	printTasks(tasks)
}

func runTaskMonth(cmd *cobra.Command, args []string) {
	year, _ := cmd.Flags().GetInt("year")
	month, _ := cmd.Flags().GetInt("month")

	e := openEnv()
	defer e.Close()

	now := e.svc.Now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	tasks, err := e.svc.TasksByMonth(ctxOf(cmd), year, time.Month(month))
	if err != nil {
		exitErr("task month", err)
	}
	printTasks(tasks)
}

func runTaskGet(cmd *cobra.Command, args []string) {
	upcoming, _ := cmd.Flags().GetInt("upcoming")

	e := openEnv()
	defer e.Close()

	t, err := e.svc.GetTask(ctxOf(cmd), args[0])
	if err != nil {
		exitErr("task get", err)
	}
	if upcoming <= 0 {
		printJSON(t)
		return
	}

	next := e.svc.Occurrences(t, upcoming)
	if textOutput() {
		printTasks([]model.ScheduledTask{*t})
		for _, at := range next {
			fmt.Printf("  then %s\n", at.Format(textTime))
		}
		return
	}
	printJSON(struct {
		*model.ScheduledTask
		Upcoming []time.Time `json:"upcoming"`
	}{t, orEmpty(next)})
}

func runTaskUpdate(cmd *cobra.Command, args []string) {
	p := model.TaskPatch{
		Title:       optString(cmd, "title"),
		Description: optString(cmd, "description"),
		Category:    optString(cmd, "category"),
		Metadata:    metaFlag(cmd),
	}
	if cmd.Flags().Changed("at") {
		at := timeFlag(cmd, "at")
		p.ScheduledFor = &at
	}
	if v := optString(cmd, "priority"); v != nil {
		pr := model.Priority(*v)
		p.Priority = &pr
	}

	e := openEnv()
	defer e.Close()

	t, err := e.svc.UpdateTask(ctxOf(cmd), args[0], p)
	if err != nil {
		exitErr("task update", err)
	}
	printJSON(t)
}

func runTaskComplete(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	done, next, err := e.svc.CompleteTask(ctxOf(cmd), args[0])
	if err != nil {
		exitErr("task complete", err)
	}
	if textOutput() {
		fmt.Printf("completed %s %q\n", done.ID, done.Title)
		if next != nil {
			fmt.Printf("next %s at %s\n", next.ID, next.ScheduledFor.Local().Format(textTime))
		}
		return
	}
	printJSON(struct {
		Task *model.ScheduledTask `json:"task"`
		Next *model.ScheduledTask `json:"next,omitempty"`
	}{done, next})
}

func runTaskCancel(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	t, err := e.svc.CancelTask(ctxOf(cmd), args[0])
	if err != nil {
		exitErr("task cancel", err)
	}
	printJSON(t)
}

func runTaskRm(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	if err := e.svc.DeleteTask(ctxOf(cmd), args[0]); err != nil {
		exitErr("task rm", err)
	}
	printJSON(map[string]string{"deleted": args[0]})
}

func runTaskStats(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	st, err := e.svc.TaskStats(ctxOf(cmd))
	if err != nil {
		exitErr("task stats", err)
	}
	if textOutput() {
		fmt.Printf("total %d  pending %d  completed %d  cancelled %d  overdue %d  completion %d%%\n",
			st.Total, st.Pending, st.Completed, st.Cancelled, st.Overdue, st.CompletionRate())
		return
	}
	printJSON(struct {
		stats.TaskStats
		CompletionRate int `json:"completion_rate"`
	}{st, st.CompletionRate()})
}
