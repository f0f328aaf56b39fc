package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/mission-control/internal/stats"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show activity and task statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type dashboardStats struct {
	Activities     stats.ActivityStats `json:"activities"`
	SuccessRate    int                 `json:"success_rate"`
	Tasks          stats.TaskStats     `json:"tasks"`
	CompletionRate int                 `json:"completion_rate"`
}

func runStats(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	acts, err := e.svc.ActivityStats(ctxOf(cmd))
	if err != nil {
		exitErr("stats", err)
	}
	tasks, err := e.svc.TaskStats(ctxOf(cmd))
	if err != nil {
		exitErr("stats", err)
	}

	if textOutput() {
		fmt.Printf("activities  total %d  today %d  this week %d  success %d%%\n",
			acts.Total, acts.Today, acts.ThisWeek, acts.SuccessRate())
		fmt.Printf("tasks       total %d  pending %d  overdue %d  today %d  completion %d%%\n",
			tasks.Total, tasks.Pending, tasks.Overdue, tasks.Today, tasks.CompletionRate())
		return
	}
	printJSON(dashboardStats{
		Activities:     acts,
		SuccessRate:    acts.SuccessRate(),
		Tasks:          tasks,
		CompletionRate: tasks.CompletionRate(),
	})
}
