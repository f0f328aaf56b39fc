package cli

import (
	"fmt"
	"strings"

	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/search"
)

const textTime = "2006-01-02 15:04"

// itemLine renders one feed item on a single line.
func itemLine(it search.Item) string {
	switch {
	case it.Activity != nil:
		a := it.Activity
		return fmt.Sprintf("%s  activity  %-8s %s (%s)", a.Timestamp.Local().Format(textTime), a.Status, a.Title, a.Type)
	case it.Task != nil:
		t := it.Task
		return fmt.Sprintf("%s  task      %-8s %s [%s, %s]", t.ScheduledFor.Local().Format(textTime), t.Status, t.Title, t.Priority, t.Recurrence)
	case it.Memory != nil:
		m := it.Memory
		return fmt.Sprintf("%s  memory    %-8s %s", m.UpdatedAt.Local().Format(textTime), m.Type, snippet(m.Content, 80))
	case it.Document != nil:
		d := it.Document
		line := fmt.Sprintf("%s  document  %-8s %s", d.LastModified.Local().Format(textTime), d.Type, d.Path)
		if it.Match != nil {
			line += "\n" + strings.Repeat(" ", 28) + snippet(it.Match.Text, 80)
		}
		return line
	}
	return string(it.Type)
}

func printItems(items []search.Item) {
	if len(items) == 0 {
		fmt.Println("(nothing)")
		return
	}
	for _, it := range items {
		fmt.Println(itemLine(it))
	}
}

func printTasks(tasks []model.ScheduledTask) {
	if !textOutput() {
		printJSON(orEmpty(tasks))
		return
	}
	printItems(search.Wrap(tasks, search.TaskItem))
}

func printActivities(acts []model.Activity) {
	if !textOutput() {
		printJSON(orEmpty(acts))
		return
	}
	printItems(search.Wrap(acts, search.ActivityItem))
}

// snippet collapses whitespace and cuts s to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
