// Package stats computes dashboard summaries from full record scans.
// Nothing is cached: every call reflects exactly the records it is given.
package stats

import (
	"math"
	"time"

	"github.com/rcliao/mission-control/internal/model"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// ActivityStats summarizes the activity timeline.
type ActivityStats struct {
	Total      int                          `json:"total"`
	ByType     map[model.ActivityType]int   `json:"by_type"`
	ByCategory map[string]int               `json:"by_category"`
	ByStatus   map[model.ActivityStatus]int `json:"by_status"`
	Today      int                          `json:"today"`
	ThisWeek   int                          `json:"this_week"`
}

// SuccessRate returns the rounded percentage of successful activities, or
// 0 when there are none.
func (s ActivityStats) SuccessRate() int {
	return percent(s.ByStatus[model.ActivitySuccess], s.Total)
}

// TaskStats summarizes scheduled tasks.
type TaskStats struct {
	Total      int                    `json:"total"`
	Pending    int                    `json:"pending"`
	Completed  int                    `json:"completed"`
	Cancelled  int                    `json:"cancelled"`
	Overdue    int                    `json:"overdue"`
	Today      int                    `json:"today"`
	ThisWeek   int                    `json:"this_week"`
	ByPriority map[model.Priority]int `json:"by_priority"`
}

// CompletionRate returns the rounded percentage of completed tasks, or 0
// when there are none.
func (s TaskStats) CompletionRate() int {
	return percent(s.Completed, s.Total)
}

// Midnight returns the start of now's calendar day in now's location.
func Midnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// Activities counts activities by type, category and status. Today covers
// timestamps from local midnight; ThisWeek the trailing seven days.
func Activities(acts []model.Activity, now time.Time) ActivityStats {
	st := ActivityStats{
		Total:      len(acts),
		ByType:     make(map[model.ActivityType]int),
		ByCategory: make(map[string]int),
		ByStatus: map[model.ActivityStatus]int{
			model.ActivitySuccess: 0,
			model.ActivityFailed:  0,
			model.ActivityPending: 0,
		},
	}
	midnight := Midnight(now)
	weekAgo := now.Add(-week)

	for _, a := range acts {
		st.ByType[a.Type]++
		if a.Category != "" {
			st.ByCategory[a.Category]++
		}
		if a.Status != "" {
			st.ByStatus[a.Status]++
		}
		if !a.Timestamp.Before(midnight) {
			st.Today++
		}
		if !a.Timestamp.Before(weekAgo) {
			st.ThisWeek++
		}
	}
	return st
}

// Tasks counts tasks by status and priority. Overdue tasks are pending and
// scheduled before now. Today is [midnight, midnight+24h) and ThisWeek is
// [midnight, midnight+7×24h).
func Tasks(tasks []model.ScheduledTask, now time.Time) TaskStats {
	st := TaskStats{
		Total: len(tasks),
		ByPriority: map[model.Priority]int{
			model.PriorityLow:    0,
			model.PriorityMedium: 0,
			model.PriorityHigh:   0,
		},
	}
	midnight := Midnight(now)
	tomorrow := midnight.Add(day)
	weekEnd := midnight.Add(week)

	for _, t := range tasks {
		switch t.Status {
		case model.TaskPending:
			st.Pending++
		case model.TaskCompleted:
			st.Completed++
		case model.TaskCancelled:
			st.Cancelled++
		}
		if t.Overdue(now) {
			st.Overdue++
		}
		if t.Priority != "" {
			st.ByPriority[t.Priority]++
		}
		if t.ScheduledFor.Before(midnight) {
			continue
		}
		if t.ScheduledFor.Before(tomorrow) {
			st.Today++
		}
		if t.ScheduledFor.Before(weekEnd) {
			st.ThisWeek++
		}
	}
	return st
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
