// Package schedule computes the next occurrence of a recurring task.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rcliao/mission-control/internal/model"
)

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Spec returns the cron expression that repeats rec at anchor's time of
// day: daily at that time, weekly on its weekday, monthly on its day of
// month. It returns "" for one-off tasks.
func Spec(rec model.Recurrence, anchor time.Time) string {
	s, m, h := anchor.Second(), anchor.Minute(), anchor.Hour()
	switch rec {
	case model.RecurDaily:
		return fmt.Sprintf("%d %d %d * * *", s, m, h)
	case model.RecurWeekly:
		return fmt.Sprintf("%d %d %d * * %d", s, m, h, int(anchor.Weekday()))
	case model.RecurMonthly:
		return fmt.Sprintf("%d %d %d %d * *", s, m, h, anchor.Day())
	}
	return ""
}

// Next returns the first occurrence of rec strictly after from, in from's
// location. Monthly schedules anchored on a day some months lack skip
// those months. ok is false for one-off tasks.
func Next(rec model.Recurrence, from time.Time) (next time.Time, ok bool) {
	spec := Spec(rec, from)
	if spec == "" {
		return time.Time{}, false
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return time.Time{}, false
	}
	next = sched.Next(from)
	if next.IsZero() {
		return time.Time{}, false
	}
	// cron works in whole seconds; keep the anchor's sub-second part.
	return next.Add(time.Duration(from.Nanosecond())), true
}

// Upcoming returns up to n occurrences of rec after from.
func Upcoming(rec model.Recurrence, from time.Time, n int) []time.Time {
	var out []time.Time
	cur := from
	for len(out) < n {
		next, ok := Next(rec, cur)
		if !ok {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out
}
