package model

import "time"

// TaskStatus is the lifecycle state of a scheduled task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
)

var validTaskStatuses = map[TaskStatus]bool{
	TaskPending:   true,
	TaskCompleted: true,
	TaskCancelled: true,
}

func (s TaskStatus) Valid() bool { return validTaskStatuses[s] }

// Terminal reports whether no further transition is permitted from s.
func (s TaskStatus) Terminal() bool { return s == TaskCompleted || s == TaskCancelled }

// ParseTaskStatus parses a task status name.
func ParseTaskStatus(s string) (TaskStatus, error) {
	return parseEnum("task status", s, validTaskStatuses)
}

// Recurrence describes how a task repeats.
type Recurrence string

const (
	RecurOnce    Recurrence = "once"
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

var validRecurrences = map[Recurrence]bool{
	RecurOnce:    true,
	RecurDaily:   true,
	RecurWeekly:  true,
	RecurMonthly: true,
}

func (r Recurrence) Valid() bool { return validRecurrences[r] }

// ParseRecurrence parses a recurrence name. Empty means once.
func ParseRecurrence(s string) (Recurrence, error) {
	if s == "" {
		return RecurOnce, nil
	}
	return parseEnum("recurrence", s, validRecurrences)
}

// Priority ranks a task. The empty value means absent.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
}

func (p Priority) Valid() bool { return validPriorities[p] }

// ParsePriority parses a priority name.
func ParsePriority(s string) (Priority, error) {
	return parseEnum("priority", s, validPriorities)
}

// ScheduledTask is a calendar item due at ScheduledFor.
type ScheduledTask struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	ScheduledFor time.Time      `json:"scheduled_for"`
	Recurrence   Recurrence     `json:"recurrence"`
	Status       TaskStatus     `json:"status"`
	Category     string         `json:"category,omitempty"`
	Priority     Priority       `json:"priority,omitempty"`
	Source       string         `json:"source,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// Overdue reports whether the task is pending and past due at now.
func (t ScheduledTask) Overdue(now time.Time) bool {
	return t.Status == TaskPending && t.ScheduledFor.Before(now)
}

// TaskInput holds the caller-supplied fields of a new task.
type TaskInput struct {
	Title        string
	Description  string
	ScheduledFor time.Time
	Recurrence   Recurrence
	Category     string
	Priority     Priority
	Source       string
	Metadata     map[string]any
}

// Validate checks required fields and enumerations.
func (in TaskInput) Validate() error {
	if err := required("title", in.Title); err != nil {
		return err
	}
	if in.ScheduledFor.IsZero() {
		return &ValidationError{Field: "scheduled_for", Reason: "required"}
	}
	if in.Recurrence != "" && !in.Recurrence.Valid() {
		return enumError("recurrence", in.Recurrence, validRecurrences)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return enumError("priority", in.Priority, validPriorities)
	}
	return nil
}

// TaskPatch lists the task fields to change. Nil fields are left untouched.
type TaskPatch struct {
	Title        *string
	Description  *string
	ScheduledFor *time.Time
	Status       *TaskStatus
	Category     *string
	Priority     *Priority
	Metadata     map[string]any
}

// Validate checks the enumerations carried by the patch.
func (p TaskPatch) Validate() error {
	if p.Title != nil {
		if err := required("title", *p.Title); err != nil {
			return err
		}
	}
	if p.ScheduledFor != nil && p.ScheduledFor.IsZero() {
		return &ValidationError{Field: "scheduled_for", Reason: "required"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return enumError("task status", *p.Status, validTaskStatuses)
	}
	if p.Priority != nil && *p.Priority != "" && !p.Priority.Valid() {
		return enumError("priority", *p.Priority, validPriorities)
	}
	return nil
}
