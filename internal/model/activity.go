package model

import "time"

// ActivityType is the kind of action an activity records.
type ActivityType string

const (
	ActivityTaskCompleted   ActivityType = "task_completed"
	ActivityTaskCreated     ActivityType = "task_created"
	ActivityFileCreated     ActivityType = "file_created"
	ActivityFileModified    ActivityType = "file_modified"
	ActivityCommandExecuted ActivityType = "command_executed"
	ActivityMessageSent     ActivityType = "message_sent"
	ActivitySearchPerformed ActivityType = "search_performed"
	ActivityCronScheduled   ActivityType = "cron_scheduled"
	ActivityCronCompleted   ActivityType = "cron_completed"
	ActivityNoteAdded       ActivityType = "note_added"
)

var validActivityTypes = map[ActivityType]bool{
	ActivityTaskCompleted:   true,
	ActivityTaskCreated:     true,
	ActivityFileCreated:     true,
	ActivityFileModified:    true,
	ActivityCommandExecuted: true,
	ActivityMessageSent:     true,
	ActivitySearchPerformed: true,
	ActivityCronScheduled:   true,
	ActivityCronCompleted:   true,
	ActivityNoteAdded:       true,
}

func (t ActivityType) Valid() bool { return validActivityTypes[t] }

// ParseActivityType parses an activity type name.
func ParseActivityType(s string) (ActivityType, error) {
	return parseEnum("activity type", s, validActivityTypes)
}

// ActivityStatus is the outcome of an activity. The empty value means absent.
type ActivityStatus string

const (
	ActivitySuccess ActivityStatus = "success"
	ActivityFailed  ActivityStatus = "failed"
	ActivityPending ActivityStatus = "pending"
)

var validActivityStatuses = map[ActivityStatus]bool{
	ActivitySuccess: true,
	ActivityFailed:  true,
	ActivityPending: true,
}

func (s ActivityStatus) Valid() bool { return validActivityStatuses[s] }

// ParseActivityStatus parses a status name.
func ParseActivityStatus(s string) (ActivityStatus, error) {
	return parseEnum("activity status", s, validActivityStatuses)
}

// Activity is one recorded action in the timeline.
// Only Status may change after creation.
type Activity struct {
	ID              string         `json:"id"`
	Type            ActivityType   `json:"type"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Category        string         `json:"category,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Status          ActivityStatus `json:"status,omitempty"`
	DurationSeconds *float64       `json:"duration_seconds,omitempty"`
	SessionKey      string         `json:"session_key,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// ActivityInput holds the caller-supplied fields of a new activity.
type ActivityInput struct {
	Type            ActivityType
	Title           string
	Description     string
	Category        string
	Metadata        map[string]any
	Status          ActivityStatus
	DurationSeconds *float64
	SessionKey      string
}

// Validate checks the input against the closed enumerations.
func (in ActivityInput) Validate() error {
	if !in.Type.Valid() {
		return enumError("activity type", in.Type, validActivityTypes)
	}
	if err := required("title", in.Title); err != nil {
		return err
	}
	if in.Status != "" && !in.Status.Valid() {
		return enumError("activity status", in.Status, validActivityStatuses)
	}
	if in.DurationSeconds != nil && *in.DurationSeconds < 0 {
		return &ValidationError{Field: "duration", Reason: "must be >= 0"}
	}
	return nil
}
