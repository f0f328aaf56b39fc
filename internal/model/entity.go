package model

import "time"

// EntityType tags a record with the collection it came from.
type EntityType string

const (
	EntityMemory   EntityType = "memory"
	EntityDocument EntityType = "document"
	EntityActivity EntityType = "activity"
	EntityTask     EntityType = "task"
)

// EntityTypes lists every entity type in feed concatenation order.
var EntityTypes = []EntityType{EntityMemory, EntityDocument, EntityActivity, EntityTask}

var validEntityTypes = map[EntityType]bool{
	EntityMemory:   true,
	EntityDocument: true,
	EntityActivity: true,
	EntityTask:     true,
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool { return validEntityTypes[t] }

// ParseEntityType parses a filter tag such as "memory" or "task".
func ParseEntityType(s string) (EntityType, error) {
	return parseEnum("entity type", s, validEntityTypes)
}

// SearchHistoryEntry is one executed search. Entries are never mutated.
type SearchHistoryEntry struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	ResultCount int       `json:"result_count"`
	Timestamp   time.Time `json:"timestamp"`
}
