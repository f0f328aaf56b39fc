// Package store provides the record store interface and its SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/rcliao/mission-control/internal/model"
)

const (
	// DefaultListLimit bounds list queries that do not set a limit.
	DefaultListLimit = 50
	// DefaultSearchLimit bounds text searches that do not set a limit.
	DefaultSearchLimit = 20
)

// ActivityQuery holds parameters for listing activities.
// Type takes precedence over Category when both are set.
type ActivityQuery struct {
	Type     model.ActivityType
	Category string
	Before   *time.Time // continuation point: only activities strictly older
	Limit    int
}

// MemoryQuery holds parameters for listing memories.
// Type takes precedence over Category when both are set.
type MemoryQuery struct {
	Type     model.MemoryType
	Category string
	Limit    int
}

// DocumentQuery holds parameters for listing documents.
type DocumentQuery struct {
	Type  model.DocumentType
	Limit int
}

// ActivityStore covers the activity collection.
type ActivityStore interface {
	CreateActivity(ctx context.Context, in model.ActivityInput) (*model.Activity, error)
	GetActivity(ctx context.Context, id string) (*model.Activity, error)
	// ListActivities returns activities newest first.
	ListActivities(ctx context.Context, q ActivityQuery) ([]model.Activity, error)
	// ActivitiesInRange returns activities with start <= timestamp <= end, newest first.
	ActivitiesInRange(ctx context.Context, start, end time.Time) ([]model.Activity, error)
	AllActivities(ctx context.Context) ([]model.Activity, error)
	UpdateActivityStatus(ctx context.Context, id string, status model.ActivityStatus) (*model.Activity, error)
	SearchActivities(ctx context.Context, query string, limit int) ([]model.Activity, error)
}

// TaskStore covers the scheduled task collection.
type TaskStore interface {
	CreateTask(ctx context.Context, in model.TaskInput) (*model.ScheduledTask, error)
	GetTask(ctx context.Context, id string) (*model.ScheduledTask, error)
	// ListUpcomingTasks returns tasks scheduled at or after from, soonest first.
	ListUpcomingTasks(ctx context.Context, from time.Time, limit int) ([]model.ScheduledTask, error)
	// TasksInRange returns tasks with start <= scheduledFor <= end, soonest first.
	TasksInRange(ctx context.Context, start, end time.Time) ([]model.ScheduledTask, error)
	AllTasks(ctx context.Context) ([]model.ScheduledTask, error)
	UpdateTask(ctx context.Context, id string, p model.TaskPatch) (*model.ScheduledTask, error)
	// CompleteTask marks a pending task completed and reports whether this
	// call performed the transition.
	CompleteTask(ctx context.Context, id string) (*model.ScheduledTask, bool, error)
	DeleteTask(ctx context.Context, id string) error
	SearchTasks(ctx context.Context, query string, limit int) ([]model.ScheduledTask, error)
}

// MemoryStore covers the memory collection.
type MemoryStore interface {
	CreateMemory(ctx context.Context, in model.MemoryInput) (*model.Memory, error)
	GetMemory(ctx context.Context, id string) (*model.Memory, error)
	// ListMemories returns memories most recently updated first.
	ListMemories(ctx context.Context, q MemoryQuery) ([]model.Memory, error)
	AllMemories(ctx context.Context) ([]model.Memory, error)
	UpdateMemory(ctx context.Context, id string, p model.MemoryPatch) (*model.Memory, error)
	DeleteMemory(ctx context.Context, id string) error
	SearchMemories(ctx context.Context, query string, limit int) ([]model.Memory, error)
}

// DocumentStore covers the document collection.
type DocumentStore interface {
	// UpsertDocument creates or replaces the document stored under in.Path.
	UpsertDocument(ctx context.Context, in model.DocumentInput) (*model.Document, error)
	GetDocumentByPath(ctx context.Context, path string) (*model.Document, error)
	// ListDocuments returns documents most recently modified first.
	ListDocuments(ctx context.Context, q DocumentQuery) ([]model.Document, error)
	AllDocuments(ctx context.Context) ([]model.Document, error)
	DeleteDocument(ctx context.Context, path string) error
	SearchDocuments(ctx context.Context, query string, limit int) ([]model.DocumentMatch, error)
}

// HistoryStore covers the append-only search history.
type HistoryStore interface {
	RecordSearch(ctx context.Context, query string, resultCount int) (*model.SearchHistoryEntry, error)
	SearchHistory(ctx context.Context, limit int) ([]model.SearchHistoryEntry, error)
}

// Store defines the record store used by the dashboard.
type Store interface {
	ActivityStore
	TaskStore
	MemoryStore
	DocumentStore
	HistoryStore

	// Subscribe registers for change notifications on the four entity collections.
	Subscribe() *Subscription

	// Now returns the store clock.
	Now() time.Time

	// Close closes the store.
	Close() error
}

// Admin covers administrative operations that the dashboard core never calls.
type Admin interface {
	ClearActivities(ctx context.Context) (int, error)
	ClearTasks(ctx context.Context) (int, error)
	ClearMemories(ctx context.Context) (int, error)
	ClearDocuments(ctx context.Context) (int, error)
	ClearSearchHistory(ctx context.Context) (int, error)
	ExportAll(ctx context.Context) (*Snapshot, error)
	Import(ctx context.Context, snap *Snapshot) (*ImportCounts, error)
	Info(ctx context.Context) (*Info, error)
}

var _ Admin = (*SQLiteStore)(nil)
