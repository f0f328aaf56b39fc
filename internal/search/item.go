// Package search runs one query against every entity collection and merges
// the hits into a single recency-ordered feed.
package search

import (
	"context"

	"github.com/rcliao/mission-control/internal/model"
)

// Searchable is the text search capability of one collection.
type Searchable[T any] interface {
	Search(ctx context.Context, query string, limit int) ([]T, error)
}

// SearchFunc adapts a function to Searchable.
type SearchFunc[T any] func(ctx context.Context, query string, limit int) ([]T, error)

func (f SearchFunc[T]) Search(ctx context.Context, query string, limit int) ([]T, error) {
	return f(ctx, query, limit)
}

// Item is a type-tagged record from any collection. Exactly one of the
// record pointers is set, matching Type.
type Item struct {
	Type     model.EntityType     `json:"type"`
	Memory   *model.Memory        `json:"memory,omitempty"`
	Document *model.Document      `json:"document,omitempty"`
	Activity *model.Activity      `json:"activity,omitempty"`
	Task     *model.ScheduledTask `json:"task,omitempty"`
	Match    *model.Chunk         `json:"match,omitempty"`
}

// RecencyKey returns the Unix millisecond time used to rank the item:
// the activity timestamp, else the memory update time, else the document
// modification time, else the task schedule, else 0.
func (it Item) RecencyKey() int64 {
	switch {
	case it.Activity != nil && !it.Activity.Timestamp.IsZero():
		return it.Activity.Timestamp.UnixMilli()
	case it.Memory != nil && !it.Memory.UpdatedAt.IsZero():
		return it.Memory.UpdatedAt.UnixMilli()
	case it.Document != nil && !it.Document.LastModified.IsZero():
		return it.Document.LastModified.UnixMilli()
	case it.Task != nil && !it.Task.ScheduledFor.IsZero():
		return it.Task.ScheduledFor.UnixMilli()
	}
	return 0
}

// ID returns the id of the wrapped record.
func (it Item) ID() string {
	switch {
	case it.Memory != nil:
		return it.Memory.ID
	case it.Document != nil:
		return it.Document.ID
	case it.Activity != nil:
		return it.Activity.ID
	case it.Task != nil:
		return it.Task.ID
	}
	return ""
}

func MemoryItem(m model.Memory) Item {
	return Item{Type: model.EntityMemory, Memory: &m}
}

func DocumentItem(d model.Document) Item {
	return Item{Type: model.EntityDocument, Document: &d}
}

func DocumentMatchItem(m model.DocumentMatch) Item {
	d := m.Document
	return Item{Type: model.EntityDocument, Document: &d, Match: m.Match}
}

func ActivityItem(a model.Activity) Item {
	return Item{Type: model.EntityActivity, Activity: &a}
}

func TaskItem(t model.ScheduledTask) Item {
	return Item{Type: model.EntityTask, Task: &t}
}

// Wrap converts records into items with fn.
func Wrap[T any](records []T, fn func(T) Item) []Item {
	if len(records) == 0 {
		return nil
	}
	items := make([]Item, len(records))
	for i, r := range records {
		items[i] = fn(r)
	}
	return items
}

// PerType holds one item list per entity type.
type PerType struct {
	Memories   []Item `json:"memories"`
	Documents  []Item `json:"documents"`
	Activities []Item `json:"activities"`
	Tasks      []Item `json:"tasks"`
}

// Get returns the list for t.
func (p PerType) Get(t model.EntityType) []Item {
	switch t {
	case model.EntityMemory:
		return p.Memories
	case model.EntityDocument:
		return p.Documents
	case model.EntityActivity:
		return p.Activities
	case model.EntityTask:
		return p.Tasks
	}
	return nil
}

// Set replaces the list for t.
func (p *PerType) Set(t model.EntityType, items []Item) {
	switch t {
	case model.EntityMemory:
		p.Memories = items
	case model.EntityDocument:
		p.Documents = items
	case model.EntityActivity:
		p.Activities = items
	case model.EntityTask:
		p.Tasks = items
	}
}

// Count returns the total number of items across all lists.
func (p PerType) Count() int {
	return len(p.Memories) + len(p.Documents) + len(p.Activities) + len(p.Tasks)
}

// Results is the outcome of a cross-collection search.
type Results struct {
	PerType
	TotalCount int `json:"total_count"`
}
