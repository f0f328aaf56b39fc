package search

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/mission-control/internal/model"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func at(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID()
	}
	return out
}

func TestRecencyKeyPriority(t *testing.T) {
	assert.Equal(t, at(1).UnixMilli(), ActivityItem(model.Activity{Timestamp: at(1)}).RecencyKey())
	assert.Equal(t, at(2).UnixMilli(), MemoryItem(model.Memory{UpdatedAt: at(2), CreatedAt: at(0)}).RecencyKey())
	assert.Equal(t, at(3).UnixMilli(), DocumentItem(model.Document{LastModified: at(3)}).RecencyKey())
	assert.Equal(t, at(4).UnixMilli(), TaskItem(model.ScheduledTask{ScheduledFor: at(4), CreatedAt: at(9)}).RecencyKey())
	assert.Zero(t, Item{}.RecencyKey())
	assert.Zero(t, TaskItem(model.ScheduledTask{ID: "no time"}).RecencyKey())
}

func TestMergeSortsNewestFirst(t *testing.T) {
	lists := PerType{
		Memories:   []Item{MemoryItem(model.Memory{ID: "m", UpdatedAt: at(2)})},
		Documents:  []Item{DocumentItem(model.Document{ID: "d", LastModified: at(5)})},
		Activities: []Item{ActivityItem(model.Activity{ID: "a", Timestamp: at(1)})},
		Tasks:      []Item{TaskItem(model.ScheduledTask{ID: "t", ScheduledFor: at(10)})},
	}

	got := Merge(lists, 0)
	assert.Equal(t, []string{"t", "d", "m", "a"}, ids(got))
}

func TestMergeIsStableAcrossTypes(t *testing.T) {
	// Equal keys keep concatenation order: memories, documents, activities, tasks.
	lists := PerType{
		Tasks:      []Item{TaskItem(model.ScheduledTask{ID: "t", ScheduledFor: at(0)})},
		Activities: []Item{ActivityItem(model.Activity{ID: "a", Timestamp: at(0)})},
		Documents:  []Item{DocumentItem(model.Document{ID: "d", LastModified: at(0)})},
		Memories: []Item{
			MemoryItem(model.Memory{ID: "m1", UpdatedAt: at(0)}),
			MemoryItem(model.Memory{ID: "m2", UpdatedAt: at(0)}),
		},
	}

	got := Merge(lists, 0)
	assert.Equal(t, []string{"m1", "m2", "d", "a", "t"}, ids(got))
}

func TestMergeZeroKeysSortLast(t *testing.T) {
	lists := PerType{
		Memories: []Item{MemoryItem(model.Memory{ID: "undated"})},
		Tasks:    []Item{TaskItem(model.ScheduledTask{ID: "t", ScheduledFor: at(0)})},
	}
	assert.Equal(t, []string{"t", "undated"}, ids(Merge(lists, 0)))
}

func TestMergeHonorsFilters(t *testing.T) {
	lists := PerType{
		Memories:   []Item{MemoryItem(model.Memory{ID: "m", UpdatedAt: at(2)})},
		Documents:  []Item{DocumentItem(model.Document{ID: "d", LastModified: at(5)})},
		Activities: []Item{ActivityItem(model.Activity{ID: "a", Timestamp: at(1)})},
		Tasks:      []Item{TaskItem(model.ScheduledTask{ID: "t", ScheduledFor: at(10)})},
	}

	got := Merge(lists, NewFilterSet(model.EntityActivity, model.EntityMemory))
	assert.Equal(t, []string{"m", "a"}, ids(got))
}

func TestMergeKeepsDuplicates(t *testing.T) {
	m := MemoryItem(model.Memory{ID: "same", UpdatedAt: at(1)})
	got := Merge(PerType{Memories: []Item{m, m}}, 0)
	assert.Len(t, got, 2)
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(PerType{}, 0))
}

func TestFilterSetToggle(t *testing.T) {
	var f FilterSet
	assert.True(t, f.Empty())
	assert.True(t, f.Allows(model.EntityTask))

	f = f.Toggle(model.EntityTask)
	assert.True(t, f.Has(model.EntityTask))
	assert.False(t, f.Allows(model.EntityMemory))

	f = f.Toggle(model.EntityTask)
	assert.True(t, f.Empty())
}

func TestFilterSetJSON(t *testing.T) {
	f := NewFilterSet(model.EntityTask, model.EntityMemory)
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `["memory","task"]`, string(data))

	var back FilterSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, f, back)

	empty, _ := json.Marshal(FilterSet(0))
	assert.Equal(t, "[]", string(empty))

	assert.Error(t, json.Unmarshal([]byte(`["bogus"]`), &back))
}

func TestParseFilters(t *testing.T) {
	f, err := ParseFilters([]string{"Memory", "document"})
	require.NoError(t, err)
	assert.Equal(t, []model.EntityType{model.EntityMemory, model.EntityDocument}, f.Types())

	_, err = ParseFilters([]string{"nope"})
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}
