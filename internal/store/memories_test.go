package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rcliao/mission-control/internal/model"
)

func TestCreateMemoryNormalizesTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	imp := 7
	m, err := s.CreateMemory(ctx, model.MemoryInput{
		Content:    "prefers dark mode",
		Type:       model.MemoryPreference,
		Importance: &imp,
		Tags:       []string{" ui ", "ui", "", "theme"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !m.CreatedAt.Equal(m.UpdatedAt) {
		t.Error("new memory should have createdAt == updatedAt")
	}

	got, err := s.GetMemory(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "ui" || got.Tags[1] != "theme" {
		t.Errorf("expected [ui theme], got %v", got.Tags)
	}
	if got.Importance == nil || *got.Importance != 7 {
		t.Errorf("expected importance 7, got %v", got.Importance)
	}
}

func TestCreateMemoryRejectsImportance(t *testing.T) {
	s := newTestStore(t)
	imp := 11
	_, err := s.CreateMemory(context.Background(), model.MemoryInput{
		Content: "x", Type: model.MemoryNote, Importance: &imp,
	})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestUpdateMemoryAdvancesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.Now))

	m, _ := s.CreateMemory(ctx, model.MemoryInput{Content: "old", Type: model.MemoryNote})

	// Clock does not move: updatedAt must still advance.
	content := "new content"
	got, err := s.UpdateMemory(ctx, m.ID, model.MemoryPatch{Content: &content})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.UpdatedAt.After(m.UpdatedAt) {
		t.Errorf("expected updatedAt after %v, got %v", m.UpdatedAt, got.UpdatedAt)
	}
	if !got.CreatedAt.Equal(m.CreatedAt) {
		t.Error("createdAt must not change")
	}

	found, _ := s.SearchMemories(ctx, "NEW", 0)
	if len(found) != 1 {
		t.Errorf("expected search on updated content, got %d", len(found))
	}
	stale, _ := s.SearchMemories(ctx, "old", 0)
	if len(stale) != 0 {
		t.Errorf("expected old content gone from search, got %d", len(stale))
	}

	_, err = s.UpdateMemory(ctx, "missing", model.MemoryPatch{Content: &content})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListMemoriesFilters(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.Now))

	a, _ := s.CreateMemory(ctx, model.MemoryInput{Content: "a", Type: model.MemoryFact, Category: "work"})
	clock.Advance(time.Second)
	s.CreateMemory(ctx, model.MemoryInput{Content: "b", Type: model.MemoryDecision, Category: "work"})
	clock.Advance(time.Second)
	s.CreateMemory(ctx, model.MemoryInput{Content: "c", Type: model.MemoryFact, Category: "home"})

	all, _ := s.ListMemories(ctx, MemoryQuery{})
	if len(all) != 3 || all[0].Content != "c" {
		t.Fatalf("expected most recent first, got %d", len(all))
	}

	facts, _ := s.ListMemories(ctx, MemoryQuery{Type: model.MemoryFact, Category: "work"})
	if len(facts) != 2 {
		t.Errorf("expected type to win over category, got %d", len(facts))
	}

	work, _ := s.ListMemories(ctx, MemoryQuery{Category: "work"})
	if len(work) != 2 {
		t.Errorf("expected 2 work memories, got %d", len(work))
	}

	// Touching the oldest moves it to the front.
	clock.Advance(time.Second)
	cat := "work"
	s.UpdateMemory(ctx, a.ID, model.MemoryPatch{Category: &cat})
	all, _ = s.ListMemories(ctx, MemoryQuery{})
	if all[0].ID != a.ID {
		t.Errorf("expected updated memory first, got %q", all[0].Content)
	}
}

func TestDeleteMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m, _ := s.CreateMemory(ctx, model.MemoryInput{Content: "gone", Type: model.MemoryNote})

	if err := s.DeleteMemory(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteMemory(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
