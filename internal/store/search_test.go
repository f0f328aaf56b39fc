package store

import (
	"context"
	"testing"
	"time"

	"github.com/rcliao/mission-control/internal/model"
)

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.CreateMemory(ctx, model.MemoryInput{Content: "Kubernetes cluster upgrade notes", Type: model.MemoryNote})
	s.CreateMemory(ctx, model.MemoryInput{Content: "grocery list", Type: model.MemoryNote})
	s.UpsertDocument(ctx, model.DocumentInput{Path: "/ops.md", Content: "Run kubectl against the CLUSTER"})

	mems, err := s.SearchMemories(ctx, "ClUsTeR", 0)
	if err != nil {
		t.Fatalf("search memories: %v", err)
	}
	if len(mems) != 1 {
		t.Errorf("expected 1 memory, got %d", len(mems))
	}

	// Partial words match.
	mems, _ = s.SearchMemories(ctx, "bernet", 0)
	if len(mems) != 1 {
		t.Errorf("expected partial-word match, got %d", len(mems))
	}

	docs, err := s.SearchDocuments(ctx, "cluster", 0)
	if err != nil {
		t.Fatalf("search documents: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 document, got %d", len(docs))
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 30; i++ {
		s.CreateMemory(ctx, model.MemoryInput{Content: "repeated entry", Type: model.MemoryNote})
	}

	got, _ := s.SearchMemories(ctx, "entry", 0)
	if len(got) != DefaultSearchLimit {
		t.Errorf("expected default limit %d, got %d", DefaultSearchLimit, len(got))
	}
	got, _ = s.SearchMemories(ctx, "entry", 5)
	if len(got) != 5 {
		t.Errorf("expected 5, got %d", len(got))
	}
}

func TestSearchHistory(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.Now))

	if _, err := s.RecordSearch(ctx, "alpha", 3); err != nil {
		t.Fatalf("record: %v", err)
	}
	clock.Advance(time.Second)
	s.RecordSearch(ctx, "beta", 0)

	hist, err := s.SearchHistory(ctx, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hist))
	}
	if hist[0].Query != "beta" || hist[1].ResultCount != 3 {
		t.Errorf("unexpected history: %+v", hist)
	}

	n, err := s.ClearSearchHistory(ctx)
	if err != nil || n != 2 {
		t.Errorf("expected 2 cleared, got %d (%v)", n, err)
	}
}
