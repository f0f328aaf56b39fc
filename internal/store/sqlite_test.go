package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/mission-control/internal/model"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"), opts...)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if _, err := s.CreateMemory(ctx, model.MemoryInput{Content: "persist me", Type: model.MemoryFact}); err != nil {
		t.Fatalf("create memory: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	list, err := s.ListMemories(ctx, MemoryQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Content != "persist me" {
		t.Errorf("expected persisted memory, got %+v", list)
	}
}

func TestStampAfterIsStrictlyIncreasing(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.Now))

	first := s.stamp()
	if next := s.stampAfter(first); next <= first {
		t.Errorf("expected stamp after %d, got %d", first, next)
	}
	if again := s.stamp(); again < first {
		t.Errorf("stamp went backwards: %d < %d", again, first)
	}
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	got := likePattern(`100%_a\b`)
	want := `%100\%\_a\\b%`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestInfo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.CreateActivity(ctx, model.ActivityInput{Type: model.ActivityNoteAdded, Title: "one"})
	s.CreateMemory(ctx, model.MemoryInput{Content: "m", Type: model.MemoryNote})
	s.UpsertDocument(ctx, model.DocumentInput{Path: "/a.md", Content: "# A"})
	s.RecordSearch(ctx, "query", 0)

	info, err := s.Info(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Activities != 1 || info.Memories != 1 || info.Documents != 1 || info.Searches != 1 {
		t.Errorf("unexpected counts: %+v", info)
	}
	if info.Chunks != 1 {
		t.Errorf("expected 1 chunk, got %d", info.Chunks)
	}
	if info.DBSizeBytes == 0 {
		t.Error("expected non-zero db size")
	}
}

func TestUnavailableAfterClose(t *testing.T) {
	s := newTestStore(t)
	s.Close()

	_, err := s.ListActivities(context.Background(), ActivityQuery{})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestCanceledContextIsNotUnavailable(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListActivities(ctx, ActivityQuery{})
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("canceled context should not report store unavailable: %v", err)
	}
}
