package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rcliao/mission-control/internal/model"
)

func addActivity(t *testing.T, s *SQLiteStore, typ model.ActivityType, title, category string) *model.Activity {
	t.Helper()
	a, err := s.CreateActivity(context.Background(), model.ActivityInput{
		Type:     typ,
		Title:    title,
		Category: category,
	})
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return a
}

func TestCreateAndGetActivity(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.Now))

	dur := 1.5
	a, err := s.CreateActivity(ctx, model.ActivityInput{
		Type:            model.ActivityCommandExecuted,
		Title:           "go test ./...",
		Description:     "ran the suite",
		Category:        "dev",
		Metadata:        map[string]any{"exit": float64(0)},
		Status:          model.ActivitySuccess,
		DurationSeconds: &dur,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == "" {
		t.Error("expected non-empty ID")
	}
	if !a.Timestamp.Equal(clock.Now()) {
		t.Errorf("expected timestamp %v, got %v", clock.Now(), a.Timestamp)
	}

	got, err := s.GetActivity(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "go test ./..." || got.Category != "dev" || got.Status != model.ActivitySuccess {
		t.Errorf("unexpected activity: %+v", got)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 1.5 {
		t.Errorf("expected duration 1.5, got %v", got.DurationSeconds)
	}
	if got.Metadata["exit"] != float64(0) {
		t.Errorf("expected metadata exit=0, got %v", got.Metadata)
	}
}

func TestCreateActivityValidation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateActivity(context.Background(), model.ActivityInput{Type: "bogus", Title: "x"})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestListActivitiesOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.Now))

	addActivity(t, s, model.ActivityNoteAdded, "first", "notes")
	clock.Advance(time.Minute)
	addActivity(t, s, model.ActivityFileCreated, "second", "files")
	clock.Advance(time.Minute)
	addActivity(t, s, model.ActivityNoteAdded, "third", "files")

	all, err := s.ListActivities(ctx, ActivityQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Title != "third" || all[2].Title != "first" {
		t.Fatalf("expected newest first, got %v", titles(all))
	}

	byType, _ := s.ListActivities(ctx, ActivityQuery{Type: model.ActivityNoteAdded})
	if len(byType) != 2 {
		t.Errorf("expected 2 note_added, got %d", len(byType))
	}

	byCategory, _ := s.ListActivities(ctx, ActivityQuery{Category: "files"})
	if len(byCategory) != 2 {
		t.Errorf("expected 2 in files, got %d", len(byCategory))
	}

	// Type wins over category.
	both, _ := s.ListActivities(ctx, ActivityQuery{Type: model.ActivityNoteAdded, Category: "nope"})
	if len(both) != 2 {
		t.Errorf("expected type to take precedence, got %d", len(both))
	}

	limited, _ := s.ListActivities(ctx, ActivityQuery{Limit: 1})
	if len(limited) != 1 || limited[0].Title != "third" {
		t.Errorf("expected only newest, got %v", titles(limited))
	}

	before := all[0].Timestamp
	older, _ := s.ListActivities(ctx, ActivityQuery{Before: &before})
	if len(older) != 2 || older[0].Title != "second" {
		t.Errorf("expected continuation from second, got %v", titles(older))
	}
}

func TestListActivitiesInvalidType(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ListActivities(context.Background(), ActivityQuery{Type: "nope"})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestActivitiesInRangeIsInclusive(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.Now))

	start := clock.Now()
	addActivity(t, s, model.ActivityNoteAdded, "at start", "")
	clock.Advance(time.Hour)
	end := clock.Now()
	addActivity(t, s, model.ActivityNoteAdded, "at end", "")
	clock.Advance(time.Millisecond)
	addActivity(t, s, model.ActivityNoteAdded, "after", "")

	got, err := s.ActivitiesInRange(ctx, start, end)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 2 || got[0].Title != "at end" || got[1].Title != "at start" {
		t.Errorf("expected both bounds included, got %v", titles(got))
	}
}

func TestUpdateActivityStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := addActivity(t, s, model.ActivityCronScheduled, "nightly", "")

	got, err := s.UpdateActivityStatus(ctx, a.ID, model.ActivityFailed)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != model.ActivityFailed {
		t.Errorf("expected failed, got %q", got.Status)
	}
	if !got.Timestamp.Equal(a.Timestamp) {
		t.Error("status update must not move the timestamp")
	}

	_, err = s.UpdateActivityStatus(ctx, "missing", model.ActivitySuccess)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchActivities(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(t, WithClock(clock.Now))

	addActivity(t, s, model.ActivityNoteAdded, "Deploy Service", "")
	clock.Advance(time.Second)
	s.CreateActivity(ctx, model.ActivityInput{
		Type: model.ActivityMessageSent, Title: "ping", Description: "about the deployment window",
	})
	clock.Advance(time.Second)
	addActivity(t, s, model.ActivityNoteAdded, "unrelated", "")

	got, err := s.SearchActivities(ctx, "DEPLOY", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", titles(got))
	}
	if got[0].Title != "ping" {
		t.Errorf("expected newest match first, got %v", titles(got))
	}

	none, _ := s.SearchActivities(ctx, "%", 0)
	if len(none) != 0 {
		t.Errorf("expected literal %% to match nothing, got %v", titles(none))
	}
}

func TestClearActivities(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	addActivity(t, s, model.ActivityNoteAdded, "a", "")
	addActivity(t, s, model.ActivityNoteAdded, "b", "")

	n, err := s.ClearActivities(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 cleared, got %d", n)
	}
	all, _ := s.AllActivities(ctx)
	if len(all) != 0 {
		t.Errorf("expected empty, got %d", len(all))
	}
}

func titles(acts []model.Activity) []string {
	out := make([]string, len(acts))
	for i, a := range acts {
		out[i] = a.Title
	}
	return out
}
