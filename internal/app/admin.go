package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/store"
)

// ErrNoAdmin is returned when the store does not support administrative
// operations.
var ErrNoAdmin = errors.New("store does not support administrative operations")

// Collection names accepted by Clear.
const (
	ClearActivities = "activities"
	ClearTasks      = "tasks"
	ClearMemories   = "memories"
	ClearDocuments  = "documents"
	ClearHistory    = "history"
	// ClearAll empties tasks, activities and memories.
	ClearAll = "all"
)

// ClearCollections lists the names accepted by Clear.
var ClearCollections = []string{ClearActivities, ClearTasks, ClearMemories, ClearDocuments, ClearHistory, ClearAll}

func (s *Service) admin() (store.Admin, error) {
	a, ok := s.store.(store.Admin)
	if !ok {
		return nil, ErrNoAdmin
	}
	return a, nil
}

// Clear irreversibly deletes every record of the named collection and
// returns how many rows were removed.
func (s *Service) Clear(ctx context.Context, collection string) (int, error) {
	a, err := s.admin()
	if err != nil {
		return 0, err
	}

	var clears []func(context.Context) (int, error)
	switch collection {
	case ClearActivities:
		clears = append(clears, a.ClearActivities)
	case ClearTasks:
		clears = append(clears, a.ClearTasks)
	case ClearMemories:
		clears = append(clears, a.ClearMemories)
	case ClearDocuments:
		clears = append(clears, a.ClearDocuments)
	case ClearHistory:
		clears = append(clears, a.ClearSearchHistory)
	case ClearAll:
		clears = append(clears, a.ClearTasks, a.ClearActivities, a.ClearMemories)
	default:
		return 0, &model.ValidationError{Field: "collection", Value: collection, Reason: fmt.Sprintf("valid: %v", ClearCollections)}
	}

	total := 0
	for _, fn := range clears {
		n, err := fn(ctx)
		total += n
		if err != nil {
			return total, err
		}
	}
	s.logger.Warn("collection cleared", "collection", collection, "deleted", total)
	return total, nil
}

// SeedCounts reports how many sample records Seed created.
type SeedCounts struct {
	Activities int `json:"activities"`
	Tasks      int `json:"tasks"`
	Memories   int `json:"memories"`
}

// Seed inserts a small set of sample activities, tasks and memories.
func (s *Service) Seed(ctx context.Context) (*SeedCounts, error) {
	var counts SeedCounts

	activities := []model.ActivityInput{
		{Type: model.ActivityTaskCompleted, Title: "Set up Mission Control dashboard", Category: "development", Status: model.ActivitySuccess},
		{Type: model.ActivityFileCreated, Title: "Created schema.ts", Category: "development", Status: model.ActivitySuccess},
		{Type: model.ActivityCommandExecuted, Title: "npm install dependencies", Category: "setup", Status: model.ActivitySuccess},
		{Type: model.ActivityTaskCreated, Title: "Build activity feed", Category: "development", Status: model.ActivitySuccess},
	}
	for _, in := range activities {
		if _, err := s.store.CreateActivity(ctx, in); err != nil {
			return &counts, fmt.Errorf("seed activity: %w", err)
		}
		counts.Activities++
	}

	now := s.Now()
	day := 24 * time.Hour
	tasks := []model.TaskInput{
		{Title: "Review dashboard", ScheduledFor: now.Add(day), Priority: model.PriorityHigh},
		{Title: "Add search functionality", ScheduledFor: now.Add(2 * day), Priority: model.PriorityMedium},
		{Title: "Weekly backup", ScheduledFor: now.Add(7 * day), Priority: model.PriorityLow},
	}
	for _, in := range tasks {
		in.Recurrence = model.RecurOnce
		if _, err := s.store.CreateTask(ctx, in); err != nil {
			return &counts, fmt.Errorf("seed task: %w", err)
		}
		counts.Tasks++
	}

	importance := func(v int) *int { return &v }
	memories := []model.MemoryInput{
		{Content: "Mission Control uses Next.js + Convex", Type: model.MemoryFact, Category: "tech", Importance: importance(8)},
		{Content: "Activity feed tracks all OpenClaw actions", Type: model.MemoryNote, Category: "feature", Importance: importance(9)},
	}
	for _, in := range memories {
		if _, err := s.store.CreateMemory(ctx, in); err != nil {
			return &counts, fmt.Errorf("seed memory: %w", err)
		}
		counts.Memories++
	}

	s.logger.Info("sample data seeded", "activities", counts.Activities, "tasks", counts.Tasks, "memories", counts.Memories)
	return &counts, nil
}

// Info reports the store location and per-collection counts.
func (s *Service) Info(ctx context.Context) (*store.Info, error) {
	a, err := s.admin()
	if err != nil {
		return nil, err
	}
	return a.Info(ctx)
}

// Export returns a snapshot of every collection.
func (s *Service) Export(ctx context.Context) (*store.Snapshot, error) {
	a, err := s.admin()
	if err != nil {
		return nil, err
	}
	return a.ExportAll(ctx)
}

// Import loads a snapshot. Records whose id already exists are skipped.
func (s *Service) Import(ctx context.Context, snap *store.Snapshot) (*store.ImportCounts, error) {
	a, err := s.admin()
	if err != nil {
		return nil, err
	}
	counts, err := a.Import(ctx, snap)
	if err != nil {
		return nil, err
	}
	s.logger.Info("snapshot imported", "activities", counts.Activities, "tasks", counts.Tasks,
		"memories", counts.Memories, "documents", counts.Documents, "searches", counts.Searches)
	return counts, nil
}
