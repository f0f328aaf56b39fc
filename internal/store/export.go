package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rcliao/mission-control/internal/model"
)

// Snapshot is a full copy of every collection.
type Snapshot struct {
	Activities []model.Activity           `json:"activities"`
	Tasks      []model.ScheduledTask      `json:"tasks"`
	Memories   []model.Memory             `json:"memories"`
	Documents  []model.Document           `json:"documents"`
	Searches   []model.SearchHistoryEntry `json:"searches,omitempty"`
}

// ImportCounts reports how many records an import wrote per collection.
type ImportCounts struct {
	Activities int `json:"activities"`
	Tasks      int `json:"tasks"`
	Memories   int `json:"memories"`
	Documents  int `json:"documents"`
	Searches   int `json:"searches"`
}

// ExportAll returns every record in the store.
func (s *SQLiteStore) ExportAll(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Activities, err = s.AllActivities(ctx); err != nil {
		return nil, err
	}
	if snap.Tasks, err = s.AllTasks(ctx); err != nil {
		return nil, err
	}
	if snap.Memories, err = s.AllMemories(ctx); err != nil {
		return nil, err
	}
	if snap.Documents, err = s.AllDocuments(ctx); err != nil {
		return nil, err
	}
	if snap.Searches, err = s.querySearches(ctx, -1); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Import stores the records of a snapshot, keeping their ids and
// timestamps. Records whose id already exists are skipped. A record that
// fails the checks the create paths apply rejects the whole snapshot.
func (s *SQLiteStore) Import(ctx context.Context, snap *Snapshot) (*ImportCounts, error) {
	if err := normalizeSnapshot(snap); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin tx", err)
	}
	defer tx.Rollback()

	var counts ImportCounts
	for _, a := range snap.Activities {
		ok, err := insertActivity(ctx, tx, a)
		if err != nil {
			return nil, err
		}
		counts.Activities += count(ok)
	}
	for _, t := range snap.Tasks {
		ok, err := insertTask(ctx, tx, t)
		if err != nil {
			return nil, err
		}
		counts.Tasks += count(ok)
	}
	for _, m := range snap.Memories {
		ok, err := insertMemory(ctx, tx, m)
		if err != nil {
			return nil, err
		}
		counts.Memories += count(ok)
	}
	for _, d := range snap.Documents {
		ok, err := insertDocument(ctx, tx, d)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := replaceChunks(ctx, tx, d); err != nil {
			return nil, err
		}
		counts.Documents++
	}
	for _, e := range snap.Searches {
		ok, err := insertSearch(ctx, tx, e)
		if err != nil {
			return nil, err
		}
		counts.Searches += count(ok)
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit", err)
	}
	s.changes.publish(model.EntityTypes...)
	return &counts, nil
}

// normalizeSnapshot fills defaults in place and validates every record
// with the same rules as CreateActivity, CreateTask, CreateMemory and
// UpsertDocument.
func normalizeSnapshot(snap *Snapshot) error {
	for i := range snap.Activities {
		a := &snap.Activities[i]
		err := model.ActivityInput{
			Type:            a.Type,
			Title:           a.Title,
			Status:          a.Status,
			DurationSeconds: a.DurationSeconds,
		}.Validate()
		if err != nil {
			return fmt.Errorf("activity %s: %w", a.ID, err)
		}
	}
	for i := range snap.Tasks {
		t := &snap.Tasks[i]
		if t.Recurrence == "" {
			t.Recurrence = model.RecurOnce
		}
		if t.Status == "" {
			t.Status = model.TaskPending
		}
		err := model.TaskInput{
			Title:        t.Title,
			ScheduledFor: t.ScheduledFor,
			Recurrence:   t.Recurrence,
			Priority:     t.Priority,
		}.Validate()
		if err == nil {
			err = model.TaskPatch{Status: &t.Status}.Validate()
		}
		if err != nil {
			return fmt.Errorf("task %s: %w", t.ID, err)
		}
	}
	for i := range snap.Memories {
		m := &snap.Memories[i]
		m.Tags = model.NormalizeTags(m.Tags)
		err := model.MemoryInput{
			Content:    m.Content,
			Type:       m.Type,
			Importance: m.Importance,
		}.Validate()
		if err != nil {
			return fmt.Errorf("memory %s: %w", m.ID, err)
		}
	}
	for i := range snap.Documents {
		d := &snap.Documents[i]
		if d.Name == "" {
			d.Name = filepath.Base(d.Path)
		}
		if d.Type == "" {
			d.Type = model.DocumentTypeFor(d.Path)
		}
		err := model.DocumentInput{Path: d.Path, Name: d.Name, Type: d.Type}.Validate()
		if err != nil {
			return fmt.Errorf("document %s: %w", d.ID, err)
		}
	}
	return nil
}

func count(ok bool) int {
	if ok {
		return 1
	}
	return 0
}
