package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/mission-control/internal/model"
)

const taskColumns = `id, title, description, scheduled_for, recurrence, status, category,
	priority, source, metadata, created_at, completed_at`

func (s *SQLiteStore) CreateTask(ctx context.Context, in model.TaskInput) (*model.ScheduledTask, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	rec := in.Recurrence
	if rec == "" {
		rec = model.RecurOnce
	}

	t := model.ScheduledTask{
		ID:           s.newID(),
		Title:        in.Title,
		Description:  in.Description,
		ScheduledFor: fromMillis(in.ScheduledFor.UnixMilli()),
		Recurrence:   rec,
		Status:       model.TaskPending,
		Category:     in.Category,
		Priority:     in.Priority,
		Source:       in.Source,
		Metadata:     in.Metadata,
		CreatedAt:    fromMillis(s.stamp()),
	}
	if _, err := insertTask(ctx, s.db, t); err != nil {
		return nil, err
	}

	s.changes.publish(model.EntityTask)
	return &t, nil
}

func insertTask(ctx context.Context, db execer, t model.ScheduledTask) (bool, error) {
	meta, err := encodeJSON(t.Metadata)
	if err != nil {
		return false, fmt.Errorf("encode metadata: %w", err)
	}
	var completed any
	if t.CompletedAt != nil {
		completed = t.CompletedAt.UnixMilli()
	}
	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO scheduled_tasks (`+taskColumns+`, fold_title, fold_description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, nullable(t.Description), t.ScheduledFor.UnixMilli(), string(t.Recurrence),
		string(t.Status), nullable(t.Category), nullable(string(t.Priority)), nullable(t.Source),
		meta, t.CreatedAt.UnixMilli(), completed,
		fold(t.Title), fold(t.Description))
	return inserted("insert task", res, err)
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.ScheduledTask, error) {
	return getTask(ctx, s.db, id)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTask(ctx context.Context, db rowQuerier, id string) (*model.ScheduledTask, error) {
	row := db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("task", id)
	}
	if err != nil {
		return nil, unavailable("get task", err)
	}
	return &t, nil
}

// ListUpcomingTasks returns tasks at or after from in any status. A zero
// from means the store clock.
func (s *SQLiteStore) ListUpcomingTasks(ctx context.Context, from time.Time, limit int) ([]model.ScheduledTask, error) {
	if from.IsZero() {
		from = s.now()
	}
	return s.queryTasks(ctx, "list upcoming tasks",
		`SELECT `+taskColumns+` FROM scheduled_tasks
		 WHERE scheduled_for >= ?
		 ORDER BY scheduled_for ASC, id ASC LIMIT ?`,
		from.UnixMilli(), limitOr(limit, DefaultListLimit))
}

func (s *SQLiteStore) TasksInRange(ctx context.Context, start, end time.Time) ([]model.ScheduledTask, error) {
	return s.queryTasks(ctx, "tasks in range",
		`SELECT `+taskColumns+` FROM scheduled_tasks
		 WHERE scheduled_for >= ? AND scheduled_for <= ?
		 ORDER BY scheduled_for ASC, id ASC`,
		start.UnixMilli(), end.UnixMilli())
}

func (s *SQLiteStore) AllTasks(ctx context.Context) ([]model.ScheduledTask, error) {
	return s.queryTasks(ctx, "all tasks",
		`SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY scheduled_for ASC, id ASC`)
}

// UpdateTask applies a patch. Completed and cancelled tasks reject any
// change to a different status; setting the current status again is a no-op.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, p model.TaskPatch) (*model.ScheduledTask, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin tx", err)
	}
	defer tx.Rollback()

	t, err := getTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if p.Status != nil && *p.Status != t.Status {
		if t.Status.Terminal() {
			return nil, fmt.Errorf("task %s %s -> %s: %w", id, t.Status, *p.Status, ErrInvalidTransition)
		}
		t.Status = *p.Status
		if t.Status == model.TaskCompleted {
			done := fromMillis(s.stamp())
			t.CompletedAt = &done
		}
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ScheduledFor != nil {
		t.ScheduledFor = fromMillis(p.ScheduledFor.UnixMilli())
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Metadata != nil {
		t.Metadata = p.Metadata
	}

	meta, err := encodeJSON(t.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	var completed any
	if t.CompletedAt != nil {
		completed = t.CompletedAt.UnixMilli()
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE scheduled_tasks SET title = ?, description = ?, scheduled_for = ?, status = ?,
		   category = ?, priority = ?, metadata = ?, completed_at = ?,
		   fold_title = ?, fold_description = ?
		 WHERE id = ?`,
		t.Title, nullable(t.Description), t.ScheduledFor.UnixMilli(), string(t.Status),
		nullable(t.Category), nullable(string(t.Priority)), meta, completed,
		fold(t.Title), fold(t.Description), id)
	if err != nil {
		return nil, unavailable("update task", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit", err)
	}

	s.changes.publish(model.EntityTask)
	return t, nil
}

// CompleteTask moves a pending task to completed in a single conditional
// update. transitioned reports whether this call made the change; it is
// false when the task was already completed. Cancelled tasks fail with
// ErrInvalidTransition.
func (s *SQLiteStore) CompleteTask(ctx context.Context, id string) (t *model.ScheduledTask, transitioned bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, unavailable("begin tx", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE scheduled_tasks SET status = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		string(model.TaskCompleted), s.stamp(), id, string(model.TaskPending))
	if err != nil {
		return nil, false, unavailable("complete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, unavailable("complete task", err)
	}

	t, err = getTask(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}
	if n == 0 && t.Status != model.TaskCompleted {
		return nil, false, fmt.Errorf("task %s %s -> %s: %w", id, t.Status, model.TaskCompleted, ErrInvalidTransition)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, unavailable("commit", err)
	}

	if n > 0 {
		s.changes.publish(model.EntityTask)
	}
	return t, n > 0, nil
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = ?`, id)
	if err != nil {
		return unavailable("delete task", err)
	}
	if err := affected(res, "task", id); err != nil {
		return err
	}
	s.changes.publish(model.EntityTask)
	return nil
}

// SearchTasks matches the query against title or description, newest first.
func (s *SQLiteStore) SearchTasks(ctx context.Context, query string, limit int) ([]model.ScheduledTask, error) {
	pattern := likePattern(query)
	return s.queryTasks(ctx, "search tasks",
		`SELECT `+taskColumns+` FROM scheduled_tasks
		 WHERE fold_title LIKE ? ESCAPE '\' OR fold_description LIKE ? ESCAPE '\'
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		pattern, pattern, limitOr(limit, DefaultSearchLimit))
}

// ClearTasks deletes every scheduled task.
func (s *SQLiteStore) ClearTasks(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_tasks`)
	if err != nil {
		return 0, unavailable("clear tasks", err)
	}
	n, _ := res.RowsAffected()
	s.changes.publish(model.EntityTask)
	return int(n), nil
}

func (s *SQLiteStore) queryTasks(ctx context.Context, op, query string, args ...any) ([]model.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var tasks []model.ScheduledTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, unavailable(op, rows.Err())
}

func scanTask(row scanner) (model.ScheduledTask, error) {
	var t model.ScheduledTask
	var description, category, priority, source, metadata sql.NullString
	var recurrence, status string
	var scheduled, created int64
	var completed sql.NullInt64

	err := row.Scan(&t.ID, &t.Title, &description, &scheduled, &recurrence, &status,
		&category, &priority, &source, &metadata, &created, &completed)
	if err != nil {
		return t, err
	}

	t.Description = description.String
	t.ScheduledFor = fromMillis(scheduled)
	t.Recurrence = model.Recurrence(recurrence)
	t.Status = model.TaskStatus(status)
	t.Category = category.String
	t.Priority = model.Priority(priority.String)
	t.Source = source.String
	t.Metadata = decodeMetadata(metadata)
	t.CreatedAt = fromMillis(created)
	if completed.Valid {
		c := fromMillis(completed.Int64)
		t.CompletedAt = &c
	}
	return t, nil
}
