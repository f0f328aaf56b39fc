// Package app exposes the dashboard operations over a record store.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/schedule"
	"github.com/rcliao/mission-control/internal/search"
	"github.com/rcliao/mission-control/internal/stats"
	"github.com/rcliao/mission-control/internal/store"
)

const (
	// RecentLimit is the page size of the recent-items lists.
	RecentLimit = store.DefaultListLimit
	// HistoryLimit is the default number of search history entries returned.
	HistoryLimit = 20
)

// Service implements the dashboard operations.
type Service struct {
	store    store.Store
	search   *search.Orchestrator
	logger   *log.Logger
	metrics  *search.Metrics
	location *time.Location

	searchLimit int
	recentLimit int
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSearchMetrics records search metrics on m.
func WithSearchMetrics(m *search.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLocation sets the time zone used for calendar queries.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLimits overrides the default search and recent list limits.
func WithLimits(searchLimit, recentLimit int) Option {
	return func(s *Service) {
		if searchLimit > 0 {
			s.searchLimit = searchLimit
		}
		if recentLimit > 0 {
			s.recentLimit = recentLimit
		}
	}
}

// New creates a Service over st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:       st,
		logger:      log.New(io.Discard),
		location:    time.Local,
		searchLimit: search.DefaultLimit,
		recentLimit: RecentLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.search = search.NewOrchestrator(search.StoreSources(st), st,
		search.WithLogger(s.logger.WithPrefix("search")),
		search.WithMetrics(s.metrics))
	return s
}

// Store returns the underlying record store.
func (s *Service) Store() store.Store { return s.store }

// Logger returns the service logger.
func (s *Service) Logger() *log.Logger { return s.logger }

// Now returns the store clock in the service location.
func (s *Service) Now() time.Time { return s.store.Now().In(s.location) }

// --- activities ---

func (s *Service) CreateActivity(ctx context.Context, in model.ActivityInput) (*model.Activity, error) {
	return s.store.CreateActivity(ctx, in)
}

func (s *Service) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	return s.store.GetActivity(ctx, id)
}

// ListActivities returns the newest activities. Type wins over category.
func (s *Service) ListActivities(ctx context.Context, q store.ActivityQuery) ([]model.Activity, error) {
	if q.Limit <= 0 {
		q.Limit = s.recentLimit
	}
	return s.store.ListActivities(ctx, q)
}

// ActivitiesInRange returns activities with start <= timestamp <= end.
func (s *Service) ActivitiesInRange(ctx context.Context, start, end time.Time) ([]model.Activity, error) {
	if end.Before(start) {
		return nil, &model.ValidationError{Field: "range", Reason: "end is before start"}
	}
	return s.store.ActivitiesInRange(ctx, start, end)
}

func (s *Service) UpdateActivityStatus(ctx context.Context, id string, status model.ActivityStatus) (*model.Activity, error) {
	return s.store.UpdateActivityStatus(ctx, id, status)
}

// ActivityStats summarizes every activity as of now.
func (s *Service) ActivityStats(ctx context.Context) (stats.ActivityStats, error) {
	acts, err := s.store.AllActivities(ctx)
	if err != nil {
		return stats.ActivityStats{}, err
	}
	return stats.Activities(acts, s.Now()), nil
}

// --- tasks ---

func (s *Service) CreateTask(ctx context.Context, in model.TaskInput) (*model.ScheduledTask, error) {
	return s.store.CreateTask(ctx, in)
}

func (s *Service) GetTask(ctx context.Context, id string) (*model.ScheduledTask, error) {
	return s.store.GetTask(ctx, id)
}

// UpcomingTasks returns tasks at or after from, soonest first. A zero from
// means now.
func (s *Service) UpcomingTasks(ctx context.Context, from time.Time, limit int) ([]model.ScheduledTask, error) {
	if from.IsZero() {
		from = s.Now()
	}
	if limit <= 0 {
		limit = s.recentLimit
	}
	return s.store.ListUpcomingTasks(ctx, from, limit)
}

// TasksInRange returns tasks with start <= scheduledFor <= end, soonest first.
func (s *Service) TasksInRange(ctx context.Context, start, end time.Time) ([]model.ScheduledTask, error) {
	if end.Before(start) {
		return nil, &model.ValidationError{Field: "range", Reason: "end is before start"}
	}
	return s.store.TasksInRange(ctx, start, end)
}

// TasksByWeek returns tasks in [weekStart, weekStart+7d], soonest first.
// The caller picks the first day of the week.
func (s *Service) TasksByWeek(ctx context.Context, weekStart time.Time) ([]model.ScheduledTask, error) {
	return s.store.TasksInRange(ctx, weekStart, weekStart.Add(7*24*time.Hour))
}

// TasksByMonth returns tasks scheduled within the calendar month in the
// service location.
func (s *Service) TasksByMonth(ctx context.Context, year int, month time.Month) ([]model.ScheduledTask, error) {
	if month < time.January || month > time.December {
		return nil, &model.ValidationError{Field: "month", Value: fmt.Sprint(int(month)), Reason: "must be 1-12"}
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, s.location)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return s.store.TasksInRange(ctx, start, end)
}

// WeekStart returns local midnight of the Sunday on or before t.
func WeekStart(t time.Time) time.Time {
	midnight := stats.Midnight(t)
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}

func (s *Service) UpdateTask(ctx context.Context, id string, p model.TaskPatch) (*model.ScheduledTask, error) {
	return s.store.UpdateTask(ctx, id, p)
}

// CompleteTask marks a task completed. For a recurring task it then creates
// the next pending occurrence, returned as next. Only the call that moves
// the task out of pending schedules the next occurrence; completing an
// already completed task is a no-op.
func (s *Service) CompleteTask(ctx context.Context, id string) (done, next *model.ScheduledTask, err error) {
	done, transitioned, err := s.store.CompleteTask(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !transitioned {
		return done, nil, nil
	}

	at, ok := schedule.Next(done.Recurrence, done.ScheduledFor.In(s.location))
	if !ok {
		return done, nil, nil
	}
	next, err = s.store.CreateTask(ctx, model.TaskInput{
		Title:        done.Title,
		Description:  done.Description,
		ScheduledFor: at,
		Recurrence:   done.Recurrence,
		Category:     done.Category,
		Priority:     done.Priority,
		Source:       done.Source,
		Metadata:     done.Metadata,
	})
	if err != nil {
		return done, nil, fmt.Errorf("schedule next occurrence: %w", err)
	}
	s.logger.Info("recurring task rolled over", "task", done.ID, "next", next.ID,
		"recurrence", done.Recurrence, "scheduled_for", at.Format(time.RFC3339))
	return done, next, nil
}

// Occurrences returns up to n future occurrences of a recurring task after
// its current due time, in the service location. One-off tasks and
// finished tasks have none.
func (s *Service) Occurrences(t *model.ScheduledTask, n int) []time.Time {
	if t.Status.Terminal() {
		return nil
	}
	return schedule.Upcoming(t.Recurrence, t.ScheduledFor.In(s.location), n)
}

// CancelTask marks a pending task cancelled.
func (s *Service) CancelTask(ctx context.Context, id string) (*model.ScheduledTask, error) {
	status := model.TaskCancelled
	return s.store.UpdateTask(ctx, id, model.TaskPatch{Status: &status})
}

func (s *Service) DeleteTask(ctx context.Context, id string) error {
	return s.store.DeleteTask(ctx, id)
}

// TaskStats summarizes every task as of now.
func (s *Service) TaskStats(ctx context.Context) (stats.TaskStats, error) {
	tasks, err := s.store.AllTasks(ctx)
	if err != nil {
		return stats.TaskStats{}, err
	}
	return stats.Tasks(tasks, s.Now()), nil
}

// --- memories ---

func (s *Service) CreateMemory(ctx context.Context, in model.MemoryInput) (*model.Memory, error) {
	return s.store.CreateMemory(ctx, in)
}

func (s *Service) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	return s.store.GetMemory(ctx, id)
}

// UpdateMemory applies p. An empty patch is rejected.
func (s *Service) UpdateMemory(ctx context.Context, id string, p model.MemoryPatch) (*model.Memory, error) {
	if p.Empty() {
		return nil, &model.ValidationError{Field: "patch", Reason: "nothing to update"}
	}
	return s.store.UpdateMemory(ctx, id, p)
}

func (s *Service) ListMemories(ctx context.Context, q store.MemoryQuery) ([]model.Memory, error) {
	if q.Limit <= 0 {
		q.Limit = s.recentLimit
	}
	return s.store.ListMemories(ctx, q)
}

func (s *Service) DeleteMemory(ctx context.Context, id string) error {
	return s.store.DeleteMemory(ctx, id)
}

// --- documents ---

func (s *Service) UpsertDocument(ctx context.Context, in model.DocumentInput) (*model.Document, error) {
	return s.store.UpsertDocument(ctx, in)
}

func (s *Service) GetDocument(ctx context.Context, path string) (*model.Document, error) {
	return s.store.GetDocumentByPath(ctx, path)
}

func (s *Service) ListDocuments(ctx context.Context, q store.DocumentQuery) ([]model.Document, error) {
	if q.Limit <= 0 {
		q.Limit = s.recentLimit
	}
	return s.store.ListDocuments(ctx, q)
}

func (s *Service) DeleteDocument(ctx context.Context, path string) error {
	return s.store.DeleteDocument(ctx, path)
}

// --- search ---

// SearchAll searches every collection and records the search in history.
// On a partial failure the results are still returned alongside a
// *search.PartialSearchError.
func (s *Service) SearchAll(ctx context.Context, query string, limit int) (*search.Results, error) {
	if limit <= 0 {
		limit = s.searchLimit
	}
	return s.search.SearchAll(ctx, query, limit)
}

// RefreshSearch re-runs a search without recording history.
func (s *Service) RefreshSearch(ctx context.Context, query string, limit int) (*search.Results, error) {
	if limit <= 0 {
		limit = s.searchLimit
	}
	return s.search.Refresh(ctx, query, limit)
}

// SearchHistory returns recent searches, newest first.
func (s *Service) SearchHistory(ctx context.Context, limit int) ([]model.SearchHistoryEntry, error) {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return s.store.SearchHistory(ctx, limit)
}

// --- feed source ---

// Recent returns the recent-items list of one entity type as feed items.
// Tasks are the upcoming ones.
func (s *Service) Recent(ctx context.Context, t model.EntityType) ([]search.Item, error) {
	switch t {
	case model.EntityMemory:
		mems, err := s.ListMemories(ctx, store.MemoryQuery{})
		return search.Wrap(mems, search.MemoryItem), err
	case model.EntityDocument:
		docs, err := s.ListDocuments(ctx, store.DocumentQuery{})
		return search.Wrap(docs, search.DocumentItem), err
	case model.EntityActivity:
		acts, err := s.ListActivities(ctx, store.ActivityQuery{})
		return search.Wrap(acts, search.ActivityItem), err
	case model.EntityTask:
		tasks, err := s.UpcomingTasks(ctx, time.Time{}, 0)
		return search.Wrap(tasks, search.TaskItem), err
	}
	return nil, fmt.Errorf("recent: unknown entity type %q", t)
}

// RecentAll loads every recent-items list. Lists that fail to load are
// left empty and their errors joined.
func (s *Service) RecentAll(ctx context.Context) (search.PerType, error) {
	var lists search.PerType
	var errs []error
	for _, t := range model.EntityTypes {
		items, err := s.Recent(ctx, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("recent %s: %w", t, err))
			continue
		}
		lists.Set(t, items)
	}
	return lists, errors.Join(errs...)
}

// Subscribe registers for store change notifications.
func (s *Service) Subscribe() *store.Subscription {
	return s.store.Subscribe()
}
