package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/store"
)

const (
	// DefaultLimit caps each collection's hits when no limit is given.
	DefaultLimit = 20
	// MinQueryLength is the shortest query, in runes, that interactive
	// callers should issue. Shorter queries are still searched normally.
	MinQueryLength = 2
)

// Sources holds the per-collection search capabilities. A nil source
// contributes no items.
type Sources struct {
	Memories   Searchable[model.Memory]
	Documents  Searchable[model.DocumentMatch]
	Activities Searchable[model.Activity]
	Tasks      Searchable[model.ScheduledTask]
}

// StoreSources binds each collection to its store search method.
func StoreSources(s store.Store) Sources {
	return Sources{
		Memories:   SearchFunc[model.Memory](s.SearchMemories),
		Documents:  SearchFunc[model.DocumentMatch](s.SearchDocuments),
		Activities: SearchFunc[model.Activity](s.SearchActivities),
		Tasks:      SearchFunc[model.ScheduledTask](s.SearchTasks),
	}
}

// Recorder appends to the search history.
type Recorder interface {
	RecordSearch(ctx context.Context, query string, resultCount int) (*model.SearchHistoryEntry, error)
}

// Orchestrator fans a query out to every collection.
type Orchestrator struct {
	sources Sources
	history Recorder
	logger  *log.Logger
	metrics *Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates an orchestrator. history may be nil, in which
// case SearchAll records nothing.
func NewOrchestrator(sources Sources, history Recorder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sources: sources,
		history: history,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SearchAll searches every collection, capping each at limit (DefaultLimit
// when limit <= 0), and appends one history entry whose result count is the
// sum of the capped lists. The entry is written even when there are no hits
// or some lookups failed.
//
// Failed lookups leave their list empty and are reported through a
// *PartialSearchError. A failed history write is joined onto the returned
// error. Results are never nil.
func (o *Orchestrator) SearchAll(ctx context.Context, query string, limit int) (*Results, error) {
	res, partial := o.run(ctx, "search", query, limit)

	var errs []error
	if partial != nil {
		errs = append(errs, partial)
	}
	if o.history != nil {
		if _, err := o.history.RecordSearch(ctx, query, res.TotalCount); err != nil {
			o.logger.Error("record search history failed", "query", query, "err", err)
			errs = append(errs, fmt.Errorf("record search: %w", err))
		}
	}
	return res, errors.Join(errs...)
}

// Refresh re-runs a query without touching the search history.
func (o *Orchestrator) Refresh(ctx context.Context, query string, limit int) (*Results, error) {
	res, partial := o.run(ctx, "refresh", query, limit)
	if partial != nil {
		return res, partial
	}
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, mode, query string, limit int) (*Results, *PartialSearchError) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	start := time.Now()

	var (
		lists PerType
		mu    sync.Mutex
		errs  = map[model.EntityType]error{}
		wg    sync.WaitGroup
	)
	collect := func(t model.EntityType, items []Item, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs[t] = err
			return
		}
		lists.Set(t, items)
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		items, err := lookup(ctx, o.sources.Memories, query, limit, MemoryItem)
		collect(model.EntityMemory, items, err)
	}()
	go func() {
		defer wg.Done()
		items, err := lookup(ctx, o.sources.Documents, query, limit, DocumentMatchItem)
		collect(model.EntityDocument, items, err)
	}()
	go func() {
		defer wg.Done()
		items, err := lookup(ctx, o.sources.Activities, query, limit, ActivityItem)
		collect(model.EntityActivity, items, err)
	}()
	go func() {
		defer wg.Done()
		items, err := lookup(ctx, o.sources.Tasks, query, limit, TaskItem)
		collect(model.EntityTask, items, err)
	}()
	wg.Wait()

	res := &Results{PerType: lists, TotalCount: lists.Count()}

	var partial *PartialSearchError
	if len(errs) > 0 {
		partial = &PartialSearchError{Failed: errs}
		for _, t := range partial.Types() {
			o.logger.Warn("search lookup failed", "type", t, "query", query, "err", errs[t])
		}
	}
	o.metrics.observe(mode, time.Since(start), res.TotalCount, failedTypes(partial))
	o.logger.Debug("search finished", "mode", mode, "query", query, "total", res.TotalCount,
		"elapsed", time.Since(start))
	return res, partial
}

func failedTypes(p *PartialSearchError) []model.EntityType {
	if p == nil {
		return nil
	}
	return p.Types()
}

// lookup runs one collection search and wraps its hits. The hit list is
// truncated to limit in case the source returns more.
func lookup[T any](ctx context.Context, src Searchable[T], query string, limit int, wrap func(T) Item) (items []Item, err error) {
	if src == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("lookup panic: %v", r)
		}
	}()
	records, err := src.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return Wrap(records, wrap), nil
}
